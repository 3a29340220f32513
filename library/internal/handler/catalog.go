package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/library-loan-service/library/internal/model"
	"github.com/Astemirdum/library-loan-service/library/internal/policy"
)

type BookResponse struct {
	model.Book
	Capabilities policy.BookCapabilities `json:"capabilities"`
}

type CategoryBooksResponse struct {
	Category model.Category  `json:"category"`
	Books    model.ListBooks `json:"books"`
}

// SearchBooks
// @Summary search books
// @Tags books
// @Security BearerAuth
// @Param q query string false "title, isbn or author"
// @Param categoryId query int false "category id"
// @Param authorId query int false "author id"
// @Param available query bool false "only books with copies left"
// @Param page query int false "page"
// @Param size query int false "size"
// @Success 200 {object} model.ListBooks
// @Failure 400 {object} echo.HTTPError
// @Router /books [get]
func (h *Handler) SearchBooks(c echo.Context) error {
	page, size, err := pageQuery(c)
	if err != nil {
		return err
	}
	filter := model.BookFilter{
		Query: c.QueryParam("q"),
		Page:  page,
		Size:  size,
	}
	if v := c.QueryParam("categoryId"); v != "" {
		if filter.CategoryID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "categoryId is invalid")
		}
	}
	if v := c.QueryParam("authorId"); v != "" {
		if filter.AuthorID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "authorId is invalid")
		}
	}
	if v := c.QueryParam("available"); v != "" {
		if filter.AvailableOnly, err = strconv.ParseBool(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "available is invalid")
		}
	}

	books, err := h.catalogSvc.SearchBooks(c.Request().Context(), filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

// PopularBooks
// @Summary most borrowed books
// @Tags books
// @Security BearerAuth
// @Param limit query int false "limit"
// @Success 200 {array} model.Book
// @Router /books/popular [get]
func (h *Handler) PopularBooks(c echo.Context) error {
	limit, err := intQuery(c, "limit")
	if err != nil {
		return err
	}
	books, err := h.catalogSvc.PopularBooks(c.Request().Context(), limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

// RecentBooks
// @Summary newest books
// @Tags books
// @Security BearerAuth
// @Param limit query int false "limit"
// @Success 200 {array} model.Book
// @Router /books/recent [get]
func (h *Handler) RecentBooks(c echo.Context) error {
	limit, err := intQuery(c, "limit")
	if err != nil {
		return err
	}
	books, err := h.catalogSvc.RecentBooks(c.Request().Context(), limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

// Autocomplete
// @Summary title and isbn suggestions
// @Tags books
// @Security BearerAuth
// @Param q query string true "prefix, at least 2 characters"
// @Success 200 {array} model.BookSuggestion
// @Router /books/autocomplete [get]
func (h *Handler) Autocomplete(c echo.Context) error {
	suggestions, err := h.catalogSvc.Autocomplete(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, suggestions)
}

// GetBook
// @Summary book with the caller's capabilities
// @Tags books
// @Security BearerAuth
// @Param id path int true "book id"
// @Success 200 {object} BookResponse
// @Failure 404 {object} echo.HTTPError
// @Router /books/{id} [get]
func (h *Handler) GetBook(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	p, err := profile(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	book, err := h.catalogSvc.GetBook(ctx, id)
	if err != nil {
		return httpError(err)
	}
	caps, err := h.loanSvc.BookCapabilities(ctx, p, book)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, BookResponse{Book: book, Capabilities: caps})
}

// CreateBook
// @Summary create book
// @Tags admin
// @Security BearerAuth
// @Param book body model.BookRequest true "book"
// @Success 201 {object} model.Book
// @Failure 400 {object} echo.HTTPError
// @Failure 409 {object} echo.HTTPError
// @Router /books [post]
func (h *Handler) CreateBook(c echo.Context) error {
	var req model.BookRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	book, err := h.catalogSvc.CreateBook(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

// UpdateBook
// @Summary update book
// @Tags admin
// @Security BearerAuth
// @Param id path int true "book id"
// @Param book body model.BookRequest true "book"
// @Success 200 {object} model.Book
// @Failure 409 {object} echo.HTTPError
// @Router /books/{id} [put]
func (h *Handler) UpdateBook(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req model.BookRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	book, err := h.catalogSvc.UpdateBook(c.Request().Context(), id, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

// DeleteBook
// @Summary delete book and its loans
// @Tags admin
// @Security BearerAuth
// @Param id path int true "book id"
// @Success 204
// @Router /books/{id} [delete]
func (h *Handler) DeleteBook(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.catalogSvc.DeleteBook(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListAuthors
// @Summary list authors
// @Tags authors
// @Security BearerAuth
// @Param q query string false "name"
// @Success 200 {array} model.Author
// @Router /authors [get]
func (h *Handler) ListAuthors(c echo.Context) error {
	authors, err := h.catalogSvc.ListAuthors(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, authors)
}

// CreateAuthor
// @Summary create author
// @Tags admin
// @Security BearerAuth
// @Param author body model.AuthorRequest true "author"
// @Success 201 {object} model.Author
// @Router /authors [post]
func (h *Handler) CreateAuthor(c echo.Context) error {
	var req model.AuthorRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	author, err := h.catalogSvc.CreateAuthor(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, author)
}

// UpdateAuthor
// @Summary update author
// @Tags admin
// @Security BearerAuth
// @Param id path int true "author id"
// @Param author body model.AuthorRequest true "author"
// @Success 200 {object} model.Author
// @Router /authors/{id} [put]
func (h *Handler) UpdateAuthor(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req model.AuthorRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	author, err := h.catalogSvc.UpdateAuthor(c.Request().Context(), id, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, author)
}

// DeleteAuthor
// @Summary delete author without books
// @Tags admin
// @Security BearerAuth
// @Param id path int true "author id"
// @Success 204
// @Failure 409 {object} echo.HTTPError
// @Router /authors/{id} [delete]
func (h *Handler) DeleteAuthor(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.catalogSvc.DeleteAuthor(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListCategories
// @Summary list categories
// @Tags categories
// @Security BearerAuth
// @Success 200 {array} model.Category
// @Router /categories [get]
func (h *Handler) ListCategories(c echo.Context) error {
	categories, err := h.catalogSvc.ListCategories(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, categories)
}

// BooksByCategory
// @Summary books of a category
// @Tags categories
// @Security BearerAuth
// @Param slug path string true "category slug"
// @Param page query int false "page"
// @Param size query int false "size"
// @Success 200 {object} CategoryBooksResponse
// @Failure 404 {object} echo.HTTPError
// @Router /categories/{slug}/books [get]
func (h *Handler) BooksByCategory(c echo.Context) error {
	page, size, err := pageQuery(c)
	if err != nil {
		return err
	}
	category, books, err := h.catalogSvc.BooksByCategory(c.Request().Context(), c.Param("slug"), page, size)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, CategoryBooksResponse{Category: category, Books: books})
}

// CreateCategory
// @Summary create category
// @Tags admin
// @Security BearerAuth
// @Param category body model.CategoryRequest true "category"
// @Success 201 {object} model.Category
// @Failure 409 {object} echo.HTTPError
// @Router /categories [post]
func (h *Handler) CreateCategory(c echo.Context) error {
	var req model.CategoryRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	category, err := h.catalogSvc.CreateCategory(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, category)
}

// UpdateCategory
// @Summary rename category
// @Tags admin
// @Security BearerAuth
// @Param id path int true "category id"
// @Param category body model.CategoryRequest true "category"
// @Success 200 {object} model.Category
// @Router /categories/{id} [put]
func (h *Handler) UpdateCategory(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req model.CategoryRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	category, err := h.catalogSvc.UpdateCategory(c.Request().Context(), id, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, category)
}

// DeleteCategory
// @Summary delete category without books
// @Tags admin
// @Security BearerAuth
// @Param id path int true "category id"
// @Success 204
// @Router /categories/{id} [delete]
func (h *Handler) DeleteCategory(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.catalogSvc.DeleteCategory(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
