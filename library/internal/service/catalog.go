package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loan-service/library/internal/errs"
	"github.com/Astemirdum/library-loan-service/library/internal/model"
	"github.com/Astemirdum/library-loan-service/library/internal/repository"
)

type CatalogService struct {
	log  *zap.Logger
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository, log *zap.Logger) *CatalogService {
	return &CatalogService{
		log:  log.Named("catalog"),
		repo: repo,
	}
}

func (s *CatalogService) CreateAuthor(ctx context.Context, req model.AuthorRequest) (model.Author, error) {
	return s.repo.CreateAuthor(ctx, authorFromRequest(req))
}

func (s *CatalogService) UpdateAuthor(ctx context.Context, id int64, req model.AuthorRequest) (model.Author, error) {
	author := authorFromRequest(req)
	author.ID = id
	return s.repo.UpdateAuthor(ctx, author)
}

func (s *CatalogService) DeleteAuthor(ctx context.Context, id int64) error {
	return s.repo.DeleteAuthor(ctx, id)
}

func (s *CatalogService) ListAuthors(ctx context.Context, query string) ([]model.Author, error) {
	return s.repo.ListAuthors(ctx, strings.TrimSpace(query))
}

func authorFromRequest(req model.AuthorRequest) model.Author {
	return model.Author{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Biography: req.Biography,
		BirthYear: req.BirthYear,
	}
}

func (s *CatalogService) CreateCategory(ctx context.Context, req model.CategoryRequest) (model.Category, error) {
	category, err := categoryFromRequest(req)
	if err != nil {
		return model.Category{}, err
	}
	return s.repo.CreateCategory(ctx, category)
}

// UpdateCategory re-derives the slug from the new name.
func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, req model.CategoryRequest) (model.Category, error) {
	category, err := categoryFromRequest(req)
	if err != nil {
		return model.Category{}, err
	}
	category.ID = id
	return s.repo.UpdateCategory(ctx, category)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	return s.repo.DeleteCategory(ctx, id)
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.repo.ListCategories(ctx)
}

func categoryFromRequest(req model.CategoryRequest) (model.Category, error) {
	name := strings.TrimSpace(req.Name)
	slug := model.Slugify(name)
	if slug == "" {
		return model.Category{}, errors.Wrap(errs.ErrInvalidArgument, "category name has no letters or digits")
	}
	return model.Category{Name: name, Slug: slug, Description: req.Description}, nil
}

func (s *CatalogService) BooksByCategory(ctx context.Context, slug string, page, size int) (model.Category, model.ListBooks, error) {
	category, err := s.repo.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return model.Category{}, model.ListBooks{}, err
	}
	books, err := s.repo.ListBooks(ctx, model.BookFilter{CategoryID: category.ID, Page: page, Size: size})
	if err != nil {
		return model.Category{}, model.ListBooks{}, err
	}
	return category, books, nil
}

func (s *CatalogService) CreateBook(ctx context.Context, req model.BookRequest) (model.Book, error) {
	if err := s.checkRefs(ctx, req); err != nil {
		return model.Book{}, err
	}
	book := bookFromRequest(req)
	book.InitializeAvailable()
	created, err := s.repo.CreateBook(ctx, book, req.AuthorID, req.CategoryID)
	if err != nil {
		return model.Book{}, err
	}
	s.log.Info("book created", zap.Int64("book_id", created.ID), zap.String("isbn", created.ISBN))
	return created, nil
}

// UpdateBook keeps the copies on loan: availableCopies moves with totalCopies.
func (s *CatalogService) UpdateBook(ctx context.Context, id int64, req model.BookRequest) (model.Book, error) {
	if err := s.checkRefs(ctx, req); err != nil {
		return model.Book{}, err
	}
	book := bookFromRequest(req)
	book.ID = id
	return s.repo.UpdateBook(ctx, book, req.AuthorID, req.CategoryID)
}

func (s *CatalogService) DeleteBook(ctx context.Context, id int64) error {
	if err := s.repo.DeleteBook(ctx, id); err != nil {
		return err
	}
	s.log.Info("book deleted", zap.Int64("book_id", id))
	return nil
}

func (s *CatalogService) GetBook(ctx context.Context, id int64) (model.Book, error) {
	return s.repo.GetBook(ctx, id)
}

func (s *CatalogService) SearchBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	return s.repo.ListBooks(ctx, filter)
}

func (s *CatalogService) PopularBooks(ctx context.Context, limit int) ([]model.Book, error) {
	return s.repo.PopularBooks(ctx, clampLimit(limit))
}

func (s *CatalogService) RecentBooks(ctx context.Context, limit int) ([]model.Book, error) {
	return s.repo.RecentBooks(ctx, clampLimit(limit))
}

// Autocomplete answers nothing for queries shorter than two characters.
func (s *CatalogService) Autocomplete(ctx context.Context, query string) ([]model.BookSuggestion, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < autocompleteMin {
		return []model.BookSuggestion{}, nil
	}
	return s.repo.Autocomplete(ctx, query, autocompleteMax)
}

func (s *CatalogService) checkRefs(ctx context.Context, req model.BookRequest) error {
	if _, err := s.repo.GetAuthor(ctx, req.AuthorID); err != nil {
		return errors.Wrap(err, "author")
	}
	if _, err := s.repo.GetCategory(ctx, req.CategoryID); err != nil {
		return errors.Wrap(err, "category")
	}
	return nil
}

func bookFromRequest(req model.BookRequest) model.Book {
	return model.Book{
		Title:         strings.TrimSpace(req.Title),
		ISBN:          NormalizeISBN(req.ISBN),
		Description:   req.Description,
		PublishedYear: req.PublishedYear,
		TotalCopies:   req.TotalCopies,
		CoverImage:    req.CoverImage,
	}
}

// NormalizeISBN drops the separators allowed on input.
func NormalizeISBN(isbn string) string {
	return strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(isbn)))
}
