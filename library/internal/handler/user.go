package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/library-loan-service/library/internal/model"
)

// Register
// @Summary register a reader
// @Tags auth
// @Param user body model.RegisterRequest true "user"
// @Success 201 {object} model.User
// @Failure 409 {object} echo.HTTPError
// @Router /register [post]
func (h *Handler) Register(c echo.Context) error {
	var req model.RegisterRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	req.IsAdmin = false
	user, err := h.userSvc.Register(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

// Authorize
// @Summary issue an access token
// @Tags auth
// @Param credentials body model.AuthRequest true "credentials"
// @Success 200 {object} model.AuthResponse
// @Failure 401 {object} echo.HTTPError
// @Router /authorize [post]
func (h *Handler) Authorize(c echo.Context) error {
	var req model.AuthRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	resp, err := h.userSvc.Authorize(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ListUsers
// @Summary list users
// @Tags admin
// @Security BearerAuth
// @Param page query int false "page"
// @Param size query int false "size"
// @Success 200 {array} model.User
// @Router /admin/users [get]
func (h *Handler) ListUsers(c echo.Context) error {
	page, size, err := pageQuery(c)
	if err != nil {
		return err
	}
	users, err := h.userSvc.ListUsers(c.Request().Context(), page, size)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// UpdateUser
// @Summary toggle activity, admin role or loan cap
// @Tags admin
// @Security BearerAuth
// @Param id path int true "user id"
// @Param user body model.UpdateUserRequest true "changes"
// @Success 200 {object} model.User
// @Router /admin/users/{id} [patch]
func (h *Handler) UpdateUser(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req model.UpdateUserRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	user, err := h.userSvc.UpdateUser(c.Request().Context(), id, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}
