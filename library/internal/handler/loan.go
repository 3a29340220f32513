package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/library-loan-service/library/internal/model"
)

// Borrow
// @Summary borrow a book
// @Tags loans
// @Security BearerAuth
// @Param loan body model.BorrowRequest true "book"
// @Success 201 {object} model.Loan
// @Failure 409 {object} echo.HTTPError "loan rejected"
// @Router /loans [post]
func (h *Handler) Borrow(c echo.Context) error {
	p, err := profile(c)
	if err != nil {
		return err
	}
	var req model.BorrowRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	loan, err := h.loanSvc.Borrow(c.Request().Context(), p.UserID, req.BookID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, loan)
}

// MyLoans
// @Summary caller's open loans and history
// @Tags loans
// @Security BearerAuth
// @Success 200 {object} model.MyLoans
// @Router /loans/my [get]
func (h *Handler) MyLoans(c echo.Context) error {
	p, err := profile(c)
	if err != nil {
		return err
	}
	loans, err := h.loanSvc.MyLoans(c.Request().Context(), p.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

// GetLoan
// @Summary loan with the caller's capabilities
// @Tags loans
// @Security BearerAuth
// @Param id path int true "loan id"
// @Success 200 {object} service.LoanDetails
// @Failure 403 {object} echo.HTTPError
// @Router /loans/{id} [get]
func (h *Handler) GetLoan(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	p, err := profile(c)
	if err != nil {
		return err
	}
	loan, err := h.loanSvc.GetLoan(c.Request().Context(), p, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

// ReturnLoan
// @Summary return a borrowed book
// @Tags loans
// @Security BearerAuth
// @Param id path int true "loan id"
// @Success 200 {object} model.Loan
// @Failure 409 {object} echo.HTTPError "already returned"
// @Router /loans/{id}/return [post]
func (h *Handler) ReturnLoan(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	p, err := profile(c)
	if err != nil {
		return err
	}
	loan, err := h.loanSvc.Return(c.Request().Context(), p, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

// ExtendLoan
// @Summary push the due date
// @Tags loans
// @Security BearerAuth
// @Param id path int true "loan id"
// @Param extension body model.ExtendRequest false "days, 14 when omitted"
// @Success 200 {object} model.Loan
// @Failure 409 {object} echo.HTTPError "extension denied"
// @Router /loans/{id}/extend [post]
func (h *Handler) ExtendLoan(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	p, err := profile(c)
	if err != nil {
		return err
	}
	var req model.ExtendRequest
	if c.Request().ContentLength != 0 {
		if err := bindValid(c, &req); err != nil {
			return err
		}
	}
	loan, err := h.loanSvc.Extend(c.Request().Context(), p, id, req.Days)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

// ListLoans
// @Summary all loans, optionally by derived status
// @Tags admin
// @Security BearerAuth
// @Param status query string false "active, overdue or returned"
// @Param userId query int false "borrower"
// @Param page query int false "page"
// @Param size query int false "size"
// @Success 200 {object} model.ListLoans
// @Router /admin/loans [get]
func (h *Handler) ListLoans(c echo.Context) error {
	page, size, err := pageQuery(c)
	if err != nil {
		return err
	}
	userID, err := intQuery(c, "userId")
	if err != nil {
		return err
	}
	loans, err := h.loanSvc.ListLoans(c.Request().Context(), model.LoanFilter{
		UserID: int64(userID),
		Status: model.Status(c.QueryParam("status")),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

// OverdueLoans
// @Summary overdue loans
// @Tags admin
// @Security BearerAuth
// @Success 200 {array} model.Loan
// @Router /admin/loans/overdue [get]
func (h *Handler) OverdueLoans(c echo.Context) error {
	loans, err := h.loanSvc.OverdueLoans(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

// Dashboard
// @Summary admin statistics
// @Tags admin
// @Security BearerAuth
// @Success 200 {object} model.DashboardStats
// @Router /admin/stats [get]
func (h *Handler) Dashboard(c echo.Context) error {
	stats, err := h.statsSvc.Dashboard(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}
