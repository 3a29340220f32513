package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loan-service/library/internal/errs"
	"github.com/Astemirdum/library-loan-service/pkg/auth"
	md "github.com/Astemirdum/library-loan-service/pkg/middleware"
	"github.com/Astemirdum/library-loan-service/pkg/validate"
	_ "github.com/Astemirdum/library-loan-service/swagger"
)

type Handler struct {
	catalogSvc CatalogService
	userSvc    UserService
	loanSvc    LoanService
	statsSvc   StatsService
	tokens     md.TokenParser
	log        *zap.Logger
}

func New(
	catalogSvc CatalogService,
	userSvc UserService,
	loanSvc LoanService,
	statsSvc StatsService,
	tokens md.TokenParser,
	log *zap.Logger,
) *Handler {
	return &Handler{
		catalogSvc: catalogSvc,
		userSvc:    userSvc,
		loanSvc:    loanSvc,
		statsSvc:   statsSvc,
		tokens:     tokens,
		log:        log,
	}
}

// @title Library loans API
// @version 1.0
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)
	api.POST("/register", h.Register)
	api.POST("/authorize", h.Authorize)

	api = api.Group("", md.JwtAuthentication(h.tokens, h.userSvc))

	api.GET("/books", h.SearchBooks)
	api.GET("/books/popular", h.PopularBooks)
	api.GET("/books/recent", h.RecentBooks)
	api.GET("/books/autocomplete", h.Autocomplete)
	api.GET("/books/:id", h.GetBook)
	api.GET("/categories", h.ListCategories)
	api.GET("/categories/:slug/books", h.BooksByCategory)
	api.GET("/authors", h.ListAuthors)

	api.POST("/loans", h.Borrow)
	api.GET("/loans/my", h.MyLoans)
	api.GET("/loans/:id", h.GetLoan)
	api.POST("/loans/:id/return", h.ReturnLoan)
	api.POST("/loans/:id/extend", h.ExtendLoan)

	admin := api.Group("", md.RequireAdmin)
	admin.POST("/books", h.CreateBook)
	admin.PUT("/books/:id", h.UpdateBook)
	admin.DELETE("/books/:id", h.DeleteBook)
	admin.POST("/authors", h.CreateAuthor)
	admin.PUT("/authors/:id", h.UpdateAuthor)
	admin.DELETE("/authors/:id", h.DeleteAuthor)
	admin.POST("/categories", h.CreateCategory)
	admin.PUT("/categories/:id", h.UpdateCategory)
	admin.DELETE("/categories/:id", h.DeleteCategory)

	admin.GET("/admin/loans", h.ListLoans)
	admin.GET("/admin/loans/overdue", h.OverdueLoans)
	admin.GET("/admin/stats", h.Dashboard)
	admin.GET("/admin/users", h.ListUsers)
	admin.PATCH("/admin/users/:id", h.UpdateUser)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps service errors onto status codes.
func httpError(err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrNotFound):
		code = http.StatusNotFound
	case errs.IsLoanError(err),
		errors.Is(err, errs.ErrAlreadyExists),
		errors.Is(err, errs.ErrInUse),
		errors.Is(err, errs.ErrCopiesOnLoan):
		code = http.StatusConflict
	case errors.Is(err, errs.ErrInvalidArgument):
		code = http.StatusBadRequest
	case errors.Is(err, errs.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, errs.ErrInvalidCredentials):
		code = http.StatusUnauthorized
	}
	return echo.NewHTTPError(code, err.Error())
}

func bindValid(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func idParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id is invalid")
	}
	return id, nil
}

func intQuery(c echo.Context, name string) (int, error) {
	param := c.QueryParam(name)
	if param == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(param)
	if err != nil || v < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" is invalid")
	}
	return v, nil
}

func pageQuery(c echo.Context) (page, size int, err error) {
	if page, err = intQuery(c, "page"); err != nil {
		return 0, 0, err
	}
	if size, err = intQuery(c, "size"); err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func profile(c echo.Context) (auth.Profile, error) {
	p, err := auth.GetProfile(c.Request().Context())
	if err != nil {
		return auth.Profile{}, echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	return p, nil
}
