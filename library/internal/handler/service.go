package handler

import (
	"context"

	"github.com/Astemirdum/library-loan-service/library/internal/model"
	"github.com/Astemirdum/library-loan-service/library/internal/policy"
	"github.com/Astemirdum/library-loan-service/library/internal/service"
	"github.com/Astemirdum/library-loan-service/pkg/auth"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type CatalogService interface {
	CreateAuthor(ctx context.Context, req model.AuthorRequest) (model.Author, error)
	UpdateAuthor(ctx context.Context, id int64, req model.AuthorRequest) (model.Author, error)
	DeleteAuthor(ctx context.Context, id int64) error
	ListAuthors(ctx context.Context, query string) ([]model.Author, error)
	CreateCategory(ctx context.Context, req model.CategoryRequest) (model.Category, error)
	UpdateCategory(ctx context.Context, id int64, req model.CategoryRequest) (model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ListCategories(ctx context.Context) ([]model.Category, error)
	BooksByCategory(ctx context.Context, slug string, page, size int) (model.Category, model.ListBooks, error)
	CreateBook(ctx context.Context, req model.BookRequest) (model.Book, error)
	UpdateBook(ctx context.Context, id int64, req model.BookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	GetBook(ctx context.Context, id int64) (model.Book, error)
	SearchBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error)
	PopularBooks(ctx context.Context, limit int) ([]model.Book, error)
	RecentBooks(ctx context.Context, limit int) ([]model.Book, error)
	Autocomplete(ctx context.Context, query string) ([]model.BookSuggestion, error)
}

type UserService interface {
	Register(ctx context.Context, req model.RegisterRequest) (model.User, error)
	Authorize(ctx context.Context, req model.AuthRequest) (model.AuthResponse, error)
	ListUsers(ctx context.Context, page, size int) ([]model.User, error)
	UpdateUser(ctx context.Context, id int64, req model.UpdateUserRequest) (model.User, error)
	LoadProfile(ctx context.Context, userID int64) (auth.Profile, error)
}

type LoanService interface {
	Borrow(ctx context.Context, userID, bookID int64) (model.Loan, error)
	Return(ctx context.Context, profile auth.Profile, loanID int64) (model.Loan, error)
	Extend(ctx context.Context, profile auth.Profile, loanID int64, days int) (model.Loan, error)
	GetLoan(ctx context.Context, profile auth.Profile, id int64) (service.LoanDetails, error)
	MyLoans(ctx context.Context, userID int64) (model.MyLoans, error)
	ListLoans(ctx context.Context, filter model.LoanFilter) (model.ListLoans, error)
	OverdueLoans(ctx context.Context) ([]model.Loan, error)
	BookCapabilities(ctx context.Context, profile auth.Profile, book model.Book) (policy.BookCapabilities, error)
}

type StatsService interface {
	Dashboard(ctx context.Context) (model.DashboardStats, error)
}

var (
	_ CatalogService = (*service.CatalogService)(nil)
	_ UserService    = (*service.UserService)(nil)
	_ LoanService    = (*service.LoanService)(nil)
	_ StatsService   = (*service.StatsService)(nil)
)
