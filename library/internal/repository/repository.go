package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loan-service/library/internal/errs"
	"github.com/Astemirdum/library-loan-service/library/internal/model"
)

//go:generate go run github.com/golang/mock/mockgen -source=repository.go -destination=mocks/mock.go

type CatalogRepository interface {
	CreateAuthor(ctx context.Context, author model.Author) (model.Author, error)
	UpdateAuthor(ctx context.Context, author model.Author) (model.Author, error)
	DeleteAuthor(ctx context.Context, id int64) error
	GetAuthor(ctx context.Context, id int64) (model.Author, error)
	ListAuthors(ctx context.Context, query string) ([]model.Author, error)

	CreateCategory(ctx context.Context, category model.Category) (model.Category, error)
	UpdateCategory(ctx context.Context, category model.Category) (model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	GetCategory(ctx context.Context, id int64) (model.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)

	CreateBook(ctx context.Context, book model.Book, authorID, categoryID int64) (model.Book, error)
	UpdateBook(ctx context.Context, book model.Book, authorID, categoryID int64) (model.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	GetBook(ctx context.Context, id int64) (model.Book, error)
	ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error)
	PopularBooks(ctx context.Context, limit int) ([]model.Book, error)
	RecentBooks(ctx context.Context, limit int) ([]model.Book, error)
	Autocomplete(ctx context.Context, query string, limit int) ([]model.BookSuggestion, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user model.User) (model.User, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsers(ctx context.Context, page, size int) ([]model.User, error)
	UpdateUser(ctx context.Context, user model.User) (model.User, error)
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	authorsTableName    = `authors`
	categoriesTableName = `categories`
	booksTableName      = `books`
	usersTableName      = `users`
	loansTableName      = `loans`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// dbtx is satisfied by both *sqlx.DB and *sqlx.Tx.
type dbtx interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// mapErr translates driver errors into errs sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return errs.ErrNotFound
	}
	switch pgCode(err) {
	case pgerrcode.UniqueViolation:
		return errs.ErrAlreadyExists
	case pgerrcode.ForeignKeyViolation:
		return errs.ErrInUse
	case pgerrcode.CheckViolation:
		return errs.ErrInvalidArgument
	}
	return err
}

func get(ctx context.Context, db dbtx, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	return mapErr(db.GetContext(ctx, dest, query, args...))
}

func list(ctx context.Context, db dbtx, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	return mapErr(db.SelectContext(ctx, dest, query, args...))
}

func exec(ctx context.Context, db dbtx, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}

func paginate(b sq.SelectBuilder, page, size int) sq.SelectBuilder {
	if page != 0 && size != 0 {
		b = b.Limit(uint64(size)).Offset(uint64((page - 1) * size))
	}
	return b
}
