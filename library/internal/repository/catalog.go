package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loan-service/library/internal/errs"
	"github.com/Astemirdum/library-loan-service/library/internal/model"
)

var (
	authorColumns   = []string{"id", "first_name", "last_name", "biography", "birth_year"}
	categoryColumns = []string{"id", "name", "slug", "description"}
	bookColumns     = []string{
		"b.id", "b.book_uid", "b.title", "b.isbn", "b.description", "b.published_year",
		"b.total_copies", "b.available_copies", "b.cover_image", "b.created_at", "b.updated_at",
		`a.id as "author.id"`, `a.first_name as "author.first_name"`, `a.last_name as "author.last_name"`,
		`a.biography as "author.biography"`, `a.birth_year as "author.birth_year"`,
		`c.id as "category.id"`, `c.name as "category.name"`, `c.slug as "category.slug"`,
		`c.description as "category.description"`,
	}
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern and prefixPattern treat user input as literal text.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func prefixPattern(s string) string {
	return likeEscaper.Replace(s) + "%"
}

func ilikeAny(pattern string, columns ...string) sq.Or {
	or := make(sq.Or, 0, len(columns))
	for _, column := range columns {
		or = append(or, sq.Expr(column+` ILIKE ? ESCAPE '\'`, pattern))
	}
	return or
}

func selectBooks(columns ...string) sq.SelectBuilder {
	return qb.Select(columns...).
		From(booksTableName + " b").
		Join(authorsTableName + " a on a.id = b.author_id").
		Join(categoriesTableName + " c on c.id = b.category_id")
}

func (r *repository) CreateAuthor(ctx context.Context, author model.Author) (model.Author, error) {
	q := qb.Insert(authorsTableName).
		Columns("first_name", "last_name", "biography", "birth_year").
		Values(author.FirstName, author.LastName, author.Biography, author.BirthYear).
		Suffix("returning id")
	if err := get(ctx, r.db, &author.ID, q); err != nil {
		return model.Author{}, err
	}
	return author, nil
}

func (r *repository) UpdateAuthor(ctx context.Context, author model.Author) (model.Author, error) {
	n, err := exec(ctx, r.db, qb.Update(authorsTableName).
		Set("first_name", author.FirstName).
		Set("last_name", author.LastName).
		Set("biography", author.Biography).
		Set("birth_year", author.BirthYear).
		Where(sq.Eq{"id": author.ID}))
	if err != nil {
		return model.Author{}, err
	}
	if n == 0 {
		return model.Author{}, errs.ErrNotFound
	}
	return author, nil
}

func (r *repository) DeleteAuthor(ctx context.Context, id int64) error {
	return r.delete(ctx, authorsTableName, id)
}

func (r *repository) GetAuthor(ctx context.Context, id int64) (model.Author, error) {
	var author model.Author
	err := get(ctx, r.db, &author, qb.Select(authorColumns...).From(authorsTableName).Where(sq.Eq{"id": id}))
	return author, err
}

func (r *repository) ListAuthors(ctx context.Context, query string) ([]model.Author, error) {
	q := qb.Select(authorColumns...).From(authorsTableName).OrderBy("last_name", "first_name")
	if query != "" {
		q = q.Where(ilikeAny(containsPattern(query), "first_name", "last_name"))
	}
	authors := make([]model.Author, 0)
	if err := list(ctx, r.db, &authors, q); err != nil {
		return nil, err
	}
	return authors, nil
}

func (r *repository) CreateCategory(ctx context.Context, category model.Category) (model.Category, error) {
	q := qb.Insert(categoriesTableName).
		Columns("name", "slug", "description").
		Values(category.Name, category.Slug, category.Description).
		Suffix("returning id")
	if err := get(ctx, r.db, &category.ID, q); err != nil {
		return model.Category{}, err
	}
	return category, nil
}

func (r *repository) UpdateCategory(ctx context.Context, category model.Category) (model.Category, error) {
	n, err := exec(ctx, r.db, qb.Update(categoriesTableName).
		Set("name", category.Name).
		Set("slug", category.Slug).
		Set("description", category.Description).
		Where(sq.Eq{"id": category.ID}))
	if err != nil {
		return model.Category{}, err
	}
	if n == 0 {
		return model.Category{}, errs.ErrNotFound
	}
	return category, nil
}

func (r *repository) DeleteCategory(ctx context.Context, id int64) error {
	return r.delete(ctx, categoriesTableName, id)
}

func (r *repository) GetCategory(ctx context.Context, id int64) (model.Category, error) {
	var category model.Category
	err := get(ctx, r.db, &category, qb.Select(categoryColumns...).From(categoriesTableName).Where(sq.Eq{"id": id}))
	return category, err
}

func (r *repository) GetCategoryBySlug(ctx context.Context, slug string) (model.Category, error) {
	var category model.Category
	err := get(ctx, r.db, &category, qb.Select(categoryColumns...).From(categoriesTableName).Where(sq.Eq{"slug": slug}))
	return category, err
}

func (r *repository) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories := make([]model.Category, 0)
	if err := list(ctx, r.db, &categories, qb.Select(categoryColumns...).From(categoriesTableName).OrderBy("name")); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repository) CreateBook(ctx context.Context, book model.Book, authorID, categoryID int64) (model.Book, error) {
	if book.BookUid == "" {
		book.BookUid = uuid.NewString()
	}
	q := qb.Insert(booksTableName).
		Columns("book_uid", "title", "isbn", "description", "published_year",
			"total_copies", "available_copies", "cover_image", "author_id", "category_id").
		Values(book.BookUid, book.Title, book.ISBN, book.Description, book.PublishedYear,
			book.TotalCopies, book.AvailableCopies, book.CoverImage, authorID, categoryID).
		Suffix("returning id")
	var id int64
	if err := get(ctx, r.db, &id, q); err != nil {
		return model.Book{}, err
	}
	return r.GetBook(ctx, id)
}

// UpdateBook never touches availableCopies directly: the copies on loan are
// preserved by shifting it with the totalCopies delta inside the statement.
func (r *repository) UpdateBook(ctx context.Context, book model.Book, authorID, categoryID int64) (model.Book, error) {
	n, err := exec(ctx, r.db, qb.Update(booksTableName).
		Set("title", book.Title).
		Set("isbn", book.ISBN).
		Set("description", book.Description).
		Set("published_year", book.PublishedYear).
		Set("available_copies", sq.Expr("available_copies + (? - total_copies)", book.TotalCopies)).
		Set("total_copies", book.TotalCopies).
		Set("cover_image", book.CoverImage).
		Set("author_id", authorID).
		Set("category_id", categoryID).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": book.ID}).
		Where(sq.Expr("total_copies - available_copies <= ?", book.TotalCopies)))
	if err != nil {
		return model.Book{}, err
	}
	if n == 0 {
		if _, err := r.GetBook(ctx, book.ID); err != nil {
			return model.Book{}, err
		}
		return model.Book{}, errs.ErrCopiesOnLoan
	}
	return r.GetBook(ctx, book.ID)
}

func (r *repository) DeleteBook(ctx context.Context, id int64) error {
	return r.delete(ctx, booksTableName, id)
}

func (r *repository) GetBook(ctx context.Context, id int64) (model.Book, error) {
	var book model.Book
	err := get(ctx, r.db, &book, selectBooks(bookColumns...).Where(sq.Eq{"b.id": id}))
	return book, err
}

func bookFilter(filter model.BookFilter) sq.And {
	where := sq.And{}
	if filter.Query != "" {
		where = append(where, ilikeAny(containsPattern(filter.Query),
			"b.title", "b.isbn", "a.first_name", "a.last_name"))
	}
	if filter.CategoryID != 0 {
		where = append(where, sq.Eq{"c.id": filter.CategoryID})
	}
	if filter.CategorySlug != "" {
		where = append(where, sq.Eq{"c.slug": filter.CategorySlug})
	}
	if filter.AuthorID != 0 {
		where = append(where, sq.Eq{"a.id": filter.AuthorID})
	}
	if filter.AvailableOnly {
		where = append(where, sq.Gt{"b.available_copies": 0})
	}
	return where
}

func (r *repository) ListBooks(ctx context.Context, filter model.BookFilter) (model.ListBooks, error) {
	where := bookFilter(filter)

	var total int
	if err := get(ctx, r.db, &total, selectBooks("count(*)").Where(where)); err != nil {
		return model.ListBooks{}, err
	}

	q := paginate(selectBooks(bookColumns...).Where(where).OrderBy("b.title"), filter.Page, filter.Size)
	books := make([]model.Book, 0)
	if err := list(ctx, r.db, &books, q); err != nil {
		r.log.Error("ListBooks", zap.Error(err), zap.Any("filter", filter))
		return model.ListBooks{}, err
	}

	return model.ListBooks{
		Paging: model.Paging{
			Page:          filter.Page,
			PageSize:      filter.Size,
			TotalElements: total,
		},
		Items: books,
	}, nil
}

func (r *repository) PopularBooks(ctx context.Context, limit int) ([]model.Book, error) {
	q := selectBooks(bookColumns...).
		LeftJoin(loansTableName + " l on l.book_id = b.id").
		GroupBy("b.id", "a.id", "c.id").
		OrderBy("count(l.id) desc", "b.title").
		Limit(uint64(limit))
	books := make([]model.Book, 0)
	if err := list(ctx, r.db, &books, q); err != nil {
		return nil, err
	}
	return books, nil
}

func (r *repository) RecentBooks(ctx context.Context, limit int) ([]model.Book, error) {
	q := selectBooks(bookColumns...).OrderBy("b.created_at desc", "b.id desc").Limit(uint64(limit))
	books := make([]model.Book, 0)
	if err := list(ctx, r.db, &books, q); err != nil {
		return nil, err
	}
	return books, nil
}

func (r *repository) Autocomplete(ctx context.Context, query string, limit int) ([]model.BookSuggestion, error) {
	q := selectBooks("b.id", "b.title", "b.isbn", "concat_ws(' ', a.first_name, a.last_name) as author").
		Where(ilikeAny(prefixPattern(query), "b.title", "b.isbn")).
		OrderBy("b.title").
		Limit(uint64(limit))
	suggestions := make([]model.BookSuggestion, 0)
	if err := list(ctx, r.db, &suggestions, q); err != nil {
		return nil, err
	}
	return suggestions, nil
}

func (r *repository) delete(ctx context.Context, table string, id int64) error {
	n, err := exec(ctx, r.db, qb.Delete(table).Where(sq.Eq{"id": id}))
	if err != nil {
		r.log.Warn("delete", zap.String("table", table), zap.Int64("id", id), zap.Error(err))
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}
