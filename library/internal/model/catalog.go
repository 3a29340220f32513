package model

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

type Author struct {
	ID        int64   `json:"id" db:"id"`
	FirstName string  `json:"firstName" db:"first_name"`
	LastName  string  `json:"lastName" db:"last_name"`
	Biography *string `json:"biography,omitempty" db:"biography"`
	BirthYear *int    `json:"birthYear,omitempty" db:"birth_year"`
}

func (a Author) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

type Category struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Slug        string  `json:"slug" db:"slug"`
	Description *string `json:"description,omitempty" db:"description"`
}

// Slugify lowercases the name, strips accents and joins alphanumeric runs with '-'.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFD.String(name) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

type Book struct {
	ID              int64     `json:"id" db:"id"`
	BookUid         string    `json:"bookUid" db:"book_uid"`
	Title           string    `json:"title" db:"title"`
	ISBN            string    `json:"isbn" db:"isbn"`
	Description     *string   `json:"description,omitempty" db:"description"`
	PublishedYear   int       `json:"publishedYear" db:"published_year"`
	TotalCopies     int       `json:"totalCopies" db:"total_copies"`
	AvailableCopies int       `json:"availableCopies" db:"available_copies"`
	CoverImage      *string   `json:"coverImage,omitempty" db:"cover_image"`
	Author          Author    `json:"author" db:"author"`
	Category        Category  `json:"category" db:"category"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}

// InitializeAvailable fills availableCopies from totalCopies for a new book.
func (b *Book) InitializeAvailable() {
	if b.AvailableCopies == 0 && b.TotalCopies > 0 {
		b.AvailableCopies = b.TotalCopies
	}
}

// DecrementAvailable is a no-op when no copy is left.
func (b *Book) DecrementAvailable() {
	if b.AvailableCopies > 0 {
		b.AvailableCopies--
	}
}

// IncrementAvailable is a no-op when every copy is already on the shelf.
func (b *Book) IncrementAvailable() {
	if b.AvailableCopies < b.TotalCopies {
		b.AvailableCopies++
	}
}

type Paging struct {
	Page          int `json:"page"`
	PageSize      int `json:"pageSize"`
	TotalElements int `json:"totalElements"`
}

type ListBooks struct {
	Paging `json:",inline"`
	Items  []Book `json:"items"`
}

type BookFilter struct {
	Query         string
	CategoryID    int64
	CategorySlug  string
	AuthorID      int64
	AvailableOnly bool
	Page          int
	Size          int
}

type BookSuggestion struct {
	ID     int64  `json:"id" db:"id"`
	Title  string `json:"title" db:"title"`
	ISBN   string `json:"isbn" db:"isbn"`
	Author string `json:"author" db:"author"`
}
