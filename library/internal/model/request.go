package model

import "time"

type BookRequest struct {
	Title         string  `json:"title" validate:"required,min=2,max=255"`
	ISBN          string  `json:"isbn" validate:"required,isbn"`
	Description   *string `json:"description"`
	PublishedYear int     `json:"publishedYear" validate:"required,min=1000,max=2100"`
	TotalCopies   int     `json:"totalCopies" validate:"min=0"`
	CoverImage    *string `json:"coverImage" validate:"omitempty,max=500"`
	AuthorID      int64   `json:"authorId" validate:"required"`
	CategoryID    int64   `json:"categoryId" validate:"required"`
}

type AuthorRequest struct {
	FirstName string  `json:"firstName" validate:"required,max=100"`
	LastName  string  `json:"lastName" validate:"required,max=100"`
	Biography *string `json:"biography"`
	BirthYear *int    `json:"birthYear" validate:"omitempty,min=0,max=2100"`
}

type CategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

type RegisterRequest struct {
	Email     string  `json:"email" validate:"required,email,max=180"`
	Password  string  `json:"password" validate:"required,min=8"`
	FirstName string  `json:"firstName" validate:"required,max=100"`
	LastName  string  `json:"lastName" validate:"required,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	IsAdmin   bool    `json:"-"`
}

type AuthRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type UpdateUserRequest struct {
	IsActive *bool `json:"isActive"`
	IsAdmin  *bool `json:"isAdmin"`
	MaxLoans *int  `json:"maxLoans" validate:"omitempty,min=0,max=100"`
}

type BorrowRequest struct {
	BookID int64 `json:"bookId" validate:"required"`
}

type ExtendRequest struct {
	Days int `json:"days" validate:"omitempty,min=1,max=60"`
}
