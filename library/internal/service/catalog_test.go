package service_test

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loan-service/library/internal/errs"
	"github.com/Astemirdum/library-loan-service/library/internal/model"
	repo_mocks "github.com/Astemirdum/library-loan-service/library/internal/repository/mocks"
	"github.com/Astemirdum/library-loan-service/library/internal/service"
)

func TestCatalogService_CreateBook(t *testing.T) {
	t.Parallel()
	req := model.BookRequest{
		Title:         " Dune ",
		ISBN:          "978-0-441-17271-9",
		PublishedYear: 1965,
		TotalCopies:   3,
		AuthorID:      1,
		CategoryID:    2,
	}
	type mockBehavior func(r *repo_mocks.MockCatalogRepository)

	tests := []struct {
		name         string
		mockBehavior mockBehavior
		wantErr      error
	}{
		{
			name: "ok",
			mockBehavior: func(r *repo_mocks.MockCatalogRepository) {
				r.EXPECT().GetAuthor(gomock.Any(), int64(1)).Return(model.Author{ID: 1}, nil)
				r.EXPECT().GetCategory(gomock.Any(), int64(2)).Return(model.Category{ID: 2}, nil)
				r.EXPECT().CreateBook(gomock.Any(), model.Book{
					Title:           "Dune",
					ISBN:            "9780441172719",
					PublishedYear:   1965,
					TotalCopies:     3,
					AvailableCopies: 3,
				}, int64(1), int64(2)).Return(model.Book{ID: 5, Title: "Dune"}, nil)
			},
		},
		{
			name: "unknown author",
			mockBehavior: func(r *repo_mocks.MockCatalogRepository) {
				r.EXPECT().GetAuthor(gomock.Any(), int64(1)).Return(model.Author{}, errs.ErrNotFound)
			},
			wantErr: errs.ErrNotFound,
		},
		{
			name: "duplicate isbn",
			mockBehavior: func(r *repo_mocks.MockCatalogRepository) {
				r.EXPECT().GetAuthor(gomock.Any(), int64(1)).Return(model.Author{ID: 1}, nil)
				r.EXPECT().GetCategory(gomock.Any(), int64(2)).Return(model.Category{ID: 2}, nil)
				r.EXPECT().CreateBook(gomock.Any(), gomock.Any(), int64(1), int64(2)).
					Return(model.Book{}, errs.ErrAlreadyExists)
			},
			wantErr: errs.ErrAlreadyExists,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			repo := repo_mocks.NewMockCatalogRepository(c)
			tt.mockBehavior(repo)

			svc := service.NewCatalogService(repo, zap.NewExample())
			book, err := svc.CreateBook(context.Background(), req)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			require.Equal(t, int64(5), book.ID)
		})
	}
}

func TestCatalogService_Categories(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	repo := repo_mocks.NewMockCatalogRepository(c)
	svc := service.NewCatalogService(repo, zap.NewExample())

	repo.EXPECT().CreateCategory(gomock.Any(), model.Category{Name: "Science Fiction", Slug: "science-fiction"}).
		Return(model.Category{ID: 1, Name: "Science Fiction", Slug: "science-fiction"}, nil)
	created, err := svc.CreateCategory(context.Background(), model.CategoryRequest{Name: "Science Fiction "})
	require.NoError(t, err)
	require.Equal(t, "science-fiction", created.Slug)

	repo.EXPECT().UpdateCategory(gomock.Any(), model.Category{ID: 1, Name: "Fantasy & Myth", Slug: "fantasy-myth"}).
		Return(model.Category{ID: 1, Name: "Fantasy & Myth", Slug: "fantasy-myth"}, nil)
	updated, err := svc.UpdateCategory(context.Background(), 1, model.CategoryRequest{Name: "Fantasy & Myth"})
	require.NoError(t, err)
	require.Equal(t, "fantasy-myth", updated.Slug)

	_, err = svc.CreateCategory(context.Background(), model.CategoryRequest{Name: "???"})
	require.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestCatalogService_Autocomplete(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	repo := repo_mocks.NewMockCatalogRepository(c)
	svc := service.NewCatalogService(repo, zap.NewExample())

	got, err := svc.Autocomplete(context.Background(), " d ")
	require.NoError(t, err)
	require.Empty(t, got)

	repo.EXPECT().Autocomplete(gomock.Any(), "du", 10).
		Return([]model.BookSuggestion{{ID: 1, Title: "Dune"}}, nil)
	got, err = svc.Autocomplete(context.Background(), "du")
	require.NoError(t, err)
	require.Len(t, got, 1)

	repo.EXPECT().PopularBooks(gomock.Any(), 50).Return([]model.Book{}, nil)
	_, err = svc.PopularBooks(context.Background(), 500)
	require.NoError(t, err)

	repo.EXPECT().RecentBooks(gomock.Any(), 10).Return([]model.Book{}, nil)
	_, err = svc.RecentBooks(context.Background(), 0)
	require.NoError(t, err)
}
