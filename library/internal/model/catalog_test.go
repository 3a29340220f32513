package model_test

import (
	"testing"

	"github.com/Astemirdum/library-loan-service/library/internal/model"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"Science Fiction":      "science-fiction",
		"  Poésie & Théâtre  ": "poesie-theatre",
		"C++ / Go":             "c-go",
		"History--2nd":         "history-2nd",
		"!!!":                  "",
	}
	for in, want := range tests {
		require.Equal(t, want, model.Slugify(in), in)
	}
}

func TestBook_Copies(t *testing.T) {
	t.Parallel()
	b := model.Book{TotalCopies: 2}
	b.InitializeAvailable()
	require.Equal(t, 2, b.AvailableCopies)

	b.IncrementAvailable()
	require.Equal(t, 2, b.AvailableCopies)

	b.DecrementAvailable()
	b.DecrementAvailable()
	b.DecrementAvailable()
	require.Equal(t, 0, b.AvailableCopies)
	require.False(t, b.IsAvailable())

	b.IncrementAvailable()
	require.True(t, b.IsAvailable())
}

func TestRate(t *testing.T) {
	t.Parallel()
	require.Equal(t, 0.0, model.Rate(1, 0))
	require.Equal(t, 33.3, model.Rate(1, 3))
	require.Equal(t, 100.0, model.Rate(4, 4))
}
