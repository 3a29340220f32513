package service_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loan-service/library/internal/model"
	"github.com/Astemirdum/library-loan-service/library/internal/service"
)

type fakeStats struct {
	calls   int32
	failing bool
}

func (f *fakeStats) BookStats(context.Context) (model.BookStats, error) {
	atomic.AddInt32(&f.calls, 1)
	return model.BookStats{Total: 8, Available: 6, Borrowed: 3}, nil
}

func (f *fakeStats) UserStats(context.Context) (model.UserStats, error) {
	return model.UserStats{Total: 10, Active: 7}, nil
}

func (f *fakeStats) LoanStats(context.Context, time.Time) (model.LoanStats, error) {
	if f.failing {
		return model.LoanStats{}, errors.New("timeout")
	}
	return model.LoanStats{Active: 3, Overdue: 1, ThisMonth: 4}, nil
}

func (f *fakeStats) LoansPerMonth(_ context.Context, _ time.Time, months int) ([]model.MonthCount, error) {
	return make([]model.MonthCount, months), nil
}

func (f *fakeStats) PopularCategories(_ context.Context, limit int) ([]model.CategoryCount, error) {
	return []model.CategoryCount{{Name: "Fiction", Count: limit}}, nil
}

type memCache struct {
	stats *model.DashboardStats
}

func (c *memCache) Get(context.Context) (model.DashboardStats, bool) {
	if c.stats == nil {
		return model.DashboardStats{}, false
	}
	return *c.stats, true
}

func (c *memCache) Set(_ context.Context, stats model.DashboardStats) {
	c.stats = &stats
}

func TestStatsService_Dashboard(t *testing.T) {
	t.Parallel()
	repo := &fakeStats{}
	cache := &memCache{}
	svc := service.NewStatsService(repo, cache, zap.NewExample())

	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, 75.0, stats.Books.AvailabilityRate)
	require.Equal(t, 3, stats.Users.Inactive)
	require.Equal(t, 25.0, stats.Loans.OverdueRate)
	require.Len(t, stats.LoansPerMonth, 12)
	require.Equal(t, 5, stats.PopularCategories[0].Count)

	cached, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, stats, cached)
	require.Equal(t, int32(1), atomic.LoadInt32(&repo.calls))
}

func TestStatsService_DashboardError(t *testing.T) {
	t.Parallel()
	cache := &memCache{}
	svc := service.NewStatsService(&fakeStats{failing: true}, cache, zap.NewExample())

	_, err := svc.Dashboard(context.Background())
	require.EqualError(t, err, "timeout")
	require.Nil(t, cache.stats)
}
