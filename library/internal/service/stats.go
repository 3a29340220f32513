package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/library-loan-service/library/internal/model"
	"github.com/Astemirdum/library-loan-service/library/internal/repository"
)

const (
	statsMonths        = 12
	statsTopCategories = 5
)

type StatsService struct {
	log   *zap.Logger
	repo  repository.StatsRepository
	cache repository.StatsCache
	now   func() time.Time
}

func NewStatsService(repo repository.StatsRepository, cache repository.StatsCache, log *zap.Logger, opts ...Option) *StatsService {
	o := newOptions(opts)
	return &StatsService{
		log:   log.Named("stats"),
		repo:  repo,
		cache: cache,
		now:   o.now,
	}
}

// Dashboard runs the aggregate queries concurrently and caches the result.
func (s *StatsService) Dashboard(ctx context.Context) (model.DashboardStats, error) {
	if stats, ok := s.cache.Get(ctx); ok {
		return stats, nil
	}

	now := s.now()
	var stats model.DashboardStats
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		stats.Books, err = s.repo.BookStats(egCtx)
		return err
	})
	eg.Go(func() (err error) {
		stats.Users, err = s.repo.UserStats(egCtx)
		return err
	})
	eg.Go(func() (err error) {
		stats.Loans, err = s.repo.LoanStats(egCtx, now)
		return err
	})
	eg.Go(func() (err error) {
		stats.LoansPerMonth, err = s.repo.LoansPerMonth(egCtx, now, statsMonths)
		return err
	})
	eg.Go(func() (err error) {
		stats.PopularCategories, err = s.repo.PopularCategories(egCtx, statsTopCategories)
		return err
	})
	if err := eg.Wait(); err != nil {
		s.log.Error("dashboard", zap.Error(err))
		return model.DashboardStats{}, err
	}

	stats.Books.AvailabilityRate = model.Rate(stats.Books.Available, stats.Books.Total)
	stats.Users.Inactive = stats.Users.Total - stats.Users.Active
	stats.Loans.OverdueRate = model.Rate(stats.Loans.Overdue, stats.Loans.Active+stats.Loans.Overdue)

	s.cache.Set(ctx, stats)
	return stats, nil
}
