package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loan-service/library/internal/model"
)

type StatsRepository interface {
	BookStats(ctx context.Context) (model.BookStats, error)
	UserStats(ctx context.Context) (model.UserStats, error)
	LoanStats(ctx context.Context, now time.Time) (model.LoanStats, error)
	LoansPerMonth(ctx context.Context, now time.Time, months int) ([]model.MonthCount, error)
	PopularCategories(ctx context.Context, limit int) ([]model.CategoryCount, error)
}

type statsRepository struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

func NewStatsRepository(db *pgxpool.Pool, log *zap.Logger) (*statsRepository, error) {
	return &statsRepository{
		db:  db,
		log: log.Named("stats-repo"),
	}, nil
}

func (r *statsRepository) BookStats(ctx context.Context) (model.BookStats, error) {
	const q = `
	select count(*),
	       count(*) filter (where available_copies > 0),
	       coalesce(sum(total_copies - available_copies), 0)
	from books`
	var s model.BookStats
	if err := r.db.QueryRow(ctx, q).Scan(&s.Total, &s.Available, &s.Borrowed); err != nil {
		return model.BookStats{}, errors.Wrap(err, "book stats")
	}
	return s, nil
}

func (r *statsRepository) UserStats(ctx context.Context) (model.UserStats, error) {
	const q = `select count(*), count(*) filter (where is_active) from users`
	var s model.UserStats
	if err := r.db.QueryRow(ctx, q).Scan(&s.Total, &s.Active); err != nil {
		return model.UserStats{}, errors.Wrap(err, "user stats")
	}
	return s, nil
}

func (r *statsRepository) LoanStats(ctx context.Context, now time.Time) (model.LoanStats, error) {
	const q = `
	select count(*) filter (where returned_at is null and due_date >= @now),
	       count(*) filter (where returned_at is null and due_date < @now),
	       count(*) filter (where borrowed_at >= date_trunc('month', @now::timestamptz))
	from loans`
	var s model.LoanStats
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"now": now}).
		Scan(&s.Active, &s.Overdue, &s.ThisMonth); err != nil {
		return model.LoanStats{}, errors.Wrap(err, "loan stats")
	}
	return s, nil
}

func (r *statsRepository) LoansPerMonth(ctx context.Context, now time.Time, months int) ([]model.MonthCount, error) {
	const q = `
	select to_char(m.month, 'YYYY-MM') as month, count(l.id) as count
	from generate_series(
	         date_trunc('month', @now::timestamptz) - make_interval(months => @months - 1),
	         date_trunc('month', @now::timestamptz),
	         interval '1 month') as m(month)
	left join loans l on date_trunc('month', l.borrowed_at) = m.month
	group by m.month
	order by m.month`
	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"now": now, "months": months})
	if err != nil {
		return nil, errors.Wrap(err, "loans per month")
	}
	defer rows.Close()
	counts, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.MonthCount])
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows")
	}
	return counts, nil
}

func (r *statsRepository) PopularCategories(ctx context.Context, limit int) ([]model.CategoryCount, error) {
	const q = `
	select c.name as name, count(l.id) as count
	from categories c
	join books b on b.category_id = c.id
	join loans l on l.book_id = b.id
	group by c.id, c.name
	order by count desc, c.name
	limit @limit`
	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": limit})
	if err != nil {
		return nil, errors.Wrap(err, "popular categories")
	}
	defer rows.Close()
	counts, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.CategoryCount])
	if err != nil {
		r.log.Error("PopularCategories", zap.Error(err))
		return nil, errors.Wrap(err, "pgx.CollectRows")
	}
	return counts, nil
}
