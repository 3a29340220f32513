package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loan-service/library/config"
	"github.com/Astemirdum/library-loan-service/library/internal/handler"
	"github.com/Astemirdum/library-loan-service/library/internal/model"
	"github.com/Astemirdum/library-loan-service/library/internal/notify"
	"github.com/Astemirdum/library-loan-service/library/internal/repository"
	"github.com/Astemirdum/library-loan-service/library/internal/server"
	"github.com/Astemirdum/library-loan-service/library/internal/service"
	"github.com/Astemirdum/library-loan-service/library/migrations"
	"github.com/Astemirdum/library-loan-service/pkg/auth"
	cb "github.com/Astemirdum/library-loan-service/pkg/circuit_breaker"
	"github.com/Astemirdum/library-loan-service/pkg/kafka"
	"github.com/Astemirdum/library-loan-service/pkg/logger"
	"github.com/Astemirdum/library-loan-service/pkg/postgres"
	"github.com/Astemirdum/library-loan-service/pkg/redis"
)

type store interface {
	repository.CatalogRepository
	repository.UserRepository
	repository.LoanRepository
}

// deps owns every connection opened for one process.
type deps struct {
	log      *zap.Logger
	db       *sqlx.DB
	repo     store
	notifier *notify.Dispatcher
	closers  []func()
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func newDeps(ctx context.Context, cfg *config.Config, name string) (*deps, error) {
	d := &deps{log: logger.NewLogger(cfg.Log, name)}
	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		return nil, err
	}
	d.db = db
	d.closers = append(d.closers, func() { _ = db.Close() })

	repo, err := repository.NewRepository(db, d.log)
	if err != nil {
		d.close()
		return nil, err
	}
	d.repo = repo

	var transport notify.Notifier
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			d.close()
			return nil, err
		}
		d.closers = append(d.closers, func() {
			if err := producer.Close(); err != nil {
				d.log.Warn("producer.Close", zap.Error(err))
			}
		})
		breaker := cb.New(cfg.Notify.BreakerWindow, cfg.Notify.BreakerTimeout,
			cfg.Notify.BreakerFailRate, cfg.Notify.BreakerRecovery)
		transport = notify.NewKafkaNotifier(producer, cfg.Kafka.Topic, breaker, d.log)
	} else {
		d.log.Info("kafka is not configured, notifications go to the log")
		transport = notify.NewLogNotifier(d.log)
	}
	d.notifier = notify.NewDispatcher(transport, cfg.Notify.From, d.log)
	return d, nil
}

func (d *deps) loanService(cfg *config.Config) *service.LoanService {
	return service.NewLoanService(d.repo, d.notifier, cfg.Loan, d.log)
}

func Run(cfg *config.Config) {
	ctx := context.Background()
	d, err := newDeps(ctx, cfg, "library")
	if err != nil {
		logger.NewLogger(cfg.Log, "library").Fatal("init", zap.Error(err))
	}
	log := d.log

	pool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal("postgres.NewPool", zap.Error(err))
	}
	d.closers = append(d.closers, pool.Close)

	statsSvc, err := newStatsService(ctx, cfg, d, pool)
	if err != nil {
		log.Fatal("stats service", zap.Error(err))
	}

	signer := auth.NewSigner(cfg.Auth)
	h := handler.New(
		service.NewCatalogService(d.repo, log),
		service.NewUserService(d.repo, signer, cfg.Loan.MaxLoans, log),
		d.loanService(cfg),
		statsSvc,
		signer,
		log,
	)

	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	d.close()
	log.Info("Graceful shutdown finished")
}

func newStatsService(ctx context.Context, cfg *config.Config, d *deps, pool *pgxpool.Pool) (*service.StatsService, error) {
	statsRepo, err := repository.NewStatsRepository(pool, d.log)
	if err != nil {
		return nil, err
	}
	client, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		// the dashboard works without the cache
		d.log.Warn("redis unavailable, stats cache disabled", zap.Error(err))
		client = nil
	}
	if client != nil {
		d.closers = append(d.closers, func() { _ = client.Close() })
	}
	return service.NewStatsService(statsRepo, repository.NewStatsCache(client, cfg.Redis.TTL, d.log), d.log), nil
}

// Reminders runs the overdue batch and the due soon batch once.
// The error is non-nil only when the run could not start.
func Reminders(ctx context.Context, cfg *config.Config) (overdue, dueSoon model.ReminderReport, err error) {
	d, err := newDeps(ctx, cfg, "overdue")
	if err != nil {
		return overdue, dueSoon, err
	}
	defer d.close()

	svc := d.loanService(cfg)
	if overdue, err = svc.ProcessOverdueLoans(ctx); err != nil {
		return overdue, dueSoon, err
	}
	d.log.Info("overdue reminders",
		zap.Int("attempted", overdue.Attempted),
		zap.Int("delivered", overdue.Delivered),
		zap.Int("failed", overdue.Failed))

	if dueSoon, err = svc.RemindDueSoon(ctx); err != nil {
		return overdue, dueSoon, err
	}
	d.log.Info("due soon reminders",
		zap.Int("attempted", dueSoon.Attempted),
		zap.Int("delivered", dueSoon.Delivered),
		zap.Int("failed", dueSoon.Failed))
	return overdue, dueSoon, nil
}

type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Admin     bool
}

func (u NewUser) request() model.RegisterRequest {
	return model.RegisterRequest{
		Email:     u.Email,
		Password:  u.Password,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsAdmin:   u.Admin,
	}
}

// Validate applies the same rules as self registration.
func (u NewUser) Validate() error {
	return validator.New().Struct(u.request())
}

// CreateUser registers an account from the command line, optionally as admin.
func CreateUser(ctx context.Context, cfg *config.Config, u NewUser) (model.User, error) {
	log := logger.NewLogger(cfg.Log, "createuser")
	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		return model.User{}, err
	}
	defer db.Close()
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		return model.User{}, err
	}
	svc := service.NewUserService(repo, auth.NewSigner(cfg.Auth), cfg.Loan.MaxLoans, log)
	return svc.Register(ctx, u.request())
}
