package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"marketplace/internal/config"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "repository").Logger()

const (
	errDuplicateEntry  = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213

	txAttempts = 3
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Connect opens the MySQL pool, retrying while the server comes up.
func Connect(cfg config.DBConfig) (*sql.DB, error) {
	dsn := mysql.NewConfig()
	dsn.User = cfg.User
	dsn.Passwd = cfg.Pass
	dsn.Net = "tcp"
	dsn.Addr = cfg.Host + ":" + cfg.Port
	dsn.DBName = cfg.Name
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	dsn.ClientFoundRows = true

	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}

	var db *sql.DB
	var err error
	for i := 0; i < retries; i++ {
		db, err = sql.Open("mysql", dsn.FormatDSN())
		if err == nil {
			err = db.Ping()
			if err == nil {
				if cfg.MaxOpenConns > 0 {
					db.SetMaxOpenConns(cfg.MaxOpenConns)
				}
				logger.Info().Msgf("Connected to DB %s", cfg.Name)
				return db, nil
			}
			_ = db.Close()
		}
		logger.Warn().Err(err).Msgf("Retry %d: failed to connect to DB %s (%s:%s)", i+1, cfg.Name, cfg.Host, cfg.Port)
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to DB %s at %s:%s after retries: %w", cfg.Name, cfg.Host, cfg.Port, err)
}

// MySQLStore implements UnitOfWork over a single database.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) Repositories() Repositories {
	return bind(s.db)
}

func bind(q Querier) Repositories {
	return Repositories{
		Users:    NewUserRepository(q),
		Products: NewProductRepository(q),
		Stores:   NewStoreRepository(q),
		Orders:   NewOrderRepository(q),
		Carts:    NewCartRepository(q),
		FeeRules: NewFeeRuleRepository(q),
	}
}

// WithinTx runs fn in a transaction. Deadlocks and lock wait timeouts roll
// back and rerun fn from scratch.
func (s *MySQLStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isRetryable(err) || ctx.Err() != nil {
			return err
		}
		logger.Warn().Err(err).Msgf("Transaction attempt %d aborted, retrying", attempt)
	}
	return err
}

func (s *MySQLStore) runTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(ctx, bind(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Error().Err(rbErr).Msg("Error rolling back transaction")
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func mysqlErrorNumber(err error) uint16 {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number
	}
	return 0
}

func isDuplicate(err error) bool {
	return mysqlErrorNumber(err) == errDuplicateEntry
}

func isRetryable(err error) bool {
	switch mysqlErrorNumber(err) {
	case errDeadlock, errLockWaitTimeout:
		return true
	}
	return false
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
