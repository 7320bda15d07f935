package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// DBTX is the query surface shared by *pgxpool.Pool, pgx.Tx and pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is a DBTX that can open transactions.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Items        ItemRepository
	Reservations ReservationRepository
	Requests     RequestRepository
	Budget       BudgetRepository
}

// Store is the unit of work. Everything fn does through the repos it receives
// commits together or not at all.
type Store interface {
	Repos() Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

type pgStore struct {
	db TxBeginner
}

// NewStore returns a Postgres-backed Store.
func NewStore(db TxBeginner) Store {
	return &pgStore{db: db}
}

func newRepositories(db DBTX) Repositories {
	return Repositories{
		Items:        NewItemRepo(db),
		Reservations: NewReservationRepo(db),
		Requests:     NewRequestRepo(db),
		Budget:       NewBudgetRepo(db),
	}
}

func (s *pgStore) Repos() Repositories {
	return newRepositories(s.db)
}

func (s *pgStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(ctx, newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			log.Warn().Err(rbErr).Msg("Transaction rollback failed")
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
