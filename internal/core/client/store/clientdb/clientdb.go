// Package clientdb provides a Postgres implementation of the client.Store
// interface.
package clientdb

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/core/client"
	db "github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/data/dbsql/pgx"
)

type Store struct {
	log *slog.Logger
	db  db.DB
}

func NewStore(log *slog.Logger, database db.DB) *Store {
	return &Store{
		log: log,
		db:  database,
	}
}

func (s *Store) ExecUnderTx(ctx context.Context, fn func(txStore client.Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(NewStore(s.log, tx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) QueryByID(ctx context.Context, clientID int) (client.Client, error) {
	const q = `
	SELECT
		id,
		credit_limit,
		balance
	FROM
		clients
	WHERE
		id = @id`

	return s.queryClient(ctx, clientID, q)
}

// QueryByIDForUpdate takes the client's row lock. Callers must be inside
// ExecUnderTx; the lock is released when the transaction ends.
func (s *Store) QueryByIDForUpdate(ctx context.Context, clientID int) (client.Client, error) {
	const q = `
	SELECT
		id,
		credit_limit,
		balance
	FROM
		clients
	WHERE
		id = @id
	FOR UPDATE`

	return s.queryClient(ctx, clientID, q)
}

func (s *Store) queryClient(ctx context.Context, clientID int, q string) (client.Client, error) {
	data := struct {
		ID int `db:"id"`
	}{
		ID: clientID,
	}

	c, err := db.NamedQueryStruct[dbClient](ctx, s.log, s.db, q, data)
	if err != nil {
		if errors.Is(err, db.ErrDBNotFound) {
			return client.Client{}, client.ErrNotFound
		}
		return client.Client{}, err
	}

	return toClient(c), nil
}

func (s *Store) UpdateBalance(ctx context.Context, clientID int, balance int) error {
	data := struct {
		ID      int `db:"id"`
		Balance int `db:"balance"`
	}{
		ID:      clientID,
		Balance: balance,
	}

	const q = `
	UPDATE clients SET
		balance = @balance
	WHERE
		id = @id`

	if err := db.NamedExec(ctx, s.log, s.db, q, data); err != nil {
		// The schema rechecks balance >= -credit_limit.
		if errors.Is(err, db.ErrDBCheckViolation) {
			return client.ErrTransactionDenied
		}
		return err
	}

	return nil
}

func (s *Store) AddTransaction(ctx context.Context, t client.Transaction) error {
	// clock_timestamp() instead of now(): now() is frozen at BEGIN, which
	// runs before the client's row lock is taken, so it could disagree with
	// the insertion order. clock_timestamp() is read at statement execution,
	// under the held lock.
	const q = `
	INSERT INTO transactions
		(client_id, value, type, description, date_created)
	VALUES
		(@client_id, @value, @type, @description, clock_timestamp())`

	return db.NamedExec(ctx, s.log, s.db, q, toDBTransaction(t))
}

// QueryBilling runs a single statement so balance and history come from one
// snapshot, without locking the client row.
func (s *Store) QueryBilling(ctx context.Context, clientID int, n int) (client.Billing, error) {
	data := struct {
		ID int `db:"id"`
		N  int `db:"n"`
	}{
		ID: clientID,
		N:  n,
	}

	const q = `
	SELECT
		c.credit_limit,
		c.balance,
		t.id,
		t.value,
		t.type,
		t.description,
		t.date_created
	FROM
		clients AS c
		LEFT JOIN LATERAL (
			SELECT
				id,
				value,
				type,
				description,
				date_created
			FROM
				transactions
			WHERE
				client_id = c.id
			ORDER BY
				id DESC
			LIMIT @n
		) AS t ON true
	WHERE
		c.id = @id
	ORDER BY
		t.id DESC`

	rows, err := db.NamedQuerySlice[dbBillingRow](ctx, s.log, s.db, q, data)
	if err != nil {
		return client.Billing{}, err
	}
	if len(rows) == 0 {
		return client.Billing{}, client.ErrNotFound
	}

	return toBilling(clientID, rows), nil
}
