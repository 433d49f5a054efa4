// Package client holds the ledger business rules: applying credit and debit
// transactions without ever letting a client's balance fall below -limit, and
// producing consistent statements of balance plus recent history.
package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/web"
)

// Set of errors for client API.
var (
	ErrNotFound          = errors.New("client not found")
	ErrInvalidArgument   = errors.New("client invalid argument")
	ErrInternal          = errors.New("client internal error")
	ErrTransactionDenied = errors.New("client transaction denied")
)

// maxStatementEntries bounds the history returned by Billing.
const maxStatementEntries = 10

// Store is used to persist client's data.
type Store interface {
	// ExecUnderTx executes the fn function under a transaction. If fn returns
	// an error the transaction is rolled back and the error is returned.
	ExecUnderTx(ctx context.Context, fn func(tx Store) error) error

	QueryByID(ctx context.Context, clientID int) (Client, error)

	// QueryByIDForUpdate locks the client row until the enclosing transaction
	// ends, serializing concurrent applies against the same client.
	QueryByIDForUpdate(ctx context.Context, clientID int) (Client, error)

	UpdateBalance(ctx context.Context, clientID int, balance int) error
	AddTransaction(ctx context.Context, t Transaction) error

	// QueryBilling reads balance, limit and the last n transactions as one
	// consistent snapshot.
	QueryBilling(ctx context.Context, clientID int, n int) (Billing, error)
}

// Locker serializes applies for one client across service instances. The
// store's row lock alone guarantees correctness; a Locker keeps multiple
// instances from queueing on the database row. Implementations own the
// release outcome: a failed unlock must be reported by the Locker itself.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Core deals with client's business logic.
type Core struct {
	store  Store
	locker Locker
}

func NewCore(store Store, opts ...Option) *Core {
	c := &Core{store: store}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Option func(*Core)

// WithLocker makes the Core hold the distributed per-client lock while
// applying a transaction.
func WithLocker(l Locker) Option {
	return func(c *Core) { c.locker = l }
}

// AddTransaction applies nt against the client's balance. Credits always
// succeed; a debit that would push the balance below -limit fails with
// ErrTransactionDenied and leaves no trace. On success it returns the client
// carrying the new balance.
func (c *Core) AddTransaction(ctx context.Context, clientID int, nt NewTransaction) (Client, error) {
	if err := nt.validate(); err != nil {
		return Client{}, err
	}

	if c.locker != nil {
		unlock, err := c.locker.Lock(ctx, "rinha:client:"+strconv.Itoa(clientID))
		if err != nil {
			return Client{}, fmt.Errorf("acquiring client lock: %w", err)
		}
		defer unlock()
	}

	t := Transaction{
		ClientID:    clientID,
		Value:       nt.Value,
		Type:        nt.Type,
		Description: nt.Description,
	}

	var updated Client
	fn := func(tx Store) error {
		cl, err := tx.QueryByIDForUpdate(ctx, clientID)
		if err != nil {
			return err
		}

		newBalance := cl.Balance + t.signedValue()
		if t.Type == "d" && newBalance < -cl.Limit {
			return ErrTransactionDenied
		}

		if err := tx.UpdateBalance(ctx, clientID, newBalance); err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}

		if err := tx.AddTransaction(ctx, t); err != nil {
			return fmt.Errorf("failed to add transaction: %w", err)
		}

		updated = Client{ID: cl.ID, Limit: cl.Limit, Balance: newBalance}
		return nil
	}

	if err := c.store.ExecUnderTx(ctx, fn); err != nil {
		return Client{}, err
	}

	return updated, nil
}

// Billing returns the client's balance and its most recent transactions,
// newest first, as of a single instant. Calling it never blocks applies
// beyond the snapshot read and never mutates state.
func (c *Core) Billing(ctx context.Context, clientID int) (Billing, error) {
	b, err := c.store.QueryBilling(ctx, clientID, maxStatementEntries)
	if err != nil {
		return Billing{}, err
	}

	b.Date = web.GetTime(ctx)
	return b, nil
}

func (c *Core) QueryByID(ctx context.Context, clientID int) (Client, error) {
	return c.store.QueryByID(ctx, clientID)
}

func (nt NewTransaction) validate() error {
	switch {
	case nt.Value <= 0:
		return ErrInvalidArgument
	case nt.Type != "c" && nt.Type != "d":
		return ErrInvalidArgument
	case len(nt.Description) < 1 || len(nt.Description) > 10:
		return ErrInvalidArgument
	}

	return nil
}
