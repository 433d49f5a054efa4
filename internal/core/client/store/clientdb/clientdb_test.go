package clientdb

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/core/client"
	"github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/data/dbtest"
)

func TestQueryByID(t *testing.T) {
	ctx := context.Background()
	log, database, teardown := dbtest.NewUnit(t, dbtest.WithMigrations())
	t.Cleanup(teardown)

	store := NewStore(log, database)

	c, err := store.QueryByID(ctx, 1)
	if err != nil {
		t.Fatalf("failed to query client by id[%d]: %v", 1, err)
	}

	if c.ID != 1 {
		t.Errorf("wrong id, got %d want %v", c.ID, 1)
	}
	if c.Limit != 100000 {
		t.Errorf("wrong limit, got %d want %v", c.Limit, 100000)
	}
	if c.Balance != 0 {
		t.Errorf("wrong balance, got %d want %v", c.Balance, 0)
	}

	if _, err := store.QueryByID(ctx, 99); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("got %v want ErrNotFound", err)
	}
}

func TestQueryBilling(t *testing.T) {
	ctx := context.Background()
	log, database, teardown := dbtest.NewUnit(t, dbtest.WithMigrations())
	t.Cleanup(teardown)

	store := NewStore(log, database)

	clientID := 3
	for i := range 25 {
		if err := store.AddTransaction(ctx, genTransaction(clientID, i)); err != nil {
			t.Fatalf("failed to add transaction: %v", err)
		}
	}

	b, err := store.QueryBilling(ctx, clientID, 10)
	if err != nil {
		t.Fatalf("failed to query billing: %v", err)
	}
	if len(b.LastTransactions) != 10 {
		t.Fatalf("got %d transactions, want %d", len(b.LastTransactions), 10)
	}

	// Debits come back with positive values, newest first.
	first := b.LastTransactions[0]
	if first.Value != 750 {
		t.Errorf("wrong value got %d want %d", first.Value, 750)
	}
	if first.Type != "d" {
		t.Errorf("wrong type got %q want %q", first.Type, "d")
	}
	if first.Description != "desc24" {
		t.Errorf("wrong description got %q want %q", first.Description, "desc24")
	}
	for i := 1; i < len(b.LastTransactions); i++ {
		if b.LastTransactions[i].ID >= b.LastTransactions[i-1].ID {
			t.Fatalf("history out of order at %d", i)
		}
	}

	b, err = store.QueryBilling(ctx, 1, 10)
	if err != nil {
		t.Fatalf("failed to query billing: %v", err)
	}
	if len(b.LastTransactions) != 0 {
		t.Errorf("got %d should return 0 transactions", len(b.LastTransactions))
	}

	if _, err := store.QueryBilling(ctx, 99, 10); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("got %v want ErrNotFound", err)
	}
}

func TestUpdateBalance(t *testing.T) {
	ctx := context.Background()
	log, database, teardown := dbtest.NewUnit(t, dbtest.WithMigrations())
	t.Cleanup(teardown)

	store := NewStore(log, database)

	if err := store.UpdateBalance(ctx, 1, -50000); err != nil {
		t.Fatalf("failed to update balance: %v", err)
	}

	c, err := store.QueryByID(ctx, 1)
	if err != nil {
		t.Fatalf("failed to query client: %v", err)
	}
	if c.Balance != -50000 {
		t.Errorf("wrong balance, got %d want %d", c.Balance, -50000)
	}

	// The schema's CHECK constraint backstops the core's limit rule.
	err = store.UpdateBalance(ctx, 1, -100001)
	if !errors.Is(err, client.ErrTransactionDenied) {
		t.Fatalf("got %v want ErrTransactionDenied", err)
	}
}

func TestExecUnderTxRollback(t *testing.T) {
	ctx := context.Background()
	log, database, teardown := dbtest.NewUnit(t, dbtest.WithMigrations())
	t.Cleanup(teardown)

	store := NewStore(log, database)

	errBoom := errors.New("boom")
	err := store.ExecUnderTx(ctx, func(tx client.Store) error {
		if err := tx.UpdateBalance(ctx, 2, -1000); err != nil {
			return err
		}
		if err := tx.AddTransaction(ctx, genTransaction(2, 0)); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("got %v want errBoom", err)
	}

	c, err := store.QueryByID(ctx, 2)
	if err != nil {
		t.Fatalf("failed to query client: %v", err)
	}
	if c.Balance != 0 {
		t.Errorf("rolled back tx changed balance: got %d want 0", c.Balance)
	}

	b, err := store.QueryBilling(ctx, 2, 10)
	if err != nil {
		t.Fatalf("failed to query billing: %v", err)
	}
	if len(b.LastTransactions) != 0 {
		t.Errorf("rolled back tx left %d transactions", len(b.LastTransactions))
	}
}

func genTransaction(clientID, i int) client.Transaction {
	return client.Transaction{
		ClientID:    clientID,
		Value:       750,
		Type:        "d",
		Description: fmt.Sprintf("desc%d", i),
	}
}
