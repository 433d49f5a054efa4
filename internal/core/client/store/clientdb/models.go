package clientdb

import (
	"time"

	"github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/core/client"
)

type dbClient struct {
	ID      int `db:"id"`
	Limit   int `db:"credit_limit"`
	Balance int `db:"balance"`
}

func toClient(c dbClient) client.Client {
	return client.Client(c)
}

type dbNewTransaction struct {
	ClientID    int    `db:"client_id"`
	Value       int    `db:"value"`
	Type        string `db:"type"`
	Description string `db:"description"`
}

func toDBTransaction(t client.Transaction) dbNewTransaction {
	dbt := dbNewTransaction{
		ClientID:    t.ClientID,
		Value:       t.Value,
		Type:        t.Type,
		Description: t.Description,
	}

	// Store debit as negative values to make
	// database SUM operations easier.
	if t.Type == "d" {
		dbt.Value = -t.Value
	}

	return dbt
}

// dbBillingRow is one row of the billing snapshot query. The transaction
// columns come from a LEFT JOIN and are NULL for clients with no history.
type dbBillingRow struct {
	Limit       int        `db:"credit_limit"`
	Balance     int        `db:"balance"`
	TxID        *int64     `db:"id"`
	Value       *int       `db:"value"`
	Type        *string    `db:"type"`
	Description *string    `db:"description"`
	Date        *time.Time `db:"date_created"`
}

func toBilling(clientID int, rows []dbBillingRow) client.Billing {
	b := client.Billing{
		Limit:            rows[0].Limit,
		Balance:          rows[0].Balance,
		LastTransactions: []client.Transaction{},
	}

	for _, r := range rows {
		if r.TxID == nil {
			continue
		}

		t := client.Transaction{
			ID:          *r.TxID,
			ClientID:    clientID,
			Value:       *r.Value,
			Type:        *r.Type,
			Description: *r.Description,
			Date:        *r.Date,
		}

		// Client transactions are always positive.
		// The transaction type is used as signal.
		if t.Value < 0 {
			t.Value = -t.Value
		}

		b.LastTransactions = append(b.LastTransactions, t)
	}

	return b
}
