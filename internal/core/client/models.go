package client

import (
	"time"
)

type Client struct {
	ID      int
	Limit   int
	Balance int
}

type NewTransaction struct {
	Value       int
	Type        string
	Description string
}

// Transaction is an applied ledger entry. ID and Date are assigned by the
// store when the entry is committed and never change afterwards.
type Transaction struct {
	ID          int64
	ClientID    int
	Value       int
	Type        string
	Description string
	Date        time.Time
}

// signedValue is the transaction's effect on the balance: credits add,
// debits subtract.
func (t Transaction) signedValue() int {
	if t.Type == "d" {
		return -t.Value
	}
	return t.Value
}

type Billing struct {
	Balance          int
	Limit            int
	Date             time.Time
	LastTransactions []Transaction
}
