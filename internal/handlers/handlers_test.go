package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/core/client"
	"github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/core/client/store/clientdb"
	"github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/data/dbtest"
	"go.opentelemetry.io/otel"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log, db, teardown := dbtest.NewUnit(t, dbtest.WithMigrations())
	t.Cleanup(teardown)

	server := NewServer(log, client.NewCore(clientdb.NewStore(log, db)))
	httpServer := httptest.NewServer(APIMux(server, otel.GetTracerProvider().Tracer("")))
	t.Cleanup(httpServer.Close)

	return httpServer
}

func postTransaction(t *testing.T, url string, id string, body string) *http.Response {
	t.Helper()

	path := url + fmt.Sprintf("/clientes/%s/transacoes", id)
	resp, err := http.Post(path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	return resp
}

func TestTransactions(t *testing.T) {
	httpServer := newTestServer(t)

	resp := postTransaction(t, httpServer.URL, "1", `{"valor":1000,"tipo":"c","descricao":"descricao"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got wrong status code: %v", resp.StatusCode)
	}

	var tresp TransactionsResp
	if err := json.NewDecoder(resp.Body).Decode(&tresp); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if tresp.Limit != 100000 {
		t.Errorf("got limit %d, want %d", tresp.Limit, 100000)
	}
	if tresp.Balance != 1000 {
		t.Errorf("got balance %d, want %d", tresp.Balance, 1000)
	}
}

func TestTransactionsID(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		wantedCode int
	}{
		{"invalid string", "not_number", 404},
		{"invalid id", "-1", 404},
		{"id not found", "6", 404},
		{"good id", "1", 200},
	}

	httpServer := newTestServer(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := postTransaction(t, httpServer.URL, tt.id, `{"valor":1000,"tipo":"c","descricao":"descricao"}`)
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantedCode {
				t.Fatalf("got wrong status code: %v, want: %v", resp.StatusCode, tt.wantedCode)
			}
		})
	}
}

func TestTransactionsRejections(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantedCode int
	}{
		{"debit past the limit", `{"valor":90000,"tipo":"d","descricao":"descricao"}`, 422},
		{"zero value", `{"valor":0,"tipo":"c","descricao":"descricao"}`, 400},
		{"bad type", `{"valor":100,"tipo":"x","descricao":"descricao"}`, 400},
		{"empty description", `{"valor":100,"tipo":"c","descricao":""}`, 400},
		{"long description", `{"valor":100,"tipo":"c","descricao":"muitolonga!"}`, 400},
		{"fractional value", `{"valor":1.2,"tipo":"c","descricao":"descricao"}`, 400},
		{"not json", `valor=100`, 400},
	}

	// Client 2 has limit 80000.
	httpServer := newTestServer(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postTransaction(t, httpServer.URL, "2", tt.body)
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantedCode {
				t.Fatalf("got wrong status code: %v, want: %v", resp.StatusCode, tt.wantedCode)
			}
		})
	}

	// None of the rejected requests may have touched the balance.
	resp := postTransaction(t, httpServer.URL, "2", `{"valor":1,"tipo":"c","descricao":"chk"}`)
	defer resp.Body.Close()

	var tresp TransactionsResp
	if err := json.NewDecoder(resp.Body).Decode(&tresp); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if tresp.Balance != 1 {
		t.Fatalf("got balance %d, want %d", tresp.Balance, 1)
	}
}

func TestBillingEndpoint(t *testing.T) {
	httpServer := newTestServer(t)

	for _, body := range []string{
		`{"valor":1000,"tipo":"c","descricao":"salario"}`,
		`{"valor":300,"tipo":"d","descricao":"almoco"}`,
	} {
		resp := postTransaction(t, httpServer.URL, "1", body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("got wrong status code: %v", resp.StatusCode)
		}
	}

	req, err := http.NewRequest(http.MethodGet, httpServer.URL+"/clientes/1/extrato", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got wrong status code: %v", resp.StatusCode)
	}

	var bresp BillingResp
	if err := json.NewDecoder(resp.Body).Decode(&bresp); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if bresp.Balance.Total != 700 {
		t.Errorf("got total %d, want %d", bresp.Balance.Total, 700)
	}
	if bresp.Balance.Limit != 100000 {
		t.Errorf("got limit %d, want %d", bresp.Balance.Limit, 100000)
	}
	if bresp.Balance.Date.IsZero() {
		t.Error("statement date is zero")
	}
	if len(bresp.LastTransactions) != 2 {
		t.Fatalf("got %d transactions, want %d", len(bresp.LastTransactions), 2)
	}
	if bresp.LastTransactions[0].Description != "almoco" {
		t.Errorf("history not newest first: got %q", bresp.LastTransactions[0].Description)
	}

	req.URL.Path = "/clientes/99/extrato"
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("got wrong status code: %v, want: %v", resp2.StatusCode, http.StatusNotFound)
	}
}
