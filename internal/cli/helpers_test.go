package cli

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/ledger/memory"
)

type wireTransaction struct {
	Name  string    `json:"name"`
	Value int64     `json:"value"`
	Date  time.Time `json:"date"`
}

// newLedgerServer serves the budget REST API from an in-process ledger that
// outlives individual commands, and points the CLI at it.
func newLedgerServer(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/transaction", func(w http.ResponseWriter, r *http.Request) {
		var in wireTransaction
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err := store.Append(r.Context(), core.Transaction{Name: in.Name, Value: in.Value, Date: in.Date})
		switch {
		case errors.Is(err, ledger.ErrRemoteUnavailable):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		case err != nil:
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			w.WriteHeader(http.StatusCreated)
		}
	})
	mux.HandleFunc("GET /api/transaction", func(w http.ResponseWriter, r *http.Request) {
		items, err := store.List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		out := make([]wireTransaction, 0, len(items))
		for _, tx := range items {
			out = append(out, wireTransaction{Name: tx.Name, Value: tx.Value, Date: tx.Date})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv("LEDGER_BACKEND", "http")
	t.Setenv("LEDGER_URL", srv.URL)
	return store
}
