package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/ledger"
)

type fakeServer struct {
	mu       sync.Mutex
	received []map[string]any
	requests []string
	status   int
	reply    string
	list     string
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/transaction" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		var m map[string]any
		_ = json.Unmarshal(body, &m)
		f.mu.Lock()
		f.received = append(f.received, m)
		f.requests = append(f.requests, r.Header.Get("X-Request-ID"))
		status, reply := f.status, f.reply
		f.mu.Unlock()
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, f.list)
	}
}

var coffee = core.Transaction{Name: "Coffee", Value: -5, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", time.Second, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestAppend(t *testing.T) {
	fs := &fakeServer{reply: `{"_id":"abc","name":"Coffee","value":-5}`}
	c := newTestClient(t, fs)

	if err := c.Append(context.Background(), coffee); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(fs.received) != 1 {
		t.Fatalf("server got %d requests", len(fs.received))
	}
	got := fs.received[0]
	if got["name"] != "Coffee" || got["value"] != float64(-5) || got["date"] != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected body %v", got)
	}
	if fs.requests[0] == "" {
		t.Fatalf("missing X-Request-ID header")
	}
}

func TestAppendFailures(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		reply    string
		rejected bool
	}{
		{"server error", http.StatusInternalServerError, "boom", false},
		{"bad gateway", http.StatusBadGateway, "", false},
		{"bad request", http.StatusBadRequest, `{"message":"Transaction validation failed"}`, true},
		{"validation in 200", http.StatusOK, `{"errors":{"name":{"message":"Enter a name for transaction"}},"message":"validation failed"}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, &fakeServer{status: tc.status, reply: tc.reply})
			err := c.Append(context.Background(), coffee)
			if !errors.Is(err, ledger.ErrRemoteUnavailable) {
				t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
			}
			if IsRejection(err) != tc.rejected {
				t.Fatalf("IsRejection = %v, want %v (%v)", IsRejection(err), tc.rejected, err)
			}
		})
	}
}

func TestAppendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, 200*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Append(context.Background(), coffee); !errors.Is(err, ledger.ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
}

func TestList(t *testing.T) {
	fs := &fakeServer{list: `[
		{"_id":"1","name":"Coffee","value":-5,"date":"2024-01-02T00:00:00.000Z","__v":0},
		{"_id":"2","name":"Salary","value":"100","date":"2024-01-01T00:00:00.000Z"}
	]`}
	c := newTestClient(t, fs)

	got, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d transactions", len(got))
	}
	if got[0].Value != -5 || got[1].Value != 100 {
		t.Fatalf("unexpected values %+v", got)
	}
	if got[1].ID() != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected date %s", got[1].ID())
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New("ftp://example.com", time.Second, nil); err == nil {
		t.Fatal("expected error for ftp scheme")
	}
}
