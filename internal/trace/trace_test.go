package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestEnsureReusesExistingID(t *testing.T) {
	ctx, id := Ensure(context.Background())
	if !strings.HasPrefix(id, "req_") || RequestID(ctx) != id {
		t.Fatalf("Ensure generated %q, context has %q", id, RequestID(ctx))
	}

	again, id2 := Ensure(ctx)
	if id2 != id || RequestID(again) != id {
		t.Fatalf("Ensure replaced existing id %q with %q", id, id2)
	}

	if RequestID(context.Background()) != "" {
		t.Fatal("empty context should have no request id")
	}
}

func TestTransportStampsRequestID(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get(HeaderRequestID))
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := NewTransport(nil)
	client := &http.Client{Transport: tr}

	ctx := WithRequestID(context.Background(), "req_fixed")
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/ok", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	req, _ = http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/fail", nil)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if len(got) != 2 || got[0] != "req_fixed" || !strings.HasPrefix(got[1], "req_") {
		t.Fatalf("request ids = %v", got)
	}
	m := tr.Metrics()
	if m.TotalRequests != 2 || m.FailedRequests != 1 {
		t.Fatalf("metrics = %+v", m)
	}
}
