package possync_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmdatafocus/pitix_pos/possync"
)

func newRemoteAgainst(t *testing.T, srv *httptest.Server) possync.RemoteStore {
	t.Helper()
	t.Setenv("POS_REMOTE_BASE_URL", srv.URL)
	t.Setenv("POS_REMOTE_API_KEY", "test-key")
	t.Setenv("POS_REMOTE_API_KEY_HEADER", "")
	remote, err := possync.NewHTTPRemote()
	if err != nil {
		t.Fatalf("NewHTTPRemote: %v", err)
	}
	return remote
}

func TestRemoteRequiresAPIKey(t *testing.T) {
	t.Setenv("POS_REMOTE_API_KEY", "")
	if _, err := possync.NewHTTPRemote(); err == nil {
		t.Fatalf("expected error with empty POS_REMOTE_API_KEY")
	}
}

func TestUpsertSendsKeyAndBody(t *testing.T) {
	var gotMethod, gotPath, gotKey, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	remote := newRemoteAgainst(t, srv)
	if err := remote.Upsert(context.Background(), "products", "p-1", []byte(`{"id":"p-1"}`)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/v1/products/p-1" {
		t.Fatalf("wrong request: %s %s", gotMethod, gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("API key header missing, got %q", gotKey)
	}
	if gotBody != `{"id":"p-1"}` {
		t.Fatalf("body mismatch: %s", gotBody)
	}
}

func TestDeleteTreats404AsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	remote := newRemoteAgainst(t, srv)
	if err := remote.Delete(context.Background(), "users", "u-gone"); err != nil {
		t.Fatalf("deleting an absent record should succeed: %v", err)
	}
}

func TestServerErrorCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`unknown column "barcode" in field list`))
	}))
	defer srv.Close()

	remote := newRemoteAgainst(t, srv)
	err := remote.Upsert(context.Background(), "products", "p-1", []byte(`{}`))
	if err == nil {
		t.Fatalf("expected error")
	}
	var rerr *possync.RemoteError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RemoteError, got %T", err)
	}
	if rerr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", rerr.StatusCode)
	}
	if !rerr.SchemaMismatch() {
		t.Fatalf("missing-column response should classify as schema mismatch: %+v", rerr)
	}
}

func TestGenericFailureIsNotSchemaMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	remote := newRemoteAgainst(t, srv)
	err := remote.Ping(context.Background())
	var rerr *possync.RemoteError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if rerr.SchemaMismatch() {
		t.Fatalf("502 must not classify as schema mismatch")
	}
}

func TestSelectAllParsesBothEnvelopes(t *testing.T) {
	payloads := map[string]string{
		"/v1/users":    `{"data":[{"id":"u-1"},{"id":"u-2"}]}`,
		"/v1/products": `{"items":[{"id":"p-1"}]}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payloads[r.URL.Path]))
	}))
	defer srv.Close()

	remote := newRemoteAgainst(t, srv)
	users, err := remote.SelectAll(context.Background(), "users")
	if err != nil {
		t.Fatalf("SelectAll users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("users = %d, want 2", len(users))
	}
	products, err := remote.SelectAll(context.Background(), "products")
	if err != nil {
		t.Fatalf("SelectAll products: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("products = %d, want 1", len(products))
	}
}
