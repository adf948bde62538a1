package aur

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zaurpkg/zaur/pkg/errors"
)

func testClient(serverURL string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 5 * time.Second},
		limiter: NewLimiter(5, 0),
		retry: RetryPolicy{
			MaxRetries:     2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     4 * time.Millisecond,
		},
		breaker:     newBreaker(),
		rpcURL:      serverURL + "/rpc/v5",
		snapshotURL: serverURL + "/cgit/aur.git/snapshot",
	}
}

func writeEnvelope(w http.ResponseWriter, pkgs []Package) {
	json.NewEncoder(w).Encode(map[string]any{
		"version":     5,
		"type":        "multiinfo",
		"resultcount": len(pkgs),
		"results":     pkgs,
	})
}

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rpc/v5/search/yay" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeEnvelope(w, []Package{{Name: "yay", Version: "12.0.0-1"}, {Name: "yay-bin", Version: "12.0.0-1"}})
	}))
	defer server.Close()

	pkgs, err := testClient(server.URL).Search(context.Background(), "yay")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(pkgs) != 2 || pkgs[0].Name != "yay" {
		t.Errorf("unexpected results: %+v", pkgs)
	}
}

func TestSearchRejectsShortQuery(t *testing.T) {
	c := testClient("http://unreachable.invalid")
	_, err := c.Search(context.Background(), "y")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestSearchSurfacesEnvelopeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"version":     5,
			"type":        "error",
			"resultcount": 0,
			"results":     []Package{},
			"error":       "Too many package results.",
		})
	}))
	defer server.Close()

	_, err := testClient(server.URL).Search(context.Background(), "aa")
	if !errors.Is(err, errors.ErrCodeRemote) {
		t.Fatalf("expected REMOTE_ERROR, got %v", err)
	}
	if !strings.Contains(err.Error(), "Too many package results.") {
		t.Errorf("server message missing from error: %v", err)
	}
}

func TestInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, []Package{{
			Name:        "paru",
			PackageBase: "paru",
			Version:     "2.0.4-1",
			Depends:     []string{"git", "pacman>6"},
			MakeDepends: []string{"cargo"},
		}})
	}))
	defer server.Close()

	pkg, err := testClient(server.URL).Info(context.Background(), "paru")
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if pkg.Name != "paru" {
		t.Errorf("name = %s, want paru", pkg.Name)
	}
	if deps := pkg.AllDepends(); len(deps) != 3 || deps[2] != "cargo" {
		t.Errorf("AllDepends = %v", deps)
	}
}

func TestInfoNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, nil)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Info(context.Background(), "no-such-package")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestInfoBatchChunking(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		args := r.URL.Query()["arg[]"]
		if len(args) > 50 {
			t.Errorf("chunk carries %d names, want <= 50", len(args))
		}
		pkgs := make([]Package, len(args))
		for i, name := range args {
			pkgs[i] = Package{Name: name, Version: "1-1"}
		}
		writeEnvelope(w, pkgs)
	}))
	defer server.Close()

	names := make([]string, 120)
	for i := range names {
		names[i] = fmt.Sprintf("pkg%03d", i)
	}

	pkgs, err := testClient(server.URL).InfoBatch(context.Background(), names)
	if err != nil {
		t.Fatalf("InfoBatch failed: %v", err)
	}
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Errorf("requests = %d, want 3 (chunks of 50, 50, 20)", got)
	}
	if len(pkgs) != 120 {
		t.Errorf("results = %d, want 120", len(pkgs))
	}
}

func TestInfoBatchChunkErrorAbortsWholeBatch(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		if n == 2 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, "bad request body preview")
			return
		}
		args := r.URL.Query()["arg[]"]
		pkgs := make([]Package, len(args))
		for i, name := range args {
			pkgs[i] = Package{Name: name}
		}
		writeEnvelope(w, pkgs)
	}))
	defer server.Close()

	names := make([]string, 120)
	for i := range names {
		names[i] = fmt.Sprintf("pkg%03d", i)
	}

	_, err := testClient(server.URL).InfoBatch(context.Background(), names)
	if !errors.Is(err, errors.ErrCodeRemote) {
		t.Fatalf("expected REMOTE_ERROR abort, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad request body preview") {
		t.Errorf("error should carry a body preview: %v", err)
	}
}

func TestDownloadSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cgit/aur.git/snapshot/paru.tar.gz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("tarball-bytes"))
	}))
	defer server.Close()

	data, err := testClient(server.URL).DownloadSnapshot(context.Background(), "paru")
	if err != nil {
		t.Fatalf("DownloadSnapshot failed: %v", err)
	}
	if string(data) != "tarball-bytes" {
		t.Errorf("unexpected payload: %q", data)
	}
}

func TestDownloadSnapshotFailsOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testClient(server.URL).DownloadSnapshot(context.Background(), "gone")
	if !errors.Is(err, errors.ErrCodeDownloadFailed) {
		t.Errorf("expected DOWNLOAD_FAILED, got %v", err)
	}
}

func TestQueryRetriesTransientServerError(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeEnvelope(w, []Package{{Name: "yay"}})
	}))
	defer server.Close()

	pkgs, err := testClient(server.URL).Search(context.Background(), "yay")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(pkgs) != 1 {
		t.Errorf("results = %d, want 1", len(pkgs))
	}
	if got := atomic.LoadInt32(&requests); got != 2 {
		t.Errorf("requests = %d, want 2 (one retry)", got)
	}
}

func TestOpenBreakerShortCircuitsRequests(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		writeEnvelope(w, []Package{{Name: "yay"}})
	}))
	defer server.Close()

	c := testClient(server.URL)
	c.breaker.Trip()

	_, err := c.Search(context.Background(), "yay")
	if err == nil {
		t.Fatal("expected an error while the circuit is open")
	}
	if !strings.Contains(err.Error(), "temporarily unavailable") {
		t.Errorf("expected the circuit-open message, got %v", err)
	}
	if got := atomic.LoadInt32(&requests); got != 0 {
		t.Errorf("requests = %d, want 0 (no traffic through an open circuit)", got)
	}
}
