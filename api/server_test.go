package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextforge/recall/internal/ingest"
	"github.com/contextforge/recall/internal/log"
)

func newTestServer() *Server {
	return NewServer(
		&fakePinger{},
		&fakeIngester{result: ingest.Result{ChunksCreated: 1}},
		&fakePassageSearcher{},
		RetrievalDefaults{},
		log.NewNop(),
	)
}

func TestServer_Routes(t *testing.T) {
	handler := newTestServer().Handler()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"ready", http.MethodGet, "/ready", "", http.StatusOK},
		{"ingest", http.MethodPost, "/api/documents", `{"text":"doc"}`, http.StatusCreated},
		{"retrieve", http.MethodPost, "/api/retrieve", `{"query":"q"}`, http.StatusOK},
		{"unknown path", http.MethodGet, "/api/unknown", "", http.StatusNotFound},
		{"wrong method on documents", http.MethodGet, "/api/documents", "", http.StatusMethodNotAllowed},
		{"wrong method on retrieve", http.MethodGet, "/api/retrieve", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body *strings.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestServer_RunGracefulShutdown(t *testing.T) {
	srv := newTestServer()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx, "127.0.0.1:0")
	}()

	// Let the listener come up, then signal shutdown.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
