package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/conduit-sdk/pkg/sdk/apierr"
	"github.com/conduit-lang/conduit-sdk/pkg/sdk/config"
	"github.com/conduit-lang/conduit-sdk/pkg/sdk/entity"
)

type article struct{ entity.Base }

func (*article) Type() string { return "article" }

type person struct{ entity.Base }

func (*person) Type() string { return "person" }

type file struct{ entity.Base }

func (*file) Type() string { return "file" }

func testRegistry(t *testing.T) *entity.Registry {
	t.Helper()
	reg := entity.NewRegistry()
	reg.MustRegister("article", func() entity.Entity { return &article{} }).
		MustRegister("person", func() entity.Entity { return &person{} }).
		MustRegister("file", func() entity.Entity { return &file{} })
	return reg
}

// backend is a fake conduit API that counts the requests it receives
type backend struct {
	*httptest.Server
	router chi.Router
	calls  atomic.Int32
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{router: chi.NewRouter()}
	b.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b.calls.Add(1)
			next.ServeHTTP(w, r)
		})
	})
	b.Server = httptest.NewServer(b.router)
	t.Cleanup(b.Close)
	return b
}

func (b *backend) Calls() int {
	return int(b.calls.Load())
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, body)
	}
}

func testConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.URL = url
	cfg.Timeout = 2 * time.Second
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = 2 * time.Millisecond
	return cfg
}

// listener records every error handed to the policy
type listener struct {
	mu     sync.Mutex
	errors []*apierr.Error
}

func (l *listener) listen(err *apierr.Error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, err)
}

func (l *listener) all() []*apierr.Error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*apierr.Error(nil), l.errors...)
}

func newTestService(t *testing.T, cfg *config.Config, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithRegistry(testRegistry(t))}, opts...)
	svc, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

const articleWithAuthor = `{
	"data": {
		"id": "1",
		"type": "article",
		"attributes": {"title": "A"},
		"relationships": {"author": {"data": {"id": "9", "type": "person"}}}
	},
	"included": [{"id": "9", "type": "person", "attributes": {"name": "Bob"}}]
}`

func decodeJSON(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
