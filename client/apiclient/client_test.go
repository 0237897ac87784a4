package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
)

type student struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func writeJSON(w http.ResponseWriter, code int, env core.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(env)
}

func TestGetInjectsBearerAndDecodesEnvelope(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, core.Envelope{
			Data: []student{{ID: "1", Name: "Paul"}},
			Meta: &core.Meta{Page: 2, PerPage: 10, Total: 11},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SignIn(Session{AccessToken: "tok"})

	res, err := Get[[]student](context.Background(), c, "/api/v1/students",
		WithParams(Params{"search": "pa", "page": 2, "gender": ""}))
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "page=2&search=pa", gotQuery)
	assert.Equal(t, []student{{ID: "1", Name: "Paul"}}, res.Data)
	require.NotNil(t, res.Meta)
	assert.Equal(t, 11, res.Meta.Total)
}

func TestErrorsCarryServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/conflict":
			writeJSON(w, http.StatusConflict, core.Envelope{Error: &core.ErrorBody{Message: "academic year is locked"}})
		case "/invalid":
			writeJSON(w, http.StatusBadRequest, core.Envelope{Error: &core.ErrorBody{
				Message: "invalid data", Fields: map[string]string{"email": "email must be a valid email address"},
			}})
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()
	c := New(srv.URL)
	ctx := context.Background()

	_, err := Post[student](ctx, c, "/conflict", WithBody(student{Name: "x"}))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "unexpected error: %v", err)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "academic year is locked", apiErr.Message())

	_, err = Put[student](ctx, c, "/invalid")
	require.True(t, errors.As(err, &apiErr), "unexpected error: %v", err)
	assert.Equal(t, "email must be a valid email address", apiErr.FieldErrors()["email"])

	_, err = Delete[struct{}](ctx, c, "/gateway")
	require.True(t, errors.As(err, &apiErr), "unexpected error: %v", err)
	assert.Equal(t, defaultErrorMessage, apiErr.Message())
}

func TestUnauthorizedSignsOutExactlyOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, core.Envelope{Error: &core.ErrorBody{Message: "invalid or expired jwt"}})
	}))
	defer srv.Close()

	var calls int32
	var redirect atomic.Value
	c := New(srv.URL, OnUnauthorized(func(to string) {
		atomic.AddInt32(&calls, 1)
		redirect.Store(to)
	}))
	c.SignIn(Session{AccessToken: "expired"})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Get[[]student](context.Background(), c, "/api/v1/students")
			assert.True(t, IsUnauthorized(err))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "/login", redirect.Load())
	_, ok := c.Session().Get()
	assert.False(t, ok, "session must be cleared")

	// a new session can be signed out again
	c.SignIn(Session{AccessToken: "fresh"})
	_, _ = Get[[]student](context.Background(), c, "/api/v1/students")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestStaleUnauthorizedIsIgnored(t *testing.T) {
	c := New("http://unused")
	var calls int
	c.onUnauthorized = func(string) { calls++ }
	c.SignIn(Session{AccessToken: "new"})

	c.handleUnauthorized("old")

	assert.Zero(t, calls)
	s, ok := c.Session().Get()
	assert.True(t, ok)
	assert.Equal(t, "new", s.AccessToken)
}

func TestParamsEncode(t *testing.T) {
	active := true
	p := Params{
		"search":    "a b",
		"is_active": &active,
		"roles":     []string{"teacher:", "admin:"},
		"from":      core.Date{},
		"to":        core.NewDate(2024, time.March, 1),
		"ordering":  []core.DBOrdering{{Field: "name", Ascending: true}, {Field: "created_at"}},
		"nil":       nil,
	}
	assert.Equal(t,
		"is_active=true&ordering=name%2C-created_at&roles=admin%3A&roles=teacher%3A&search=a+b&to=2024-03-01",
		p.Encode())
	assert.Equal(t, p.Encode(), p.With("nil", nil).Encode())
}
