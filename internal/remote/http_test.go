package remote

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stapos/stapos/internal/common"
	"github.com/stapos/stapos/internal/logging"
	"github.com/stapos/stapos/internal/query"
	"github.com/stapos/stapos/internal/store"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Select_EncodesFiltersAndDecodesRecords(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode([]store.Record{{"id": "p1", "name": "soap"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	recs, err := c.Select(context.Background(), "products", query.Request{
		Filters: []query.Filter{query.Eq("barcode", "BC-1")},
		OrderBy: "name",
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "p1", recs[0].ID())
	assert.Equal(t, "/rest/v1/products", gotPath)
	assert.Contains(t, gotQuery, "barcode=eq.BC-1")
	assert.Contains(t, gotQuery, "order=name.asc")
}

func TestClient_Select_RetriesTransientFailures(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode([]store.Record{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.Select(context.Background(), "sales", query.Request{})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestClient_SignIn_StoresSessionAndSendsBearer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			var creds map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			assert.Equal(t, "a@x.com", creds["email"])
			_ = json.NewEncoder(w).Encode(Session{
				AccessToken: "tok-1",
				User:        store.Record{"id": "u1", "email": "a@x.com"},
			})
		case "/rest/v1/products":
			gotAuth = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode([]store.Record{})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	ctx := context.Background()

	session, err := c.SignIn(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.User.ID())

	got, err := c.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok-1", got.AccessToken)

	_, err = c.Select(ctx, "products", query.Request{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestClient_ErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	ctx := context.Background()

	_, err := c.SignIn(ctx, "a@x.com", "bad")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = c.Insert(ctx, "products", store.Record{"id": "p1"})
	assert.ErrorIs(t, err, common.ErrUnavailable)
}

func TestClient_UnreachableHostIsUnavailable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", testLogger())
	err := c.Ping(context.Background())
	assert.ErrorIs(t, err, common.ErrUnavailable)
}

func TestClient_SignOut_DropsSessionEvenIfRemoteDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1/token" {
			_ = json.NewEncoder(w).Encode(Session{AccessToken: "t", User: store.Record{"id": "u1"}})
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	ctx := context.Background()
	_, err := c.SignIn(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	require.NoError(t, c.SignOut(ctx))
	got, err := c.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClient_Insert_ReturnsServerRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var rec store.Record
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
		rec["created_at"] = "2025-03-07T09:00:00.000Z"
		_ = json.NewEncoder(w).Encode(rec)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	out, err := c.Insert(context.Background(), "expenses", store.Record{"id": "e1", "amount": float64(9)})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-07T09:00:00.000Z", out["created_at"])
}

var _ Service = (*Client)(nil)
