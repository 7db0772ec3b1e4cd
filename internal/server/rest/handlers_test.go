package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stapos/stapos/internal/common"
	"github.com/stapos/stapos/internal/logging"
	"github.com/stapos/stapos/internal/query"
	"github.com/stapos/stapos/internal/remote"
	"github.com/stapos/stapos/internal/server/auth"
	"github.com/stapos/stapos/internal/server/config"
	"github.com/stapos/stapos/internal/server/models"
	"github.com/stapos/stapos/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers struct {
	users map[string]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*models.User)}
}

func (f *fakeUsers) Create(ctx context.Context, user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsers) Update(ctx context.Context, user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsers) StampLastLogin(ctx context.Context, id string, at time.Time) error {
	if u, ok := f.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

type fakeRecords struct {
	data map[string][]store.Record
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{data: make(map[string][]store.Record)}
}

func matchEq(rec store.Record, filters []query.Filter) bool {
	for _, f := range filters {
		if f.Kind != query.KindEq || rec[f.Field] != f.Value {
			return false
		}
	}
	return true
}

func (f *fakeRecords) List(ctx context.Context, collection string, req query.Request) ([]store.Record, error) {
	out := []store.Record{}
	for _, rec := range f.data[collection] {
		if matchEq(rec, req.Filters) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecords) Upsert(ctx context.Context, collection string, rec store.Record) (store.Record, error) {
	for i, existing := range f.data[collection] {
		if existing.ID() == rec.ID() {
			f.data[collection][i] = rec
			return rec, nil
		}
	}
	f.data[collection] = append(f.data[collection], rec)
	return rec, nil
}

func (f *fakeRecords) Update(ctx context.Context, collection string, patch store.Record, filters []query.Filter) error {
	for _, rec := range f.data[collection] {
		if matchEq(rec, filters) {
			rec.Merge(patch)
		}
	}
	return nil
}

func (f *fakeRecords) Delete(ctx context.Context, collection string, filters []query.Filter) error {
	kept := f.data[collection][:0]
	for _, rec := range f.data[collection] {
		if !matchEq(rec, filters) {
			kept = append(kept, rec)
		}
	}
	f.data[collection] = kept
	return nil
}

func newTestServer(t *testing.T) (*Server, *fakeUsers, *fakeRecords) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	users := newFakeUsers()
	records := newFakeRecords()
	return NewServer(cfg, users, records, log), users, records
}

func do(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Routes().ServeHTTP(w, req)
	return w
}

func TestSignUpAndSignIn(t *testing.T) {
	s, _, records := newTestServer(t)

	w := do(t, s, http.MethodPost, "/auth/v1/signup", "", credentials{Email: "a@x.com", Password: "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	var sess remote.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	assert.NotEmpty(t, sess.AccessToken)
	assert.Equal(t, "a@x.com", sess.User["email"])
	require.Len(t, records.data["user_profiles"], 1)

	// Duplicate address is rejected.
	w = do(t, s, http.MethodPost, "/auth/v1/signup", "", credentials{Email: "a@x.com", Password: "pw"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, s, http.MethodPost, "/auth/v1/token", "", credentials{Email: "a@x.com", Password: "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	assert.Contains(t, sess.User, "last_login")

	w = do(t, s, http.MethodPost, "/auth/v1/token", "", credentials{Email: "a@x.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListRecords_OpenAndFiltered(t *testing.T) {
	s, _, records := newTestServer(t)
	records.data["products"] = []store.Record{
		{"id": "p1", "name": "soap"},
		{"id": "p2", "name": "rope"},
	}

	w := do(t, s, http.MethodGet, "/rest/v1/products?name=eq.rope", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recs []store.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "p2", recs[0].ID())

	w = do(t, s, http.MethodGet, "/rest/v1/nonsense", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWritesRequireToken(t *testing.T) {
	s, _, records := newTestServer(t)

	w := do(t, s, http.MethodPost, "/rest/v1/products", "", store.Record{"id": "p1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := auth.GenerateToken("u1", []byte(s.cfg.SecretKey), time.Minute)
	require.NoError(t, err)

	w = do(t, s, http.MethodPost, "/rest/v1/products", token, store.Record{"id": "p1", "name": "soap"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, records.data["products"], 1)

	w = do(t, s, http.MethodPatch, "/rest/v1/products?id=eq.p1", token, store.Record{"name": "rope"})
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "rope", records.data["products"][0]["name"])

	w = do(t, s, http.MethodDelete, "/rest/v1/products?id=eq.p1", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, records.data["products"])
}

func TestUpdateUser(t *testing.T) {
	s, users, records := newTestServer(t)
	hash, err := auth.HashPassword("pw")
	require.NoError(t, err)
	users.users["u1"] = &models.User{ID: "u1", Email: "a@x.com", PasswordHash: hash, CreatedAt: time.Now()}
	records.data["user_profiles"] = []store.Record{{"id": "u1", "email": "a@x.com"}}

	token, err := auth.GenerateToken("u1", []byte(s.cfg.SecretKey), time.Minute)
	require.NoError(t, err)

	w := do(t, s, http.MethodPut, "/auth/v1/user", token, store.Record{"full_name": "Ada", "password": "newpw"})
	require.Equal(t, http.StatusOK, w.Code)
	var rec store.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "Ada", rec["full_name"])
	assert.True(t, auth.CheckPassword(users.users["u1"].PasswordHash, "newpw"))
}
