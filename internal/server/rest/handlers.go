package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stapos/stapos/internal/common"
	"github.com/stapos/stapos/internal/query"
	"github.com/stapos/stapos/internal/remote"
	"github.com/stapos/stapos/internal/server/auth"
	"github.com/stapos/stapos/internal/server/models"
	"github.com/stapos/stapos/internal/store"
)

type credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) session(user *models.User) (*remote.Session, error) {
	token, err := auth.GenerateToken(user.ID, []byte(s.cfg.SecretKey), s.cfg.AccessTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	rec := store.Record{
		"id":         user.ID,
		"email":      user.Email,
		"created_at": common.FormatTimestamp(user.CreatedAt),
	}
	if user.LastLogin != nil {
		rec["last_login"] = common.FormatTimestamp(*user.LastLogin)
	}
	return &remote.Session{AccessToken: token, User: rec}, nil
}

func (s *Server) signUp(c *gin.Context) {
	var creds credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.users.GetByEmail(c.Request.Context(), creds.Email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	} else if !errors.Is(err, common.ErrNotFound) {
		s.fail(c, err)
		return
	}

	hash, err := auth.HashPassword(creds.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	user := &models.User{
		ID:           s.newID(),
		Email:        creds.Email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(c.Request.Context(), user); err != nil {
		s.fail(c, err)
		return
	}

	// Each account gets a profile document, so terminals can cache it
	// and resolve the email while offline.
	profile := store.Record{
		"id":         user.ID,
		"email":      user.Email,
		"created_at": common.FormatTimestamp(user.CreatedAt),
	}
	if _, err := s.records.Upsert(c.Request.Context(), "user_profiles", profile); err != nil {
		s.fail(c, err)
		return
	}

	sess, err := s.session(user)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) signIn(c *gin.Context) {
	var creds credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.users.GetByEmail(c.Request.Context(), creds.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		s.fail(c, err)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, creds.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	at := s.now()
	if err := s.users.StampLastLogin(c.Request.Context(), user.ID, at); err != nil {
		s.fail(c, err)
		return
	}
	user.LastLogin = &at

	sess, err := s.session(user)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) signOut(c *gin.Context) {
	// Tokens are stateless, sign-out is an acknowledgement.
	c.Status(http.StatusNoContent)
}

func (s *Server) updateUser(c *gin.Context) {
	var patch store.Record
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.users.GetByID(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if email, ok := patch["email"].(string); ok {
		user.Email = email
	}
	if pw, ok := patch["password"].(string); ok {
		hash, err := auth.HashPassword(pw)
		if err != nil {
			s.fail(c, err)
			return
		}
		user.PasswordHash = hash
		delete(patch, "password")
	}
	if err := s.users.Update(c.Request.Context(), user); err != nil {
		s.fail(c, err)
		return
	}
	if len(patch) > 0 {
		filters := []query.Filter{query.Eq("id", user.ID)}
		if err := s.records.Update(c.Request.Context(), "user_profiles", patch, filters); err != nil {
			s.fail(c, err)
			return
		}
	}

	recs, err := s.records.List(c.Request.Context(), "user_profiles",
		query.Request{Filters: []query.Filter{query.Eq("id", user.ID)}})
	if err != nil {
		s.fail(c, err)
		return
	}
	if len(recs) > 0 {
		c.JSON(http.StatusOK, recs[0])
		return
	}
	c.JSON(http.StatusOK, store.Record{"id": user.ID, "email": user.Email})
}

func (s *Server) table(c *gin.Context) (string, bool) {
	table := c.Param("table")
	if !store.Known(table) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown collection"})
		return "", false
	}
	return table, true
}

func (s *Server) listRecords(c *gin.Context) {
	table, ok := s.table(c)
	if !ok {
		return
	}
	req, err := remote.DecodeQuery(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	recs, err := s.records.List(c.Request.Context(), table, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (s *Server) upsertRecord(c *gin.Context) {
	table, ok := s.table(c)
	if !ok {
		return
	}
	var rec store.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if rec.ID() == "" {
		rec["id"] = s.newID()
	}
	out, err := s.records.Upsert(c.Request.Context(), table, rec)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) updateRecords(c *gin.Context) {
	table, ok := s.table(c)
	if !ok {
		return
	}
	req, err := remote.DecodeQuery(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var patch store.Record
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.records.Update(c.Request.Context(), table, patch, req.Filters); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteRecords(c *gin.Context) {
	table, ok := s.table(c)
	if !ok {
		return
	}
	req, err := remote.DecodeQuery(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.records.Delete(c.Request.Context(), table, req.Filters); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) fail(c *gin.Context, err error) {
	s.log.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
