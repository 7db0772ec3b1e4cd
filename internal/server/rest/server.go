// Package rest exposes the backend over HTTP: auth endpoints under
// /auth/v1 and collection endpoints under /rest/v1, with filters carried
// in the query string.
package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stapos/stapos/internal/logging"
	"github.com/stapos/stapos/internal/server/auth"
	"github.com/stapos/stapos/internal/server/config"
	"github.com/stapos/stapos/internal/server/storage"
)

const bearerPrefix = "Bearer "

type Server struct {
	cfg     *config.Config
	users   storage.UserRepository
	records storage.RecordRepository
	log     logging.Logger

	now   func() time.Time
	newID func() string
}

func NewServer(cfg *config.Config, users storage.UserRepository, records storage.RecordRepository, log logging.Logger) *Server {
	return &Server{
		cfg:     cfg,
		users:   users,
		records: records,
		log:     log,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Routes builds the gin engine. Reads are open so terminals can warm
// their mirror before anyone signs in; writes require a valid token.
func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.health)

	a := r.Group("/auth/v1")
	a.POST("/signup", s.signUp)
	a.POST("/token", s.signIn)
	a.POST("/logout", s.requireAuth, s.signOut)
	a.PUT("/user", s.requireAuth, s.updateUser)

	c := r.Group("/rest/v1")
	c.GET("/:table", s.listRecords)
	c.POST("/:table", s.requireAuth, s.upsertRecord)
	c.PATCH("/:table", s.requireAuth, s.updateRecords)
	c.DELETE("/:table", s.requireAuth, s.deleteRecords)

	return r
}

func (s *Server) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	userID, err := auth.GetUserIDFromToken(strings.TrimPrefix(header, bearerPrefix), []byte(s.cfg.SecretKey))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.Set("user_id", userID)
	c.Next()
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
