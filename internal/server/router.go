package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/stash/internal/auth"
	"github.com/MarcoPoloResearchLab/stash/internal/library"
	"github.com/MarcoPoloResearchLab/stash/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	externalIDContextKey = "stash_external_id"
	claimsContextKey     = "stash_session_claims"
)

var (
	errMissingSessionValidator = errors.New("session validator dependency required")
	errMissingUserService      = errors.New("user service dependency required")
	errMissingLibraryService   = errors.New("library service dependency required")
)

// SessionValidator authenticates an incoming request.
type SessionValidator interface {
	ValidateRequest(r *http.Request) (auth.SessionClaims, error)
}

type Dependencies struct {
	SessionValidator SessionValidator
	UserService      *users.Service
	LibraryService   *library.Service
	AllowedOrigins   []string
	Logger           *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.SessionValidator == nil {
		return nil, errMissingSessionValidator
	}
	if deps.UserService == nil {
		return nil, errMissingUserService
	}
	if deps.LibraryService == nil {
		return nil, errMissingLibraryService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		sessions: deps.SessionValidator,
		users:    deps.UserService,
		library:  deps.LibraryService,
		logger:   logger,
	}

	router.GET("/healthz", handler.handleHealth)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)

	protected.PUT("/users/me", handler.handleUpsertUser)
	protected.GET("/users/me", handler.handleCurrentUser)

	protected.GET("/bookmarks", handler.handleListBookmarks)
	protected.POST("/bookmarks", handler.handleCreateBookmark)
	protected.GET("/bookmarks/search", handler.handleSearchBookmarks)
	protected.GET("/bookmarks/favorites", handler.handleFavoriteBookmarks)
	protected.GET("/bookmarks/recent", handler.handleRecentBookmarks)
	protected.GET("/bookmarks/stats", handler.handleBookmarkStats)
	protected.GET("/bookmarks/:id", handler.handleGetBookmark)
	protected.PATCH("/bookmarks/:id", handler.handleUpdateBookmark)
	protected.DELETE("/bookmarks/:id", handler.handleRemoveBookmark)
	protected.POST("/bookmarks/:id/favorite", handler.handleToggleFavorite)
	protected.POST("/bookmarks/:id/archive", handler.handleToggleArchive)
	protected.POST("/bookmarks/:id/read", handler.handleIncrementReadCount)
	protected.GET("/bookmarks/:id/collections", handler.handleCollectionsForBookmark)
	protected.GET("/bookmarks/:id/notes", handler.handleNotesForBookmark)
	protected.POST("/bookmarks/:id/notes", handler.handleCreateNote)

	protected.GET("/collections", handler.handleListCollections)
	protected.POST("/collections", handler.handleCreateCollection)
	protected.GET("/collections/:id", handler.handleGetCollection)
	protected.PATCH("/collections/:id", handler.handleUpdateCollection)
	protected.DELETE("/collections/:id", handler.handleRemoveCollection)
	protected.GET("/collections/:id/bookmarks", handler.handleCollectionBookmarks)
	protected.PUT("/collections/:id/bookmarks/:bookmark_id", handler.handleAddToCollection)
	protected.DELETE("/collections/:id/bookmarks/:bookmark_id", handler.handleRemoveFromCollection)

	protected.PATCH("/notes/:id", handler.handleUpdateNote)
	protected.DELETE("/notes/:id", handler.handleRemoveNote)

	protected.GET("/chat/messages", handler.handleChatHistory)
	protected.POST("/chat/messages", handler.handleAppendChatMessage)
	protected.DELETE("/chat/messages", handler.handleClearChat)

	return router, nil
}

type httpHandler struct {
	sessions SessionValidator
	users    *users.Service
	library  *library.Service
	logger   *zap.Logger
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	return cors.New(cfg)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("request failed", fields...)
			return
		}
		logger.Debug("request served", fields...)
	}
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	claims, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredSessionToken) || errors.Is(err, auth.ErrMissingSessionToken) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: "session token missing or invalid"})
		return
	}
	c.Set(externalIDContextKey, claims.ExternalID())
	c.Set(claimsContextKey, claims)
	c.Next()
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func callerID(c *gin.Context) string {
	return c.GetString(externalIDContextKey)
}

func sessionClaims(c *gin.Context) auth.SessionClaims {
	value, ok := c.Get(claimsContextKey)
	if !ok {
		return auth.SessionClaims{}
	}
	claims, _ := value.(auth.SessionClaims)
	return claims
}
