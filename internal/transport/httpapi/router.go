// Package httpapi is the thin HTTP/session layer in front of the
// game engine (spec.md §6's registration/listing/upgrade surface),
// grounded in the teacher's gin + gin-contrib/cors server setup.
package httpapi

import (
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"amadeus/internal/game"
	"amadeus/internal/transport/ws"
)

const sessionCookie = "amadeus_session"

// Server wires the registry and session directory behind gin routes.
type Server struct {
	registry *game.Registry
	sessions *game.MemoryDirectory
	upgrader *ws.Upgrader
	log      zerolog.Logger
}

func NewServer(registry *game.Registry, sessions *game.MemoryDirectory, allowedOrigins []string, log zerolog.Logger) *Server {
	s := &Server{registry: registry, sessions: sessions, log: log}
	s.upgrader = ws.NewUpgrader(func(r *http.Request) bool {
		return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
	}, log)
	return s
}

// NewRouter builds the gin.Engine, grounded in the teacher's
// CreateServer: an origin allowlist ahead of gin-contrib/cors so
// WebSocket upgrades from disallowed origins never reach the upgrader.
func (s *Server) NewRouter(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "healthy") })

	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" || slices.Contains(allowedOrigins, origin) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden-origin"})
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
		},
	}))

	r.POST("/register", s.RegisterHandler)
	r.GET("/room", s.ListRoomsHandler)
	r.POST("/room", s.CreateRoomHandler)
	r.GET("/room/:id", s.JoinRoomHandler)

	return r
}

type registerRequest struct {
	Name string `json:"name" binding:"required"`
}

// RegisterHandler mints an opaque session nonce for a display name and
// sets it as an HTTP-only cookie, satisfying spec.md §6's prerequisite
// that a WebSocket upgrade always has a resolvable session.
func (s *Server) RegisterHandler(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid-request"})
		return
	}

	session := uuid.NewString()
	s.sessions.Register(session, req.Name)
	c.SetCookie(sessionCookie, session, 60*60*24, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"session": session, "name": req.Name})
}

// ListRoomsHandler answers from the registry's non-blocking snapshot
// (spec.md §4.3); it never touches a controller's mailbox.
func (s *Server) ListRoomsHandler(c *gin.Context) {
	summaries := s.registry.List()
	rooms := make([]gin.H, 0, len(summaries))
	for _, sum := range summaries {
		rooms = append(rooms, gin.H{
			"id":             sum.ID,
			"connectedCount": sum.ConnectedCount,
			"maxPlayers":     sum.MaxPlayers,
			"phase":          sum.PhaseTag,
			"createdAt":      sum.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// CreateRoomHandler mints a fresh room id; who becomes host is decided
// later by admission policy on first upgrade, not here (spec.md §4.4.3).
func (s *Server) CreateRoomHandler(c *gin.Context) {
	room := s.registry.Create()
	c.JSON(http.StatusCreated, gin.H{"id": room.ID()})
}

// JoinRoomHandler resolves the session cookie, then upgrades the
// connection to a WebSocket. A missing or unresolvable cookie is
// refused before the request ever reaches the core (spec.md §6).
func (s *Server) JoinRoomHandler(c *gin.Context) {
	session, err := c.Cookie(sessionCookie)
	if err != nil || session == "" {
		s.log.Warn().Str("remote", c.ClientIP()).Msg("websocket upgrade refused: no session cookie")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no-session"})
		return
	}
	if _, ok := s.sessions.NameFor(session); !ok {
		s.log.Warn().Str("session", session).Msg("websocket upgrade refused: unresolvable session")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unresolvable-session"})
		return
	}

	roomID := c.Param("id")
	room := s.registry.GetOrCreate(roomID)
	s.upgrader.Serve(c.Writer, c.Request, room, session)
}
