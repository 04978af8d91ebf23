package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"toolcrib/internal/audit"
	"toolcrib/internal/escalation"
	"toolcrib/internal/ledger"
	"toolcrib/internal/maintenance"
	"toolcrib/internal/reconcile"
	"toolcrib/internal/registry"
)

// Server is the HTTP surface over the audit and escalation engines. It is
// glue only: every rule lives in the engines, so a programmatic caller that
// bypasses this layer gets the same behavior.
type Server struct {
	Router   *gin.Engine
	Registry *registry.Registry
	Ledger   *ledger.Ledger
	Queue    *maintenance.Queue
	Engine   *reconcile.Engine
	Machine  *escalation.Machine
	Hub      *Hub

	mu       sync.Mutex
	sessions map[string]*audit.Session
}

// NewServer creates the API server and wires its routes.
func NewServer(reg *registry.Registry, led *ledger.Ledger, queue *maintenance.Queue,
	engine *reconcile.Engine, machine *escalation.Machine, jwtSecret string) *Server {

	s := &Server{
		Router:   gin.Default(),
		Registry: reg,
		Ledger:   led,
		Queue:    queue,
		Engine:   engine,
		Machine:  machine,
		Hub:      NewHub(),
		sessions: make(map[string]*audit.Session),
	}
	s.setupRoutes(jwtSecret)
	return s
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes(jwtSecret string) {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Toolcrib API is running"})
	})

	s.Router.GET("/ws/events", s.Hub.handleWebSocket)

	v1 := s.Router.Group("/api/v1")
	v1.Use(AuthMiddleware(jwtSecret))
	{
		// Audit sessions
		v1.POST("/audits", s.CreateAudit)
		v1.GET("/audits/:id", s.GetAudit)
		v1.POST("/audits/:id/assets/:assetID/sighted", s.SetSighted)
		v1.POST("/audits/:id/assets/:assetID/defect", s.DeclareDefect)
		v1.POST("/audits/:id/assets/:assetID/parts/toggle", s.TogglePart)
		v1.POST("/audits/:id/assets/:assetID/parts/all-present", s.MarkAllPresent)
		v1.POST("/audits/:id/assets/:assetID/responsible", s.AssignResponsible)
		v1.POST("/audits/:id/assets/:assetID/note", s.SetNote)
		v1.POST("/audits/:id/assets/:assetID/verify", s.VerifyAsset)
		v1.POST("/audits/:id/advance", s.AdvanceZone)
		v1.POST("/audits/:id/finalize", s.FinalizeAudit)

		// Escalation
		v1.POST("/cases/:id/actions", s.ApplyCaseAction)
		v1.GET("/cases", s.ListCases)
		v1.GET("/cases/:id", s.GetCase)

		// Registry and maintenance reads
		v1.GET("/assets", s.ListAssets)
		v1.GET("/assets/:id", s.GetAsset)
		v1.GET("/maintenance", s.ListMaintenance)
		v1.POST("/maintenance/:id/assign", s.AssignMaintenance)
	}
}

// session looks up a live audit session.
func (s *Server) session(id string) (*audit.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) addSession(sess *audit.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *Server) dropSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func newID() string { return uuid.NewString() }
