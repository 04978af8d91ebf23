package api

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"toolcrib/internal/escalation"
	"toolcrib/internal/ledger"
	"toolcrib/internal/models"
	"toolcrib/internal/registry"
)

// caseActionRequest carries one escalation transition.
type caseActionRequest struct {
	Action            escalation.Action        `json:"action" binding:"required"`
	Notes             string                   `json:"notes"`
	ConditionOnReturn models.Condition         `json:"condition_on_return"`
	Resolution        models.ResolutionPathway `json:"resolution"`
	Verdict           string                   `json:"verdict"`
}

func (s *Server) ApplyCaseAction(c *gin.Context) {
	var req caseActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := s.Machine.Apply(c.Request.Context(), currentActor(c), c.Param("id"), escalation.Request{
		Action:            req.Action,
		Notes:             req.Notes,
		ConditionOnReturn: req.ConditionOnReturn,
		Resolution:        req.Resolution,
		Verdict:           req.Verdict,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrCaseNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, escalation.ErrCaseResolved),
			errors.Is(err, escalation.ErrAlreadyAtHR),
			errors.Is(err, escalation.ErrNotAtHR):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	s.Hub.Broadcast(Event{
		Type:      "case_transition",
		Timestamp: time.Now(),
		Payload: gin.H{
			"case_id": updated.ID,
			"action":  string(req.Action),
			"stage":   updated.Stage,
			"status":  updated.Status,
		},
	})
	c.JSON(http.StatusOK, updated)
}

func (s *Server) ListCases(c *gin.Context) {
	toolID := c.Query("tool_id")
	if c.Query("unresolved") == "true" && toolID != "" {
		c.JSON(http.StatusOK, s.Ledger.UnresolvedVariances(toolID))
		return
	}
	cases := s.Ledger.All()
	if toolID != "" {
		filtered := cases[:0]
		for _, k := range cases {
			if k.ToolID == toolID {
				filtered = append(filtered, k)
			}
		}
		cases = filtered
	}
	c.JSON(http.StatusOK, cases)
}

func (s *Server) GetCase(c *gin.Context) {
	k, err := s.Ledger.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, k)
}

func (s *Server) ListAssets(c *gin.Context) {
	zone := c.Query("zone")
	if zone == "" {
		zone = models.ZoneFullStore
	}
	assets := s.Registry.AssetsInZone(zone)
	out := make([]gin.H, 0, len(assets))
	for _, a := range assets {
		out = append(out, gin.H{
			"asset":      a,
			"leaked_qty": s.Ledger.LeakedQty(a.ID),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) GetAsset(c *gin.Context) {
	a, err := s.Registry.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, registry.ErrAssetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	locked := make([]string, 0)
	for part := range s.Ledger.LockedParts(a.ID) {
		locked = append(locked, part)
	}
	sort.Strings(locked)
	c.JSON(http.StatusOK, gin.H{"asset": a, "locked_parts": locked})
}

func (s *Server) ListMaintenance(c *gin.Context) {
	if toolID := c.Query("tool_id"); toolID != "" {
		c.JSON(http.StatusOK, s.Queue.ForTool(toolID))
		return
	}
	c.JSON(http.StatusOK, s.Queue.List())
}

type assignMaintenanceRequest struct {
	StaffID   string `json:"staff_id" binding:"required"`
	StaffName string `json:"staff_name"`
}

func (s *Server) AssignMaintenance(c *gin.Context) {
	var req assignMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.Queue.Assign(c.Param("id"), req.StaffID, req.StaffName); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "assigned"})
}
