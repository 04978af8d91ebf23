package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"toolcrib/internal/audit"
	"toolcrib/internal/metrics"
	"toolcrib/internal/models"
)

// CreateAuditRequest opens a walkthrough over one zone or the whole store.
type CreateAuditRequest struct {
	Scope string `json:"scope" binding:"required"`
}

func (s *Server) CreateAudit(c *gin.Context) {
	var req CreateAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actor := currentActor(c)
	sess, err := audit.NewSession(newID(), actor.ID, actor.Name, req.Scope, s.Registry, s.Ledger)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.addSession(sess)
	c.JSON(http.StatusCreated, gin.H{
		"id":           sess.ID,
		"scope":        sess.Scope,
		"zones":        sess.Zones(),
		"current_zone": sess.CurrentZone(),
	})
}

func (s *Server) GetAudit(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":           sess.ID,
		"scope":        sess.Scope,
		"zones":        sess.Zones(),
		"current_zone": sess.CurrentZone(),
	})
}

type sightedRequest struct {
	Qty int `json:"qty"`
}

func (s *Server) SetSighted(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit session not found"})
		return
	}
	var req sightedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := sess.SetSightedQty(c.Param("assetID"), req.Qty); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type defectRequest struct {
	Condition models.Condition `json:"condition" binding:"required"`
	Units     int              `json:"units" binding:"required"`
}

func (s *Server) DeclareDefect(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit session not found"})
		return
	}
	var req defectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := sess.DeclareDefect(c.Param("assetID"), req.Condition, req.Units); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type toggleRequest struct {
	Part string `json:"part" binding:"required"`
}

func (s *Server) TogglePart(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit session not found"})
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state, err := sess.TogglePart(c.Param("assetID"), req.Part)
	if err != nil {
		var lockedErr *audit.LockedPartError
		if errors.As(err, &lockedErr) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "locked_part": lockedErr.Part})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"part": req.Part, "state": state})
}

func (s *Server) MarkAllPresent(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit session not found"})
		return
	}
	if err := sess.MarkAllPresent(c.Param("assetID")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type responsibleRequest struct {
	StaffID   string `json:"staff_id" binding:"required"`
	StaffName string `json:"staff_name"`
}

func (s *Server) AssignResponsible(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit session not found"})
		return
	}
	var req responsibleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := sess.AssignResponsible(c.Param("assetID"), req.StaffID, req.StaffName); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type noteRequest struct {
	Note string `json:"note" binding:"required"`
}

func (s *Server) SetNote(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit session not found"})
		return
	}
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := sess.SetNote(c.Param("assetID"), req.Note); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) VerifyAsset(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit session not found"})
		return
	}
	if err := sess.Verify(c.Param("assetID")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verified"})
}

func (s *Server) AdvanceZone(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit session not found"})
		return
	}
	zone, err := sess.NextZone()
	if err != nil {
		var unverified *audit.UnverifiedError
		if errors.As(err, &unverified) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "unverified": unverified.IDs})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"current_zone": zone})
}

type finalizeRequest struct {
	Signature string `json:"signature" binding:"required"` // base64 image blob
}

func (s *Server) FinalizeAudit(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit session not found"})
		return
	}
	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	signature, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature must be base64"})
		return
	}

	findings, err := sess.Finalize(signature)
	if err != nil {
		var unverified *audit.UnverifiedError
		if errors.As(err, &unverified) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "unverified": unverified.IDs})
			return
		}
		var incomplete *audit.IncompleteVarianceError
		if errors.As(err, &incomplete) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "missing_notes": incomplete.IDs})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.Engine.Commit(c.Request.Context(), currentActor(c), findings, signature)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	metrics.AuditSessionsFinalized.Inc()
	s.dropSession(sess.ID)

	s.Hub.Broadcast(Event{
		Type:      "audit_reconciled",
		Timestamp: time.Now(),
		Payload: gin.H{
			"audit_id":           sess.ID,
			"cases_created":      len(result.CasesCreated),
			"maintenance_raised": len(result.MaintenanceCreated),
			"verified_assets":    result.VerifiedAssets,
			"skipped_assets":     result.SkippedAssets,
		},
	})
	c.JSON(http.StatusOK, gin.H{
		"cases_created":       result.CasesCreated,
		"maintenance_created": result.MaintenanceCreated,
		"verified_assets":     result.VerifiedAssets,
		"skipped_assets":      result.SkippedAssets,
	})
}
