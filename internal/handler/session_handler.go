package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linomassaro/SyncStream/internal/errs"
	"github.com/linomassaro/SyncStream/internal/model"
	"github.com/linomassaro/SyncStream/internal/service"
	"github.com/linomassaro/SyncStream/internal/store"
)

// SessionHandler handles the REST session façade.
type SessionHandler struct {
	svc *service.SessionService
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// CreateSession godoc
// POST /sessions — create-or-get; an existing id returns the existing session.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	// An empty body is allowed: both fields are optional.
	var req model.CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
			return
		}
	}
	sess := h.svc.CreateOrGet(req.ID, req.VideoURL)
	c.JSON(http.StatusCreated, sess)
}

// GetSession godoc
// GET /sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, err := h.svc.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// UpdateSession godoc
// PATCH /sessions/:id — shallow-merge of the provided fields.
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	var req model.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	patch := store.SessionPatch{
		VideoURL:         req.VideoURL,
		VideoSources:     req.VideoSources,
		SelectedSourceID: req.SelectedSourceID,
		IsPlaying:        req.IsPlaying,
		CurrentTime:      req.CurrentTime,
	}
	sess, err := h.svc.Update(c.Param("id"), patch)
	if err != nil {
		if errors.Is(err, errs.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update session"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// GetSessionViewers godoc
// GET /sessions/:id/viewers — viewer ids with open connections.
func (h *SessionHandler) GetSessionViewers(c *gin.Context) {
	sessionID := c.Param("id")
	viewers, err := h.svc.Viewers(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, model.SessionViewersResponse{
		SessionID:   sessionID,
		ViewerCount: len(viewers),
		Viewers:     viewers,
	})
}
