package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"arcade-arena/internal/auth"
	"arcade-arena/internal/models"
	"arcade-arena/internal/services"
)

// SessionHandler handles game session submission endpoints
type SessionHandler struct {
	trustService *services.TrustService
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(trustService *services.TrustService) *SessionHandler {
	return &SessionHandler{trustService: trustService}
}

// RecordSession accepts a finished game session, scores it and persists it.
// POST /api/sessions
func (h *SessionHandler) RecordSession(c *gin.Context) {
	var req models.RecordSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Sessions are recorded for the authenticated wallet only
	if wallet, ok := auth.GetWalletAddress(c); ok && wallet != req.Wallet {
		c.JSON(http.StatusForbidden, gin.H{"error": "wallet does not match authenticated user"})
		return
	}

	session, verdict, err := h.trustService.RecordSession(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPlayerBanned):
			c.JSON(http.StatusForbidden, gin.H{"error": "player is banned"})
		case errors.Is(err, services.ErrInvalidWallet):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record session"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"session_id":      session.ID,
			"is_suspicious":   verdict.IsSuspicious,
			"suspicion_score": verdict.SuspicionScore,
			"banned":          verdict.ShouldBan,
		},
	})
}

// GetBanStatus reports whether a wallet is currently banned.
// GET /ban-status/:wallet
func (h *SessionHandler) GetBanStatus(c *gin.Context) {
	wallet := c.Param("wallet")
	if wallet == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet is required"})
		return
	}

	banned, err := h.trustService.IsBanned(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check ban status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"wallet": wallet,
			"banned": banned,
		},
	})
}
