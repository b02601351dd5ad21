package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"arcade-arena/internal/auth"
	"arcade-arena/internal/models"
	"arcade-arena/internal/repository"
	"arcade-arena/internal/services"
)

// MonitoringHandler exposes the admin monitoring surface: suspicious
// activity review, ban management, player reports and rule tuning.
type MonitoringHandler struct {
	repo         *repository.Repository
	trustService *services.TrustService
	adminService *services.AdminService
}

func NewMonitoringHandler(repo *repository.Repository, trustService *services.TrustService, adminService *services.AdminService) *MonitoringHandler {
	return &MonitoringHandler{
		repo:         repo,
		trustService: trustService,
		adminService: adminService,
	}
}

// AdminMiddleware checks if user is admin
func (h *MonitoringHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		admin, err := h.adminService.GetAdminByUserID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not an admin"})
			c.Abort()
			return
		}

		c.Set("admin_id", admin.ID)
		c.Set("admin_role", admin.Role)
		c.Next()
	}
}

// GetDashboard returns the monitoring dashboard counters
// GET /api/admin/dashboard
func (h *MonitoringHandler) GetDashboard(c *gin.Context) {
	stats, err := h.adminService.GetDashboard(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dashboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// ListSuspiciousActivities lists activities awaiting (or past) review
// GET /api/admin/suspicious?status=pending&limit=50
func (h *MonitoringHandler) ListSuspiciousActivities(c *gin.Context) {
	status := models.ReviewStatus(c.DefaultQuery("status", string(models.ReviewStatusPending)))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 50
	}

	activities, err := h.repo.ListSuspiciousActivities(c.Request.Context(), status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list activities"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    activities,
	})
}

// ReviewActivity applies an admin verdict to one suspicious activity
// POST /api/admin/suspicious/:id/review
func (h *MonitoringHandler) ReviewActivity(c *gin.Context) {
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid activity id"})
		return
	}

	var body struct {
		Status models.ReviewStatus `json:"status" binding:"required"`
		Action models.ReviewAction `json:"action"`
		Notes  string              `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Action == "" {
		body.Action = models.ReviewActionNone
	}

	wallet, _ := auth.GetWalletAddress(c)

	activity, err := h.trustService.ReviewActivity(c.Request.Context(), &services.ReviewRequest{
		ActivityID: activityID,
		ReviewedBy: wallet,
		Status:     body.Status,
		Notes:      body.Notes,
		Action:     body.Action,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrActivityReviewed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    activity,
	})
}

// ListBans lists ban rows
// GET /api/admin/bans?active=true&limit=50
func (h *MonitoringHandler) ListBans(c *gin.Context) {
	activeOnly := c.DefaultQuery("active", "true") == "true"
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 50
	}

	bans, err := h.repo.ListBans(c.Request.Context(), activeOnly, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list bans"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    bans,
	})
}

// BanPlayer creates a new ban for a wallet
// POST /api/admin/bans
func (h *MonitoringHandler) BanPlayer(c *gin.Context) {
	var body struct {
		Wallet      string         `json:"wallet" binding:"required"`
		BanType     models.BanType `json:"ban_type" binding:"required"`
		Reason      string         `json:"reason" binding:"required"`
		Evidence    []string       `json:"evidence"`
		BannedUntil *time.Time     `json:"banned_until"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adminWallet, _ := auth.GetWalletAddress(c)

	err := h.trustService.BanPlayer(c.Request.Context(), &services.BanRequest{
		Wallet:      body.Wallet,
		BanType:     body.BanType,
		Reason:      body.Reason,
		Evidence:    body.Evidence,
		BannedBy:    adminWallet,
		BannedUntil: body.BannedUntil,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UnbanPlayer lifts every active ban on a wallet
// POST /api/admin/bans/:wallet/unban
func (h *MonitoringHandler) UnbanPlayer(c *gin.Context) {
	wallet := c.Param("wallet")

	var body struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adminWallet, _ := auth.GetWalletAddress(c)

	if err := h.trustService.UnbanPlayer(c.Request.Context(), wallet, body.Reason, adminWallet); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetPlayerReport returns the admin view of one wallet
// GET /api/admin/players/:wallet
func (h *MonitoringHandler) GetPlayerReport(c *gin.Context) {
	wallet := c.Param("wallet")

	report, err := h.adminService.GetPlayerReport(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build player report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    report,
	})
}

// ListRules lists detection rules
// GET /api/admin/rules
func (h *MonitoringHandler) ListRules(c *gin.Context) {
	rules, err := h.adminService.ListRules(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rules"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rules,
	})
}

// UpdateRule applies changes to one detection rule
// PATCH /api/admin/rules/:name
func (h *MonitoringHandler) UpdateRule(c *gin.Context) {
	name := c.Param("name")

	var update services.RuleUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := h.adminService.UpdateRule(c.Request.Context(), name, &update)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rule,
	})
}
