package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"arcade-arena/internal/auth"
	"arcade-arena/internal/repository"
	"arcade-arena/internal/services"
)

// TournamentHandler exposes tournament prize endpoints
type TournamentHandler struct {
	repo         *repository.Repository
	prizeService *services.PrizeService
}

func NewTournamentHandler(repo *repository.Repository, prizeService *services.PrizeService) *TournamentHandler {
	return &TournamentHandler{
		repo:         repo,
		prizeService: prizeService,
	}
}

// PreviewPrizes computes the prize breakdown for a hypothetical tournament.
// GET /api/tournaments/preview?entry_fee=10&participants=30
func (h *TournamentHandler) PreviewPrizes(c *gin.Context) {
	entryFee, err := decimal.NewFromString(c.Query("entry_fee"))
	if err != nil || entryFee.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry_fee"})
		return
	}

	participants, err := strconv.Atoi(c.Query("participants"))
	if err != nil || participants < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participants"})
		return
	}

	calc, err := h.prizeService.Calculate(entryFee, participants, h.prizeService.PlatformFeePercent())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    calc,
	})
}

// GetTournament returns a tournament with its current standings
// GET /api/tournaments/:id
func (h *TournamentHandler) GetTournament(c *gin.Context) {
	tournamentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tournament id"})
		return
	}

	tournament, err := h.repo.GetTournamentByID(c.Request.Context(), tournamentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tournament not found"})
		return
	}

	participants, err := h.repo.ListParticipantsByScore(c.Request.Context(), tournamentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load standings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"tournament":   tournament,
			"participants": participants,
		},
	})
}

// JoinTournament enters the authenticated wallet into a tournament. Every
// entry recomputes the stored prize pool from the new participant count.
// POST /api/tournaments/:id/join
func (h *TournamentHandler) JoinTournament(c *gin.Context) {
	tournamentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tournament id"})
		return
	}

	wallet, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if ban, err := h.repo.GetEffectiveBan(c.Request.Context(), wallet, time.Now()); err == nil && ban != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "wallet is banned"})
		return
	}

	participant, err := h.prizeService.JoinTournament(c.Request.Context(), tournamentID, wallet)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "tournament not found"})
		case errors.Is(err, services.ErrTournamentClosed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrAlreadyJoined):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join tournament"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    participant,
	})
}

// DistributePrizes ranks a completed tournament and queues winner payouts.
// POST /api/admin/tournaments/:id/distribute
func (h *TournamentHandler) DistributePrizes(c *gin.Context) {
	tournamentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tournament id"})
		return
	}

	payouts, err := h.prizeService.DistributePrizes(c.Request.Context(), tournamentID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTournamentNotCompleted):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrAlreadyDistributed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to distribute prizes"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"queued_payouts": len(payouts),
			"payouts":        payouts,
		},
	})
}
