package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"arcade-arena/internal/auth"
	"arcade-arena/internal/blockchain"
	"arcade-arena/internal/services"
)

// PayoutHandler exposes the settlement queue endpoints
type PayoutHandler struct {
	payoutService *services.PayoutService
	solanaClient  *blockchain.SolanaClient
}

// NewPayoutHandler creates a new PayoutHandler. The solana client may be nil
// when the server runs with mock settlement.
func NewPayoutHandler(payoutService *services.PayoutService, solanaClient *blockchain.SolanaClient) *PayoutHandler {
	return &PayoutHandler{
		payoutService: payoutService,
		solanaClient:  solanaClient,
	}
}

// GetQueueStatus returns payout counts per status
// GET /api/admin/payouts/status
func (h *PayoutHandler) GetQueueStatus(c *gin.Context) {
	counts, err := h.payoutService.QueueStatus(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load queue status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    counts,
	})
}

// RetryFailedPayouts requeues every terminally failed payout
// POST /api/admin/payouts/retry
func (h *PayoutHandler) RetryFailedPayouts(c *gin.Context) {
	requeued, err := h.payoutService.RetryFailedPayouts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retry payouts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"requeued": requeued,
		},
	})
}

// GetTransactionHistory lists settlement ledger rows for the caller's wallet
// GET /api/transactions?limit=50
func (h *PayoutHandler) GetTransactionHistory(c *gin.Context) {
	wallet, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		limit = 50
	}

	transactions, err := h.payoutService.TransactionHistory(c.Request.Context(), wallet, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    transactions,
	})
}

// VerifyPayout checks whether a settlement signature confirmed on-chain.
// Mock signatures never hit the chain, so mock mode reports them as-is.
// GET /api/admin/payouts/verify/:signature
func (h *PayoutHandler) VerifyPayout(c *gin.Context) {
	signature := c.Param("signature")

	if h.solanaClient == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"mode":      "mock",
				"signature": signature,
				"confirmed": true,
			},
		})
		return
	}

	confirmed, err := h.solanaClient.VerifyTransaction(c.Request.Context(), signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"signature": signature,
			"confirmed": confirmed,
		},
	})
}

// GetDiagnostics reports settlement connectivity health
// GET /api/admin/payouts/diagnostics
func (h *PayoutHandler) GetDiagnostics(c *gin.Context) {
	if h.solanaClient == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"mode": "mock",
			},
		})
		return
	}

	result := h.solanaClient.RunDiagnostics(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
