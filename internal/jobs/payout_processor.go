package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"arcade-arena/internal/blockchain"
	"arcade-arena/internal/config"
	"arcade-arena/internal/models"
	"arcade-arena/internal/repository"

	"github.com/google/uuid"
)

// PayoutProcessor drains the payout queue on a fixed interval. One logical
// worker: an in-process guard keeps cycles from overlapping, and the design
// assumes a single processor instance per queue table. Running two would
// let both claim the same queued job.
type PayoutProcessor struct {
	repo     *repository.Repository
	executor blockchain.SettlementExecutor
	cfg      config.PayoutConfig
	stopChan chan struct{}

	mu           sync.Mutex
	isProcessing bool
}

// NewPayoutProcessor creates a new settlement worker
func NewPayoutProcessor(repo *repository.Repository, executor blockchain.SettlementExecutor, cfg config.PayoutConfig) *PayoutProcessor {
	return &PayoutProcessor{
		repo:     repo,
		executor: executor,
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}
}

// Start begins the processing loop. Blocks; run in a goroutine.
func (pp *PayoutProcessor) Start() {
	log.Printf("[PayoutProcessor] Starting settlement worker (interval: %v)", pp.cfg.Interval)

	// Process immediately on start, then on interval
	pp.ProcessQueue(context.Background())

	ticker := time.NewTicker(pp.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pp.ProcessQueue(context.Background())
		case <-pp.stopChan:
			log.Println("[PayoutProcessor] Stopping settlement worker")
			return
		}
	}
}

// Stop stops the processing loop
func (pp *PayoutProcessor) Stop() {
	close(pp.stopChan)
}

// ProcessQueue runs one processing cycle. If a cycle is already running the
// call is skipped entirely rather than queued behind it.
func (pp *PayoutProcessor) ProcessQueue(ctx context.Context) {
	pp.mu.Lock()
	if pp.isProcessing {
		pp.mu.Unlock()
		log.Println("[PayoutProcessor] Skipping cycle - previous cycle still running")
		return
	}
	pp.isProcessing = true
	pp.mu.Unlock()

	defer func() {
		pp.mu.Lock()
		pp.isProcessing = false
		pp.mu.Unlock()
	}()

	payouts, err := pp.repo.SelectDuePayouts(ctx, time.Now(), pp.cfg.BatchSize)
	if err != nil {
		log.Printf("[PayoutProcessor] Error fetching due payouts: %v", err)
		return
	}

	if len(payouts) == 0 {
		return
	}

	log.Printf("[PayoutProcessor] Processing %d pending payouts", len(payouts))

	// Sequential on purpose: parallel settlement calls would burst the
	// upstream RPC rate limit.
	for i, payout := range payouts {
		pp.processSinglePayout(ctx, payout)

		if i < len(payouts)-1 {
			time.Sleep(pp.cfg.JobDelay)
		}
	}

	log.Printf("[PayoutProcessor] Batch complete")
}

// processSinglePayout claims one job, invokes the settlement executor, and
// records the outcome
func (pp *PayoutProcessor) processSinglePayout(ctx context.Context, payout *models.PendingPayout) {
	claimed, err := pp.repo.ClaimPayout(ctx, payout.ID)
	if err != nil {
		log.Printf("[PayoutProcessor] Error claiming payout %s: %v", payout.ID, err)
		return
	}
	if !claimed {
		// Someone advanced the job since the select; leave it alone
		return
	}
	attempts := payout.Attempts + 1

	log.Printf("[PayoutProcessor] Processing payout %s: %s %s to %s (attempt %d/%d)",
		payout.ID, payout.Amount, payout.Currency, payout.Wallet, attempts, payout.MaxAttempts)

	// Bound the settlement call so a hung RPC node cannot stall the cycle
	// forever. A timeout is a retryable failure like any other.
	execCtx, cancel := context.WithTimeout(ctx, pp.cfg.ExecutorTimeout)
	result, err := pp.executor.Transfer(execCtx, payout.Wallet, payout.Amount, payout.Currency)
	cancel()

	if err == nil && result != nil && result.Success {
		pp.completePayout(ctx, payout, result.Signature)
		return
	}

	errMsg := "payout failed"
	if err != nil {
		errMsg = err.Error()
	}
	pp.handleFailure(ctx, payout, attempts, errMsg)
}

func (pp *PayoutProcessor) completePayout(ctx context.Context, payout *models.PendingPayout, signature string) {
	now := time.Now()

	if err := pp.repo.CompletePayout(ctx, payout.ID, now); err != nil {
		log.Printf("[PayoutProcessor] Error marking payout %s completed: %v", payout.ID, err)
		return
	}

	tx := &models.Transaction{
		ID:              uuid.New(),
		Wallet:          payout.Wallet,
		Type:            payout.Reason,
		Amount:          payout.Amount,
		Currency:        payout.Currency,
		Status:          models.TransactionStatusCompleted,
		TransactionHash: &signature,
		Metadata: models.JSONB{
			"reference_id": payout.ReferenceID,
			"payout_id":    payout.ID.String(),
		},
		CreatedAt:   now,
		CompletedAt: &now,
	}
	if err := pp.repo.CreateTransaction(ctx, tx); err != nil {
		log.Printf("Warning: failed to record completed transaction for payout %s: %v", payout.ID, err)
	}

	log.Printf("[PayoutProcessor] Payout completed: %s (%s)", payout.ID, signature)
}

func (pp *PayoutProcessor) handleFailure(ctx context.Context, payout *models.PendingPayout, attempts int, errMsg string) {
	log.Printf("[PayoutProcessor] Payout %s failed (attempt %d/%d): %s",
		payout.ID, attempts, payout.MaxAttempts, errMsg)

	if attempts < payout.MaxAttempts {
		// Back to the queue; the next cycle picks it up
		if err := pp.repo.RequeuePayout(ctx, payout.ID, errMsg); err != nil {
			log.Printf("[PayoutProcessor] Error requeueing payout %s: %v", payout.ID, err)
		}
		return
	}

	// Out of attempts: terminal failure, operator intervention required
	if err := pp.repo.FailPayout(ctx, payout.ID, errMsg); err != nil {
		log.Printf("[PayoutProcessor] Error marking payout %s failed: %v", payout.ID, err)
		return
	}

	tx := &models.Transaction{
		ID:       uuid.New(),
		Wallet:   payout.Wallet,
		Type:     payout.Reason,
		Amount:   payout.Amount,
		Currency: payout.Currency,
		Status:   models.TransactionStatusFailed,
		Metadata: models.JSONB{
			"reference_id": payout.ReferenceID,
			"payout_id":    payout.ID.String(),
			"error":        errMsg,
		},
		CreatedAt: time.Now(),
	}
	if err := pp.repo.CreateTransaction(ctx, tx); err != nil {
		log.Printf("Warning: failed to record failed transaction for payout %s: %v", payout.ID, err)
	}

	log.Printf("[PayoutProcessor] Payout %s terminally failed after %d attempts", payout.ID, attempts)
}
