package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"arcade-arena/internal/blockchain"
	"arcade-arena/internal/config"
	"arcade-arena/internal/models"
	"arcade-arena/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(&models.PendingPayout{}, &models.Transaction{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func testPayoutConfig() config.PayoutConfig {
	return config.PayoutConfig{
		Interval:        time.Second,
		BatchSize:       10,
		MaxAttempts:     3,
		JobDelay:        0,
		ExecutorTimeout: time.Second,
	}
}

// fakeExecutor scripts transfer outcomes and records call order
type fakeExecutor struct {
	mu       sync.Mutex
	calls    []string
	failures int
	err      error
}

func (f *fakeExecutor) Transfer(ctx context.Context, recipient string, amount decimal.Decimal, currency string) (*blockchain.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, recipient)
	if f.failures > 0 || f.err != nil {
		if f.failures > 0 {
			f.failures--
		}
		err := f.err
		if err == nil {
			err = errors.New("rpc node unavailable")
		}
		return nil, err
	}
	return &blockchain.TransferResult{
		Signature: "sig_" + recipient,
		Success:   true,
	}, nil
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func queuePayout(t *testing.T, db *gorm.DB, wallet string, priority int, scheduledFor time.Time) *models.PendingPayout {
	payout := &models.PendingPayout{
		ID:           uuid.New(),
		Wallet:       wallet,
		Amount:       decimal.NewFromInt(100),
		Currency:     "NAG",
		Reason:       "tournament_prize",
		ReferenceID:  "tournament-1",
		Status:       models.PayoutStatusQueued,
		MaxAttempts:  3,
		Priority:     priority,
		ScheduledFor: scheduledFor,
		CreatedAt:    time.Now(),
	}
	if err := db.Create(payout).Error; err != nil {
		t.Fatalf("failed to queue payout: %v", err)
	}
	// Spread created_at so ordering inside a priority is deterministic
	time.Sleep(time.Millisecond)
	return payout
}

func TestProcessQueueCompletesPayout(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	executor := &fakeExecutor{}
	processor := NewPayoutProcessor(repo, executor, testPayoutConfig())
	ctx := context.Background()

	payout := queuePayout(t, db, "winner_wallet", 0, time.Now())

	processor.ProcessQueue(ctx)

	updated, err := repo.GetPendingPayoutByID(ctx, payout.ID)
	if err != nil {
		t.Fatalf("failed to reload payout: %v", err)
	}
	if updated.Status != models.PayoutStatusCompleted {
		t.Errorf("expected completed, got %s", updated.Status)
	}
	if updated.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", updated.Attempts)
	}
	if updated.CompletedAt == nil {
		t.Error("completed payout must carry a completion time")
	}

	var tx models.Transaction
	if err := db.First(&tx, "wallet = ?", "winner_wallet").Error; err != nil {
		t.Fatalf("expected ledger row: %v", err)
	}
	if tx.Status != models.TransactionStatusCompleted {
		t.Errorf("expected completed transaction, got %s", tx.Status)
	}
	if tx.TransactionHash == nil || *tx.TransactionHash != "sig_winner_wallet" {
		t.Error("ledger row must carry the settlement signature")
	}
}

func TestProcessQueueRetriesThenFailsTerminally(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	executor := &fakeExecutor{err: errors.New("insufficient funds")}
	processor := NewPayoutProcessor(repo, executor, testPayoutConfig())
	ctx := context.Background()

	payout := queuePayout(t, db, "unlucky_wallet", 0, time.Now())

	// First two cycles requeue, third exhausts the attempt budget
	for i := 0; i < 3; i++ {
		processor.ProcessQueue(ctx)

		updated, err := repo.GetPendingPayoutByID(ctx, payout.ID)
		if err != nil {
			t.Fatalf("failed to reload payout: %v", err)
		}
		if updated.Attempts != i+1 {
			t.Fatalf("cycle %d: expected %d attempts, got %d", i+1, i+1, updated.Attempts)
		}
		if i < 2 && updated.Status != models.PayoutStatusQueued {
			t.Fatalf("cycle %d: expected requeued, got %s", i+1, updated.Status)
		}
	}

	updated, _ := repo.GetPendingPayoutByID(ctx, payout.ID)
	if updated.Status != models.PayoutStatusFailed {
		t.Errorf("expected terminal failure, got %s", updated.Status)
	}
	if updated.ErrorMessage == nil || *updated.ErrorMessage != "insufficient funds" {
		t.Error("failed payout must carry the last error")
	}

	// A fourth cycle must not touch the failed job
	processor.ProcessQueue(ctx)
	if executor.callCount() != 3 {
		t.Errorf("expected exactly 3 transfer calls, got %d", executor.callCount())
	}

	// Exactly one failed ledger row, no completed one
	var failed, completed int64
	db.Model(&models.Transaction{}).Where("status = ?", models.TransactionStatusFailed).Count(&failed)
	db.Model(&models.Transaction{}).Where("status = ?", models.TransactionStatusCompleted).Count(&completed)
	if failed != 1 {
		t.Errorf("expected 1 failed ledger row, got %d", failed)
	}
	if completed != 0 {
		t.Errorf("expected no completed ledger rows, got %d", completed)
	}
}

func TestProcessQueueOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	executor := &fakeExecutor{}
	processor := NewPayoutProcessor(repo, executor, testPayoutConfig())

	queuePayout(t, db, "old_low", 0, time.Now())
	queuePayout(t, db, "new_low", 0, time.Now())
	queuePayout(t, db, "late_high", 5, time.Now())

	processor.ProcessQueue(context.Background())

	want := []string{"late_high", "old_low", "new_low"}
	if len(executor.calls) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(executor.calls))
	}
	for i, wallet := range want {
		if executor.calls[i] != wallet {
			t.Errorf("call %d: expected %s, got %s", i, wallet, executor.calls[i])
		}
	}
}

func TestProcessQueueHonorsSchedule(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	executor := &fakeExecutor{}
	processor := NewPayoutProcessor(repo, executor, testPayoutConfig())

	queuePayout(t, db, "future_wallet", 0, time.Now().Add(time.Hour))

	processor.ProcessQueue(context.Background())

	if executor.callCount() != 0 {
		t.Errorf("future-scheduled job must not be processed, got %d calls", executor.callCount())
	}
}

func TestProcessQueueBatchLimit(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	executor := &fakeExecutor{}
	cfg := testPayoutConfig()
	cfg.BatchSize = 2
	processor := NewPayoutProcessor(repo, executor, cfg)

	for i := 0; i < 3; i++ {
		queuePayout(t, db, fmt.Sprintf("wallet_%d", i), 0, time.Now())
	}

	processor.ProcessQueue(context.Background())
	if executor.callCount() != 2 {
		t.Fatalf("expected batch of 2, got %d calls", executor.callCount())
	}

	// Next cycle drains the rest
	processor.ProcessQueue(context.Background())
	if executor.callCount() != 3 {
		t.Errorf("expected 3 total calls after second cycle, got %d", executor.callCount())
	}
}

func TestProcessQueueSkipsClaimedJob(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	executor := &fakeExecutor{}
	processor := NewPayoutProcessor(repo, executor, testPayoutConfig())
	ctx := context.Background()

	payout := queuePayout(t, db, "claimed_wallet", 0, time.Now())

	// Simulate another worker advancing the job between select and claim
	db.Model(&models.PendingPayout{}).
		Where("id = ?", payout.ID).
		Update("status", models.PayoutStatusProcessing)

	processor.processSinglePayout(ctx, payout)

	if executor.callCount() != 0 {
		t.Errorf("already-claimed job must not reach the executor, got %d calls", executor.callCount())
	}
}

// blockingExecutor holds every transfer until released
type blockingExecutor struct {
	started chan struct{}
	release chan struct{}
	calls   int32
}

func (b *blockingExecutor) Transfer(ctx context.Context, recipient string, amount decimal.Decimal, currency string) (*blockchain.TransferResult, error) {
	atomic.AddInt32(&b.calls, 1)
	b.started <- struct{}{}
	<-b.release
	return &blockchain.TransferResult{Signature: "sig", Success: true}, nil
}

func TestProcessQueueSkipsOverlappingCycle(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	executor := &blockingExecutor{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	processor := NewPayoutProcessor(repo, executor, testPayoutConfig())
	ctx := context.Background()

	queuePayout(t, db, "slow_wallet", 0, time.Now())

	done := make(chan struct{})
	go func() {
		processor.ProcessQueue(ctx)
		close(done)
	}()

	// Wait until the first cycle is inside the executor, queue another job,
	// then try a second cycle; it must return immediately without claiming it.
	<-executor.started
	second := queuePayout(t, db, "waiting_wallet", 0, time.Now())
	processor.ProcessQueue(ctx)
	if n := atomic.LoadInt32(&executor.calls); n != 1 {
		t.Errorf("overlapping cycle must be skipped, got %d transfer calls", n)
	}

	var untouched models.PendingPayout
	if err := db.First(&untouched, "id = ?", second.ID).Error; err != nil {
		t.Fatalf("failed to load payout: %v", err)
	}
	if untouched.Status != models.PayoutStatusQueued || untouched.Attempts != 0 {
		t.Errorf("expected second payout untouched, got status %s attempts %d", untouched.Status, untouched.Attempts)
	}

	close(executor.release)
	<-done
}

func TestResetFailedPayoutsRestoresBudget(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	executor := &fakeExecutor{failures: 3}
	processor := NewPayoutProcessor(repo, executor, testPayoutConfig())
	ctx := context.Background()

	payout := queuePayout(t, db, "second_chance", 0, time.Now())

	for i := 0; i < 3; i++ {
		processor.ProcessQueue(ctx)
	}
	updated, _ := repo.GetPendingPayoutByID(ctx, payout.ID)
	if updated.Status != models.PayoutStatusFailed {
		t.Fatalf("expected failed before reset, got %s", updated.Status)
	}

	reset, err := repo.ResetFailedPayouts(ctx)
	if err != nil {
		t.Fatalf("ResetFailedPayouts failed: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 reset job, got %d", reset)
	}

	updated, _ = repo.GetPendingPayoutByID(ctx, payout.ID)
	if updated.Status != models.PayoutStatusQueued || updated.Attempts != 0 {
		t.Fatalf("reset job must be queued with zero attempts, got %s/%d", updated.Status, updated.Attempts)
	}
	if updated.ErrorMessage != nil {
		t.Error("reset job must have its error cleared")
	}

	// Executor works now; the job completes on the next cycle
	processor.ProcessQueue(ctx)
	updated, _ = repo.GetPendingPayoutByID(ctx, payout.ID)
	if updated.Status != models.PayoutStatusCompleted {
		t.Errorf("expected completed after reset, got %s", updated.Status)
	}
}
