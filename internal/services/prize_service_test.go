package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"arcade-arena/internal/models"
	"arcade-arena/internal/repository"
)

func TestTierPercentTotalsCloseAtHundred(t *testing.T) {
	hundred := decimal.NewFromInt(100)
	for _, tier := range prizeTiers {
		total := tierPercentTotal(tier)
		if !total.Equal(hundred) {
			t.Errorf("tier %s commits %s%% of the pool, want exactly 100", tier.Name, total)
		}
	}
}

func TestCalculateMediumTier(t *testing.T) {
	ps := NewPrizeService(nil, testPayoutConfig())

	calc, err := ps.Calculate(decimal.NewFromInt(10), 30, 5)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if calc.Tier != "medium" {
		t.Errorf("expected medium tier for 30 participants, got %s", calc.Tier)
	}
	if !calc.TotalCollected.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected 300 collected, got %s", calc.TotalCollected)
	}
	if !calc.PlatformFee.Equal(decimal.NewFromInt(15)) {
		t.Errorf("expected fee 15, got %s", calc.PlatformFee)
	}
	if !calc.PrizePool.Equal(decimal.NewFromInt(285)) {
		t.Errorf("expected pool 285, got %s", calc.PrizePool)
	}

	want := []string{"114", "71.25", "42.75", "28.5", "28.5"}
	if len(calc.Distribution) != len(want) {
		t.Fatalf("expected %d shares, got %d", len(want), len(calc.Distribution))
	}
	for i, amount := range want {
		if !calc.Distribution[i].AmountEach.Equal(decimal.RequireFromString(amount)) {
			t.Errorf("share %d: expected %s, got %s", i+1, amount, calc.Distribution[i].AmountEach)
		}
	}
}

func TestCalculateRejectsBadInput(t *testing.T) {
	ps := NewPrizeService(nil, testPayoutConfig())

	if _, err := ps.Calculate(decimal.NewFromInt(10), 0, 5); err == nil {
		t.Error("expected error for zero participants")
	}
	if _, err := ps.Calculate(decimal.NewFromInt(-1), 10, 5); err == nil {
		t.Error("expected error for negative entry fee")
	}
}

func TestRankKey(t *testing.T) {
	ps := NewPrizeService(nil, testPayoutConfig())

	cases := []struct {
		rank         int
		participants int
		want         string
	}{
		{1, 10, "1st"},
		{3, 10, "3rd"},
		{4, 10, ""},
		{5, 30, "5th"},
		{6, 30, ""},
		{10, 80, "10th"},
		{11, 80, ""},
		{7, 200, "6th-10th"},
		{15, 200, "11th-20th"},
		{50, 200, "21st-50th"},
		{51, 200, ""},
	}

	for _, tc := range cases {
		got := ps.RankKey(tc.rank, tc.participants)
		if got != tc.want {
			t.Errorf("RankKey(%d, %d) = %q, want %q", tc.rank, tc.participants, got, tc.want)
		}
	}
}

func seedTournament(t *testing.T, repo *repository.Repository, status models.TournamentStatus, entryFee int64, scores []int64) *models.Tournament {
	tournament := &models.Tournament{
		ID:                  uuid.New(),
		Name:                "weekly-blitz",
		GameName:            "neon-runner",
		EntryFee:            decimal.NewFromInt(entryFee),
		Currency:            "NAG",
		CurrentParticipants: len(scores),
		Status:              status,
	}
	if err := repo.DB().Create(tournament).Error; err != nil {
		t.Fatalf("failed to seed tournament: %v", err)
	}

	for i, score := range scores {
		participant := &models.TournamentParticipant{
			ID:           uuid.New(),
			TournamentID: tournament.ID,
			Wallet:       fmt.Sprintf("player_wallet_%02d", i),
			FinalScore:   score,
			Status:       models.ParticipantStatusRegistered,
			JoinedAt:     time.Now(),
			CreatedAt:    time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := repo.DB().Create(participant).Error; err != nil {
			t.Fatalf("failed to seed participant: %v", err)
		}
	}

	return tournament
}

func TestDistributePrizes(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ps := NewPrizeService(repo, testPayoutConfig())
	ctx := context.Background()

	// 5 players, 100 each, 5% fee: pool 475, small tier 50/30/20
	scores := []int64{900, 700, 800, 400, 600}
	tournament := seedTournament(t, repo, models.TournamentStatusCompleted, 100, scores)

	payouts, err := ps.DistributePrizes(ctx, tournament.ID)
	if err != nil {
		t.Fatalf("DistributePrizes failed: %v", err)
	}

	if len(payouts) != 3 {
		t.Fatalf("small tier pays 3 places, got %d payouts", len(payouts))
	}

	wantAmounts := []string{"237.5", "142.5", "95"}
	for i, amount := range wantAmounts {
		if !payouts[i].Amount.Equal(decimal.RequireFromString(amount)) {
			t.Errorf("payout %d: expected %s, got %s", i+1, amount, payouts[i].Amount)
		}
		if payouts[i].Status != models.PayoutStatusQueued {
			t.Errorf("payout %d: expected queued, got %s", i+1, payouts[i].Status)
		}
		if payouts[i].Reason != "tournament_prize" {
			t.Errorf("payout %d: unexpected reason %s", i+1, payouts[i].Reason)
		}
	}

	// Winners ranked by score descending
	ranked, err := repo.ListParticipantsByScore(ctx, tournament.ID)
	if err != nil {
		t.Fatalf("failed to list participants: %v", err)
	}
	if ranked[0].FinalScore != 900 || ranked[1].FinalScore != 800 || ranked[2].FinalScore != 700 {
		t.Errorf("unexpected ranking: %d %d %d", ranked[0].FinalScore, ranked[1].FinalScore, ranked[2].FinalScore)
	}
	if ranked[0].FinalRank == nil || *ranked[0].FinalRank != 1 {
		t.Error("top scorer must carry final rank 1")
	}
	if ranked[0].Status != models.ParticipantStatusWinner {
		t.Errorf("top scorer must be a winner, got %s", ranked[0].Status)
	}
	if ranked[3].FinalRank != nil {
		t.Error("unpaid rank must stay without a final rank")
	}

	// Tournament moves to distributed
	updated, err := repo.GetTournamentByID(ctx, tournament.ID)
	if err != nil {
		t.Fatalf("failed to reload tournament: %v", err)
	}
	if updated.Status != models.TournamentStatusDistributed {
		t.Errorf("expected distributed status, got %s", updated.Status)
	}
	if !updated.PrizePool.Equal(decimal.RequireFromString("475")) {
		t.Errorf("expected pool 475, got %s", updated.PrizePool)
	}

	// Second distribution is rejected
	if _, err := ps.DistributePrizes(ctx, tournament.ID); !errors.Is(err, ErrAlreadyDistributed) {
		t.Fatalf("expected ErrAlreadyDistributed, got %v", err)
	}
}

func TestDistributePrizesRequiresCompletion(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ps := NewPrizeService(repo, testPayoutConfig())

	tournament := seedTournament(t, repo, models.TournamentStatusActive, 100, []int64{500, 300})

	_, err := ps.DistributePrizes(context.Background(), tournament.ID)
	if !errors.Is(err, ErrTournamentNotCompleted) {
		t.Fatalf("expected ErrTournamentNotCompleted, got %v", err)
	}
}

func TestDistributePrizesDropsDustAmounts(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ps := NewPrizeService(repo, testPayoutConfig())
	ctx := context.Background()

	// Entry fee 15 over 3 players: pool 42.75, 3rd place gets 8.55 which is
	// under the minimum payout threshold of 10
	tournament := seedTournament(t, repo, models.TournamentStatusCompleted, 15, []int64{900, 800, 700})

	payouts, err := ps.DistributePrizes(ctx, tournament.ID)
	if err != nil {
		t.Fatalf("DistributePrizes failed: %v", err)
	}

	if len(payouts) != 2 {
		t.Fatalf("expected dust share to be dropped, got %d payouts", len(payouts))
	}
	for _, p := range payouts {
		if p.Amount.LessThan(decimal.NewFromInt(10)) {
			t.Errorf("queued payout below threshold: %s", p.Amount)
		}
	}
}

func TestJoinTournamentRecomputesPool(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ps := NewPrizeService(repo, testPayoutConfig())
	ctx := context.Background()

	tournament := seedTournament(t, repo, models.TournamentStatusActive, 100, nil)

	// First entry: 100 collected, 5% fee, pool 95
	participant, err := ps.JoinTournament(ctx, tournament.ID, testWalletA)
	if err != nil {
		t.Fatalf("JoinTournament failed: %v", err)
	}
	if participant.Status != models.ParticipantStatusRegistered {
		t.Errorf("expected registered participant, got %s", participant.Status)
	}

	updated, err := repo.GetTournamentByID(ctx, tournament.ID)
	if err != nil {
		t.Fatalf("failed to reload tournament: %v", err)
	}
	if updated.CurrentParticipants != 1 {
		t.Errorf("expected 1 participant, got %d", updated.CurrentParticipants)
	}
	if !updated.PrizePool.Equal(decimal.RequireFromString("95")) {
		t.Errorf("expected prize pool 95, got %s", updated.PrizePool)
	}

	// Second entry doubles the pool
	if _, err := ps.JoinTournament(ctx, tournament.ID, testWalletB); err != nil {
		t.Fatalf("JoinTournament failed: %v", err)
	}
	updated, err = repo.GetTournamentByID(ctx, tournament.ID)
	if err != nil {
		t.Fatalf("failed to reload tournament: %v", err)
	}
	if updated.CurrentParticipants != 2 {
		t.Errorf("expected 2 participants, got %d", updated.CurrentParticipants)
	}
	if !updated.PrizePool.Equal(decimal.RequireFromString("190")) {
		t.Errorf("expected prize pool 190, got %s", updated.PrizePool)
	}
}

func TestJoinTournamentRejectsDuplicateAndClosed(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ps := NewPrizeService(repo, testPayoutConfig())
	ctx := context.Background()

	tournament := seedTournament(t, repo, models.TournamentStatusActive, 100, nil)

	if _, err := ps.JoinTournament(ctx, tournament.ID, testWalletA); err != nil {
		t.Fatalf("JoinTournament failed: %v", err)
	}
	if _, err := ps.JoinTournament(ctx, tournament.ID, testWalletA); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}

	closed := seedTournament(t, repo, models.TournamentStatusCompleted, 100, nil)
	if _, err := ps.JoinTournament(ctx, closed.ID, testWalletB); !errors.Is(err, ErrTournamentClosed) {
		t.Fatalf("expected ErrTournamentClosed, got %v", err)
	}
}
