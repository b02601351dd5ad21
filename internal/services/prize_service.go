package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"arcade-arena/internal/config"
	"arcade-arena/internal/models"
	"arcade-arena/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrTournamentNotCompleted is returned when distribution is requested
// before the tournament finished
var ErrTournamentNotCompleted = errors.New("tournament is not completed yet")

// ErrAlreadyDistributed is returned when prizes were already paid out
var ErrAlreadyDistributed = errors.New("tournament prizes already distributed")

// ErrTournamentClosed is returned when a wallet tries to enter a tournament
// that is no longer accepting entries
var ErrTournamentClosed = errors.New("tournament is not accepting entries")

// ErrAlreadyJoined is returned when a wallet enters the same tournament twice
var ErrAlreadyJoined = errors.New("wallet already joined this tournament")

// prizeBand assigns one flat percentage to every rank in [FromRank, ToRank]
type prizeBand struct {
	Place       string
	FromRank    int
	ToRank      int
	PercentEach decimal.Decimal
}

// prizeTier is a participant-count bucket selecting a distribution table
type prizeTier struct {
	Name            string
	MinParticipants int
	MaxParticipants int
	Bands           []prizeBand
}

func pct(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// The tier catalogue. Within every tier the per-rank percentages sum to
// exactly 100, so computed amounts always reconcile to the prize pool.
// The two lowest mega bands are set so the whole table closes at 100
// instead of overcommitting the pool.
var prizeTiers = []prizeTier{
	{
		Name:            "small",
		MinParticipants: 1,
		MaxParticipants: 20,
		Bands: []prizeBand{
			{Place: "1st", FromRank: 1, ToRank: 1, PercentEach: pct("50")},
			{Place: "2nd", FromRank: 2, ToRank: 2, PercentEach: pct("30")},
			{Place: "3rd", FromRank: 3, ToRank: 3, PercentEach: pct("20")},
		},
	},
	{
		Name:            "medium",
		MinParticipants: 21,
		MaxParticipants: 50,
		Bands: []prizeBand{
			{Place: "1st", FromRank: 1, ToRank: 1, PercentEach: pct("40")},
			{Place: "2nd", FromRank: 2, ToRank: 2, PercentEach: pct("25")},
			{Place: "3rd", FromRank: 3, ToRank: 3, PercentEach: pct("15")},
			{Place: "4th", FromRank: 4, ToRank: 4, PercentEach: pct("10")},
			{Place: "5th", FromRank: 5, ToRank: 5, PercentEach: pct("10")},
		},
	},
	{
		Name:            "large",
		MinParticipants: 51,
		MaxParticipants: 100,
		Bands: []prizeBand{
			{Place: "1st", FromRank: 1, ToRank: 1, PercentEach: pct("35")},
			{Place: "2nd", FromRank: 2, ToRank: 2, PercentEach: pct("20")},
			{Place: "3rd", FromRank: 3, ToRank: 3, PercentEach: pct("12")},
			{Place: "4th", FromRank: 4, ToRank: 4, PercentEach: pct("8")},
			{Place: "5th", FromRank: 5, ToRank: 5, PercentEach: pct("5")},
			{Place: "6th", FromRank: 6, ToRank: 6, PercentEach: pct("4")},
			{Place: "7th", FromRank: 7, ToRank: 7, PercentEach: pct("4")},
			{Place: "8th", FromRank: 8, ToRank: 8, PercentEach: pct("4")},
			{Place: "9th", FromRank: 9, ToRank: 9, PercentEach: pct("4")},
			{Place: "10th", FromRank: 10, ToRank: 10, PercentEach: pct("4")},
		},
	},
	{
		Name:            "mega",
		MinParticipants: 101,
		MaxParticipants: 10000,
		Bands: []prizeBand{
			{Place: "1st", FromRank: 1, ToRank: 1, PercentEach: pct("30")},
			{Place: "2nd", FromRank: 2, ToRank: 2, PercentEach: pct("15")},
			{Place: "3rd", FromRank: 3, ToRank: 3, PercentEach: pct("10")},
			{Place: "4th", FromRank: 4, ToRank: 4, PercentEach: pct("7")},
			{Place: "5th", FromRank: 5, ToRank: 5, PercentEach: pct("5")},
			{Place: "6th-10th", FromRank: 6, ToRank: 10, PercentEach: pct("3")},
			{Place: "11th-20th", FromRank: 11, ToRank: 20, PercentEach: pct("1.2")},
			{Place: "21st-50th", FromRank: 21, ToRank: 50, PercentEach: pct("0.2")},
		},
	},
}

// tierPercentTotal sums percent over every payable rank in the tier
func tierPercentTotal(tier prizeTier) decimal.Decimal {
	total := decimal.Zero
	for _, band := range tier.Bands {
		ranks := decimal.NewFromInt(int64(band.ToRank - band.FromRank + 1))
		total = total.Add(band.PercentEach.Mul(ranks))
	}
	return total
}

// PrizeShare is one bucket of the computed distribution table
type PrizeShare struct {
	Place      string          `json:"place"`
	FromRank   int             `json:"from_rank"`
	ToRank     int             `json:"to_rank"`
	Percent    decimal.Decimal `json:"percent"`
	AmountEach decimal.Decimal `json:"amount_each"`
}

// PrizeCalculation is the prize table derived from entry fees
type PrizeCalculation struct {
	Tier           string          `json:"tier"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	PlatformFee    decimal.Decimal `json:"platform_fee"`
	PrizePool      decimal.Decimal `json:"prize_pool"`
	Distribution   []PrizeShare    `json:"distribution"`
}

// PrizeService derives prize tables from entry fees and turns finished
// tournaments into payout jobs
type PrizeService struct {
	repo *repository.Repository
	cfg  config.PayoutConfig
}

func NewPrizeService(repo *repository.Repository, cfg config.PayoutConfig) *PrizeService {
	return &PrizeService{repo: repo, cfg: cfg}
}

// PlatformFeePercent returns the configured platform cut
func (ps *PrizeService) PlatformFeePercent() float64 {
	return ps.cfg.PlatformFeePercent
}

// Calculate derives the prize pool and place table for a tournament
func (ps *PrizeService) Calculate(entryFee decimal.Decimal, participants int, feePercent float64) (*PrizeCalculation, error) {
	if participants < 1 {
		return nil, errors.New("participant count must be at least 1")
	}
	if entryFee.IsNegative() {
		return nil, errors.New("entry fee must not be negative")
	}

	tier := selectTier(participants)

	totalCollected := entryFee.Mul(decimal.NewFromInt(int64(participants)))
	platformFee := totalCollected.Mul(decimal.NewFromFloat(feePercent)).Div(decimal.NewFromInt(100))
	prizePool := totalCollected.Sub(platformFee)

	calc := &PrizeCalculation{
		Tier:           tier.Name,
		TotalCollected: totalCollected,
		PlatformFee:    platformFee,
		PrizePool:      prizePool,
	}

	hundred := decimal.NewFromInt(100)
	for _, band := range tier.Bands {
		calc.Distribution = append(calc.Distribution, PrizeShare{
			Place:      band.Place,
			FromRank:   band.FromRank,
			ToRank:     band.ToRank,
			Percent:    band.PercentEach,
			AmountEach: prizePool.Mul(band.PercentEach).Div(hundred),
		})
	}

	return calc, nil
}

func selectTier(participants int) prizeTier {
	for _, tier := range prizeTiers {
		if participants >= tier.MinParticipants && participants <= tier.MaxParticipants {
			return tier
		}
	}
	// Beyond the catalogue ceiling the mega split still applies
	return prizeTiers[len(prizeTiers)-1]
}

// RankKey maps a final rank to its place bucket, or "" for unplaced ranks
func (ps *PrizeService) RankKey(rank, participants int) string {
	tier := selectTier(participants)
	for _, band := range tier.Bands {
		if rank >= band.FromRank && rank <= band.ToRank {
			return band.Place
		}
	}
	return ""
}

// JoinTournament registers a wallet in an open tournament and recomputes
// the prize pool from the new entry count
func (ps *PrizeService) JoinTournament(ctx context.Context, tournamentID uuid.UUID, wallet string) (*models.TournamentParticipant, error) {
	tournament, err := ps.repo.GetTournamentByID(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("tournament not found: %w", err)
	}

	if tournament.Status != models.TournamentStatusUpcoming && tournament.Status != models.TournamentStatusActive {
		return nil, ErrTournamentClosed
	}

	if _, err := ps.repo.GetParticipant(ctx, tournamentID, wallet); err == nil {
		return nil, ErrAlreadyJoined
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check participant: %w", err)
	}

	now := time.Now()
	participant := &models.TournamentParticipant{
		ID:           uuid.New(),
		TournamentID: tournamentID,
		Wallet:       wallet,
		Status:       models.ParticipantStatusRegistered,
		JoinedAt:     now,
		CreatedAt:    now,
	}

	err = ps.repo.DB().Transaction(func(tx *gorm.DB) error {
		txRepo := repository.NewRepository(tx)
		if err := txRepo.CreateParticipant(ctx, participant); err != nil {
			return fmt.Errorf("failed to register participant: %w", err)
		}
		tournament.CurrentParticipants++
		if err := txRepo.SaveTournament(ctx, tournament); err != nil {
			return fmt.Errorf("failed to update tournament: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := ps.UpdateTournamentPrizePool(ctx, tournamentID); err != nil {
		return nil, err
	}

	log.Printf("Wallet %s joined tournament %s (%d entries)", wallet, tournamentID, tournament.CurrentParticipants)
	return participant, nil
}

// UpdateTournamentPrizePool recomputes and stores the prize pool as
// participants join
func (ps *PrizeService) UpdateTournamentPrizePool(ctx context.Context, tournamentID uuid.UUID) error {
	tournament, err := ps.repo.GetTournamentByID(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("tournament not found: %w", err)
	}

	if tournament.CurrentParticipants < 1 {
		return nil
	}

	calc, err := ps.Calculate(tournament.EntryFee, tournament.CurrentParticipants, ps.cfg.PlatformFeePercent)
	if err != nil {
		return err
	}

	tournament.PrizePool = calc.PrizePool
	tournament.PrizeDistribution = distributionJSON(calc)

	if err := ps.repo.SaveTournament(ctx, tournament); err != nil {
		return fmt.Errorf("failed to save tournament: %w", err)
	}

	log.Printf("Prize pool updated for tournament %s: participants=%d collected=%s fee=%s pool=%s",
		tournamentID, tournament.CurrentParticipants,
		calc.TotalCollected, calc.PlatformFee, calc.PrizePool)
	return nil
}

func distributionJSON(calc *PrizeCalculation) models.JSONB {
	dist := models.JSONB{}
	for _, share := range calc.Distribution {
		dist[share.Place] = share.Percent.InexactFloat64()
	}
	return dist
}

// DistributePrizes turns a completed tournament into payout jobs. Ranks are
// assigned by descending final score with ties broken by submission order;
// amounts under the minimum payout threshold are dropped, not queued. The
// participant updates, tournament state change, and job inserts commit
// together.
func (ps *PrizeService) DistributePrizes(ctx context.Context, tournamentID uuid.UUID) ([]*models.PendingPayout, error) {
	tournament, err := ps.repo.GetTournamentByID(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("tournament not found: %w", err)
	}

	if tournament.Status == models.TournamentStatusDistributed {
		return nil, ErrAlreadyDistributed
	}
	if tournament.Status != models.TournamentStatusCompleted {
		return nil, ErrTournamentNotCompleted
	}

	participants, err := ps.repo.ListParticipantsByScore(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	if len(participants) == 0 {
		return nil, errors.New("no participants found")
	}

	calc, err := ps.Calculate(tournament.EntryFee, len(participants), ps.cfg.PlatformFeePercent)
	if err != nil {
		return nil, err
	}

	minPayout := decimal.NewFromFloat(ps.cfg.MinPayoutThreshold)
	now := time.Now()
	scheduledFor := now.Add(ps.cfg.DisputeWindow)

	var payouts []*models.PendingPayout

	err = ps.repo.DB().Transaction(func(tx *gorm.DB) error {
		txRepo := repository.NewRepository(tx)

		for i, participant := range participants {
			rank := i + 1

			share, ok := shareForRank(calc, rank)
			if !ok {
				continue
			}
			if share.AmountEach.LessThan(minPayout) {
				continue
			}

			participant.FinalRank = &rank
			participant.PrizeWon = share.AmountEach
			participant.Status = models.ParticipantStatusWinner
			if err := txRepo.SaveParticipant(ctx, participant); err != nil {
				return fmt.Errorf("failed to update participant %s: %w", participant.Wallet, err)
			}

			payout := &models.PendingPayout{
				ID:           uuid.New(),
				Wallet:       participant.Wallet,
				Amount:       share.AmountEach,
				Currency:     tournament.Currency,
				Reason:       "tournament_prize",
				ReferenceID:  tournamentID.String(),
				Status:       models.PayoutStatusQueued,
				MaxAttempts:  ps.cfg.MaxAttempts,
				ScheduledFor: scheduledFor,
				CreatedAt:    now,
			}
			if err := txRepo.CreatePendingPayout(ctx, payout); err != nil {
				return fmt.Errorf("failed to enqueue payout for %s: %w", participant.Wallet, err)
			}
			payouts = append(payouts, payout)
		}

		tournament.Status = models.TournamentStatusDistributed
		tournament.PrizePool = calc.PrizePool
		tournament.PrizeDistribution = distributionJSON(calc)
		if err := txRepo.SaveTournament(ctx, tournament); err != nil {
			return fmt.Errorf("failed to update tournament: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Queued %d prize payouts for tournament %s (pool %s %s)",
		len(payouts), tournamentID, calc.PrizePool, tournament.Currency)
	return payouts, nil
}

func shareForRank(calc *PrizeCalculation, rank int) (PrizeShare, bool) {
	for _, share := range calc.Distribution {
		if rank >= share.FromRank && rank <= share.ToRank {
			return share, true
		}
	}
	return PrizeShare{}, false
}
