package blockchain

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferResult is the outcome of one settlement transfer
type TransferResult struct {
	Signature string `json:"signature"`
	Success   bool   `json:"success"`
}

// SettlementExecutor is the capability that actually moves funds on-chain.
// The settlement worker treats it as opaque; failures are retryable.
type SettlementExecutor interface {
	Transfer(ctx context.Context, recipient string, amount decimal.Decimal, currency string) (*TransferResult, error)
}

const lamportsPerSOL = 1_000_000_000

// SolanaSettlementExecutor executes transfers signed by the server wallet.
// "SOL" moves lamports through the system program; any other currency is
// treated as an SPL token transfer between associated token accounts of the
// configured mint.
type SolanaSettlementExecutor struct {
	client        *SolanaClient
	tokenMint     string
	tokenDecimals int32
}

func NewSolanaSettlementExecutor(client *SolanaClient, tokenMint string, tokenDecimals int32) *SolanaSettlementExecutor {
	if tokenDecimals <= 0 {
		tokenDecimals = 9
	}
	return &SolanaSettlementExecutor{
		client:        client,
		tokenMint:     tokenMint,
		tokenDecimals: tokenDecimals,
	}
}

// Transfer sends amount to recipient and waits for the send to be accepted
// by the RPC node. The returned signature is the on-chain reference.
func (e *SolanaSettlementExecutor) Transfer(ctx context.Context, recipient string, amount decimal.Decimal, currency string) (*TransferResult, error) {
	wallet := e.client.ServerWallet()
	if wallet == nil {
		return nil, errors.New("server wallet not configured")
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("transfer amount must be positive, got %s", amount)
	}

	recipientKey, err := solana.PublicKeyFromBase58(recipient)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}

	var instruction solana.Instruction
	if currency == "SOL" {
		lamports := amount.Mul(decimal.NewFromInt(lamportsPerSOL)).BigInt().Uint64()
		instruction = system.NewTransferInstruction(
			lamports,
			wallet.PublicKey(),
			recipientKey,
		).Build()
	} else {
		instruction, err = e.buildTokenTransfer(wallet.PublicKey(), recipientKey, amount)
		if err != nil {
			return nil, err
		}
	}

	blockhash, err := e.client.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		blockhash,
		solana.TransactionPayer(wallet.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(wallet.PublicKey()) {
			return &wallet.PrivateKey
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := e.client.SendTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}

	log.Printf("Settlement transfer sent: %s %s to %s (%s)", amount, currency, recipient, sig)
	return &TransferResult{Signature: sig.String(), Success: true}, nil
}

// buildTokenTransfer moves SPL tokens between the associated token accounts
// of sender and recipient. The recipient ATA must already exist; a missing
// account fails the send and comes back as a retryable error.
func (e *SolanaSettlementExecutor) buildTokenTransfer(sender, recipient solana.PublicKey, amount decimal.Decimal) (solana.Instruction, error) {
	if e.tokenMint == "" {
		return nil, errors.New("token mint not configured")
	}

	mint, err := solana.PublicKeyFromBase58(e.tokenMint)
	if err != nil {
		return nil, fmt.Errorf("invalid token mint: %w", err)
	}

	sourceATA, _, err := solana.FindAssociatedTokenAddress(sender, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive source token account: %w", err)
	}

	destATA, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive destination token account: %w", err)
	}

	units := amount.Shift(e.tokenDecimals).BigInt().Uint64()

	return token.NewTransferInstruction(
		units,
		sourceATA,
		destATA,
		sender,
		nil,
	).Build(), nil
}

// MockSettlementExecutor records transfers without touching the chain.
// Used in development environments without a funded server wallet.
type MockSettlementExecutor struct{}

func NewMockSettlementExecutor() *MockSettlementExecutor {
	return &MockSettlementExecutor{}
}

func (e *MockSettlementExecutor) Transfer(ctx context.Context, recipient string, amount decimal.Decimal, currency string) (*TransferResult, error) {
	sig := "mock_" + uuid.New().String()
	log.Printf("[MockSettlement] Simulated transfer: %s %s to %s (%s)", amount, currency, recipient, sig)
	return &TransferResult{Signature: sig, Success: true}, nil
}
