package blockchain

import (
	"context"
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaClient handles Solana blockchain interactions
type SolanaClient struct {
	rpcClient        *rpc.Client
	network          string
	tokenMintAddress string
	platformWallet   string
	serverWallet     *solana.Wallet
}

// NewSolanaClient creates a new Solana client. An explicit rpcURL overrides
// the per-network default endpoint. The platform wallet is the treasury
// address diagnostics report funding for; it never signs anything here.
func NewSolanaClient(network, rpcURL, tokenMintAddress, platformWallet, privateKey string) *SolanaClient {
	if rpcURL == "" {
		switch network {
		case "mainnet-beta":
			rpcURL = "https://api.mainnet-beta.solana.com"
		case "devnet":
			rpcURL = "https://api.devnet.solana.com"
		case "testnet":
			rpcURL = "https://api.testnet.solana.com"
		default:
			rpcURL = "https://api.devnet.solana.com"
		}
	}

	client := &SolanaClient{
		rpcClient:        rpc.New(rpcURL),
		network:          network,
		tokenMintAddress: tokenMintAddress,
		platformWallet:   platformWallet,
	}

	// Initialize server wallet if private key is provided
	if privateKey != "" {
		wallet, err := solana.WalletFromPrivateKeyBase58(privateKey)
		if err != nil {
			log.Printf("Warning: Failed to load server wallet: %v", err)
		} else {
			client.serverWallet = wallet
			log.Printf("Server wallet loaded: %s", wallet.PublicKey())
		}
	}

	return client
}

// ServerWallet returns the loaded server wallet, or nil when not configured
func (s *SolanaClient) ServerWallet() *solana.Wallet {
	return s.serverWallet
}

// SendTransaction sends a signed transaction to the network
func (s *SolanaClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := s.rpcClient.SendTransactionWithOpts(
		ctx,
		tx,
		rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: rpc.CommitmentConfirmed,
		},
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}

// GetRecentBlockhash gets the latest blockhash
func (s *SolanaClient) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	resp, err := s.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get recent blockhash: %w", err)
	}
	return resp.Value.Blockhash, nil
}

// GetBalance returns the SOL balance of an account in lamports
func (s *SolanaClient) GetBalance(ctx context.Context, address string) (uint64, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid address: %w", err)
	}

	resp, err := s.rpcClient.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return resp.Value, nil
}

// VerifyTransaction checks whether a signature reached the requested number
// of confirmations
func (s *SolanaClient) VerifyTransaction(ctx context.Context, signature string) (bool, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return false, fmt.Errorf("invalid signature: %w", err)
	}

	statuses, err := s.rpcClient.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return false, fmt.Errorf("failed to get signature status: %w", err)
	}

	if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
		return false, nil
	}

	status := statuses.Value[0]
	if status.Err != nil {
		return false, fmt.Errorf("transaction failed on-chain: %v", status.Err)
	}

	return status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
		status.ConfirmationStatus == rpc.ConfirmationStatusFinalized, nil
}
