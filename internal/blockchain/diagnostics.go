package blockchain

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// DiagnosticResult holds the result of a settlement connectivity diagnostic
type DiagnosticResult struct {
	RPCConnected          bool   `json:"rpc_connected"`
	RPCError              string `json:"rpc_error,omitempty"`
	LatestBlockhash       string `json:"latest_blockhash,omitempty"`
	ServerWalletSet       bool   `json:"server_wallet_set"`
	ServerWalletPubkey    string `json:"server_wallet_pubkey,omitempty"`
	ServerWalletBalance   string `json:"server_wallet_balance,omitempty"`
	BalanceError          string `json:"balance_error,omitempty"`
	PlatformWalletSet     bool   `json:"platform_wallet_set"`
	PlatformWalletPubkey  string `json:"platform_wallet_pubkey,omitempty"`
	PlatformWalletBalance string `json:"platform_wallet_balance,omitempty"`
	PlatformBalanceError  string `json:"platform_balance_error,omitempty"`
	Network               string `json:"network"`
	Timestamp             string `json:"timestamp"`
}

// RunDiagnostics checks RPC connectivity and the server wallet funding.
// Surfaced on the admin payouts health endpoint.
func (s *SolanaClient) RunDiagnostics(ctx context.Context) *DiagnosticResult {
	result := &DiagnosticResult{
		Network:   s.network,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	log.Printf("[Diagnostics] Testing RPC connectivity...")
	blockhash, err := s.GetRecentBlockhash(ctx)
	if err != nil {
		result.RPCConnected = false
		result.RPCError = err.Error()
		log.Printf("[Diagnostics] RPC failed: %v", err)
	} else {
		result.RPCConnected = true
		result.LatestBlockhash = blockhash.String()
	}

	if s.serverWallet == nil {
		result.ServerWalletSet = false
		log.Printf("[Diagnostics] Server wallet not configured")
	} else {
		result.ServerWalletSet = true
		result.ServerWalletPubkey = s.serverWallet.PublicKey().String()

		if result.RPCConnected {
			lamports, err := s.GetBalance(ctx, result.ServerWalletPubkey)
			if err != nil {
				result.BalanceError = err.Error()
			} else {
				result.ServerWalletBalance = formatSOL(lamports)
			}
		}
	}

	if s.platformWallet != "" {
		result.PlatformWalletSet = true
		result.PlatformWalletPubkey = s.platformWallet

		if result.RPCConnected {
			lamports, err := s.GetBalance(ctx, s.platformWallet)
			if err != nil {
				result.PlatformBalanceError = err.Error()
			} else {
				result.PlatformWalletBalance = formatSOL(lamports)
			}
		}
	}

	return result
}

func formatSOL(lamports uint64) string {
	sol := decimal.NewFromInt(int64(lamports)).Div(decimal.NewFromInt(lamportsPerSOL))
	return sol.String() + " SOL"
}
