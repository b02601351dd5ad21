package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"arcade-arena/internal/auth"
	"arcade-arena/internal/blockchain"
	"arcade-arena/internal/config"
	"arcade-arena/internal/database"
	"arcade-arena/internal/handlers"
	"arcade-arena/internal/jobs"
	"arcade-arena/internal/repository"
	"arcade-arena/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed detection rules (no-op for rules that already exist)
	if err := database.SeedDetectionRules(cfg.Monitoring); err != nil {
		log.Fatalf("Failed to seed detection rules: %v", err)
	}

	// Initialize repository
	repo := repository.NewRepository(database.GetDB())

	// Initialize services
	authService := services.NewAuthService(database.GetDB())
	analyzerService := services.NewAnalyzerService(repo, cfg.Monitoring)
	trustService := services.NewTrustService(repo, analyzerService, cfg.Monitoring)
	adminService := services.NewAdminService(repo)
	payoutService := services.NewPayoutService(repo, cfg.Payout)
	prizeService := services.NewPrizeService(repo, cfg.Payout)

	// Initialize settlement executor. Mock mode skips the Solana client
	// entirely so the server can run without a funded wallet.
	var solanaClient *blockchain.SolanaClient
	var executor blockchain.SettlementExecutor
	if cfg.Solana.MockSettlement {
		executor = blockchain.NewMockSettlementExecutor()
		log.Println("Settlement running in mock mode, no on-chain transfers")
	} else {
		solanaClient = blockchain.NewSolanaClient(
			cfg.Solana.Network,
			cfg.Solana.RPCURL,
			cfg.Solana.TokenMintAddress,
			cfg.Solana.PlatformWalletAddress,
			cfg.Solana.ServerWalletPrivateKey,
		)
		executor = blockchain.NewSolanaSettlementExecutor(solanaClient, cfg.Solana.TokenMintAddress, 9)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	sessionHandler := handlers.NewSessionHandler(trustService)
	monitoringHandler := handlers.NewMonitoringHandler(repo, trustService, adminService)
	tournamentHandler := handlers.NewTournamentHandler(repo, prizeService)
	payoutHandler := handlers.NewPayoutHandler(payoutService, solanaClient)

	// Start payout processor job
	payoutProcessor := jobs.NewPayoutProcessor(repo, executor, cfg.Payout)
	go payoutProcessor.Start()
	log.Println("Payout processor started")

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000", // Local development
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	// Add additional frontend URL from environment if provided
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/wallet", authHandler.WalletLogin)
		authRoutes.POST("/logout", authHandler.Logout)
	}

	// Public ban status check (game clients poll this before starting a game)
	router.GET("/ban-status/:wallet", sessionHandler.GetBanStatus)

	// Public tournament routes
	router.GET("/api/tournaments/preview", tournamentHandler.PreviewPrizes)
	router.GET("/api/tournaments/:id", tournamentHandler.GetTournament)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		api.POST("/sessions", sessionHandler.RecordSession)
		api.POST("/tournaments/:id/join", tournamentHandler.JoinTournament)
		api.GET("/transactions", payoutHandler.GetTransactionHistory)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(monitoringHandler.AdminMiddleware())
	{
		admin.GET("/dashboard", monitoringHandler.GetDashboard)

		// Suspicious activity review
		admin.GET("/suspicious", monitoringHandler.ListSuspiciousActivities)
		admin.POST("/suspicious/:id/review", monitoringHandler.ReviewActivity)

		// Ban management
		admin.GET("/bans", monitoringHandler.ListBans)
		admin.POST("/bans", monitoringHandler.BanPlayer)
		admin.POST("/bans/:wallet/unban", monitoringHandler.UnbanPlayer)

		// Player reports
		admin.GET("/players/:wallet", monitoringHandler.GetPlayerReport)

		// Detection rule tuning
		admin.GET("/rules", monitoringHandler.ListRules)
		admin.PATCH("/rules/:name", monitoringHandler.UpdateRule)

		// Settlement queue management
		admin.GET("/payouts/status", payoutHandler.GetQueueStatus)
		admin.POST("/payouts/retry", payoutHandler.RetryFailedPayouts)
		admin.GET("/payouts/diagnostics", payoutHandler.GetDiagnostics)
		admin.GET("/payouts/verify/:signature", payoutHandler.VerifyPayout)

		// Tournament settlement
		admin.POST("/tournaments/:id/distribute", tournamentHandler.DistributePrizes)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)
		log.Printf("Wallet auth: POST http://localhost:%s/auth/wallet", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Stop the payout processor before the HTTP server so no job is cut off
	// mid-transfer by process exit.
	payoutProcessor.Stop()

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
