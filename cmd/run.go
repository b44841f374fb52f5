package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"governor/config"
	"governor/database"
	"governor/events"
	"governor/repository"
	"governor/service"
)

// workerInterval is how often the background worker tries to distribute
// funds and close the interest epoch. Both operations stay
// caller-triggerable; the worker just keeps them from going stale.
const workerInterval = time.Hour

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting governor engine...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	log.Println("Initializing event bus...")
	eventBus := events.NewBus()
	log.Println("Event bus initialized successfully")

	// Initialize unit of work factory
	log.Println("Initializing unit of work factory...")
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	log.Println("Unit of work factory initialized successfully")

	// Initialize services
	log.Println("Initializing services...")
	governanceService := service.NewGovernanceService(uowFactory)
	treasuryService := service.NewTreasuryService(uowFactory, cfg.MinDistribution)
	interestService := service.NewInterestService(uowFactory)
	log.Println("Services initialized successfully")

	// Persist the configured epoch length into the treasury row
	if err := interestService.EnsureEpochLength(ctx, cfg.EpochSeconds); err != nil {
		return fmt.Errorf("failed to configure epoch length: %w", err)
	}

	// Seed the protected founding rule at registry position 0
	if err := governanceService.EnsureFoundingRule(ctx, cfg.FoundingExecutor, cfg.FoundingPercent); err != nil {
		return fmt.Errorf("failed to ensure founding rule: %w", err)
	}

	// Periodic distribution / epoch worker
	go runTreasuryWorker(ctx, treasuryService, interestService)

	// Wait for context cancellation
	log.Printf("Engine is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down engine...")

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close database connection
	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}

// runTreasuryWorker periodically attempts a distribution pass and an
// epoch close. Threshold and too-early rejections are the normal idle
// case, not failures.
func runTreasuryWorker(ctx context.Context, treasury service.TreasuryService, interest service.InterestService) {
	ticker := time.NewTicker(workerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := treasury.Distribute(ctx); err != nil && !service.IsCode(err, service.ErrCodeThreshold) {
				log.Printf("Distribution pass failed: %v", err)
			}
			if err := interest.DivideUpInterest(ctx); err != nil && !service.IsCode(err, service.ErrCodeTooEarly) {
				log.Printf("Epoch close failed: %v", err)
			}
		}
	}
}
