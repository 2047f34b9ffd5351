package common

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"

	"custody-capital-go/internal/api"
	"custody-capital-go/internal/custody"
	"custody-capital-go/internal/database"
	"custody-capital-go/internal/formance"
	"custody-capital-go/internal/models"
	"custody-capital-go/internal/notify"
	"custody-capital-go/internal/prime"
	"custody-capital-go/internal/store"
	"custody-capital-go/internal/transfer"

	"github.com/coinbase-samples/prime-sdk-go/credentials"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		// Only log if the file exists but couldn't be read
		// (godotenv returns an error if .env doesn't exist)
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService  *database.Service
	Ledger     *api.LedgerService
	Dispatcher *transfer.Dispatcher

	// Notifications delivers notifier traffic off the ledger lock
	Notifications *notify.Queue
	Assets        AssetRegistry

	closers []func()
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires the custody core to its database, notifiers and
// transfer backend. The dispatcher is returned unstarted.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	services := &Services{DbService: dbService}

	assets, err := LoadAssetRegistry(cfg.Transfer.AssetsFile)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Assets = assets
	zap.L().Info("Loaded asset registry", zap.Int("assets", len(assets)))

	notifier, err := services.initializeNotifiers(ctx, cfg)
	if err != nil {
		services.Close()
		return nil, err
	}

	sender, err := services.initializeSender(ctx, cfg)
	if err != nil {
		services.Close()
		return nil, err
	}

	var ledger *api.LedgerService
	services.Dispatcher = transfer.NewDispatcher(transfer.DispatcherConfig{
		Sender:    sender,
		QueueSize: cfg.Transfer.QueueSize,
		OnResult: func(ctx context.Context, result models.TransferResult) {
			ledger.HandleTransferResult(ctx, result)
		},
	})

	custodyCfg := cfg.Custody
	custodyCfg.AcceptedTokens = append(slices.Clone(cfg.Custody.AcceptedTokens), assets.AssetIds()...)

	core := custody.NewService(custodyCfg,
		custody.WithNotifier(notifier),
		custody.WithTransferer(services.Dispatcher))

	ledger, err = api.NewLedgerService(ctx, core, dbService)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Ledger = ledger

	return services, nil
}

func (cs *Services) initializeNotifiers(ctx context.Context, cfg *models.Config) (store.Notifier, error) {
	notifiers := notify.Multi{notify.LogNotifier{}}

	if cfg.Notify.RedisURL != "" {
		client, err := notify.DialRedis(ctx, cfg.Notify.RedisURL)
		if err != nil {
			return nil, err
		}
		cs.closers = append(cs.closers, func() {
			if err := client.Close(); err != nil {
				zap.L().Warn("Failed to close redis client", zap.Error(err))
			}
		})
		notifiers = append(notifiers, notify.NewRedisNotifier(client, cfg.Notify.RedisChannel))
		zap.L().Info("Publishing notifications to Redis", zap.String("channel", cfg.Notify.RedisChannel))
	}

	if cfg.Formance.Enabled() {
		journal, err := formance.NewService(ctx, cfg.Formance)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, journal.WithAssetPrecision(cs.Assets.Precision()))
	}

	cs.Notifications = notify.NewQueue(notifiers, cfg.Notify.QueueSize)
	return cs.Notifications, nil
}

func (cs *Services) initializeSender(ctx context.Context, cfg *models.Config) (transfer.Sender, error) {
	if cfg.Transfer.Backend != "prime" {
		zap.L().Info("Using log transfer backend")
		return transfer.LogSender{}, nil
	}

	zap.L().Info("Loading Prime API credentials")
	creds, err := loadPrimeCredentials()
	if err != nil {
		return nil, err
	}

	primeService, err := prime.NewService(creds)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Finding default portfolio")
	defaultPortfolio, err := primeService.ResolvePortfolio(ctx, prime.DefaultPortfolioName)
	if err != nil {
		return nil, err
	}
	zap.L().Info("Using default portfolio",
		zap.String("name", defaultPortfolio.Name),
		zap.String("id", defaultPortfolio.Id))

	return prime.NewSender(primeService, defaultPortfolio.Id, cs.Assets.PrimeRoutes()), nil
}

// InitializeDatabaseOnly initializes just the database service without the custody core
// Useful for read-only operations like reporting balances
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	for i := len(cs.closers) - 1; i >= 0; i-- {
		cs.closers[i]()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func loadPrimeCredentials() (*credentials.Credentials, error) {
	accessKey := os.Getenv("PRIME_ACCESS_KEY")
	passphrase := os.Getenv("PRIME_PASSPHRASE")
	signingKey := os.Getenv("PRIME_SIGNING_KEY")

	if accessKey == "" || passphrase == "" || signingKey == "" {
		return nil, fmt.Errorf("missing required Prime API credentials: PRIME_ACCESS_KEY, PRIME_PASSPHRASE, PRIME_SIGNING_KEY")
	}

	return &credentials.Credentials{
		AccessKey:  accessKey,
		Passphrase: passphrase,
		SigningKey: signingKey,
	}, nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
