package backend

import (
	"context"
	"errors"
	"fmt"

	"envelopes/internal/amqp"
	"envelopes/internal/cache"
	"envelopes/internal/core"
	"envelopes/internal/ledger"
	"envelopes/internal/ledger/memory"
	applog "envelopes/internal/log"
	"envelopes/internal/services"
	"envelopes/internal/storage"
)

// Dialer opens the publisher used to announce ledger changes.
type Dialer func(url, exchange, queue string) (services.EventPublisher, error)

func dialAMQP(url, exchange, queue string) (services.EventPublisher, error) {
	client, err := amqp.NewClient(url, exchange, queue)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
	dial   Dialer
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
		dial:   dialAMQP,
	}
}

// WithDialer replaces how the AMQP publisher is opened.
func (f *DefaultFactory) WithDialer(dial Dialer) *DefaultFactory {
	f.dial = dial
	return f
}

// CreateBackend opens the store named by config and wires a ledger service
// over it. The AMQP publisher and the month cache are optional; a publisher
// that cannot connect is logged and skipped.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.openStore(config)
	if err != nil {
		return nil, err
	}

	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		publisher, err = f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
				applog.FieldError, err)
			publisher = nil
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	var (
		reports  cache.Cache[core.PeriodReport]
		managers *cache.Manager
	)
	if config.CacheSize > 0 {
		lru := cache.NewLRUCache[core.PeriodReport](config.CacheSize, config.CacheTTL)
		managers = cache.NewManager()
		managers.Register(lru)
		managers.StartCleanup(config.CacheTTL)
		reports = lru
	}

	svc := services.NewLedgerService(store, reports, publisher)
	f.logger.InfoContext(ctx, "Initialized ledger backend",
		"type", config.Type,
		"amqp_enabled", publisher != nil,
		"cache_size", config.CacheSize)

	return &BackendResult{
		Ledger: svc,
		Cleanup: func() error {
			if managers != nil {
				managers.Stop()
			}
			return svc.Close()
		},
	}, nil
}

func (f *DefaultFactory) openStore(config Config) (ledger.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Opened SQLite ledger", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Opened memory ledger", "seed_file", config.SeedFile)
		return memory.NewFromFile(config.SeedFile), nil
	default:
		return nil, errors.New("unsupported backend type: " + config.Type.String())
	}
}
