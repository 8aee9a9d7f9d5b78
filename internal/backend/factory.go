package backend

import (
	"context"
	"fmt"

	"mindcash/internal/amqp"
	"mindcash/internal/kv"
	mclog "mindcash/internal/log"
	"mindcash/internal/storage"
)

type Factory struct {
	logger *mclog.Logger
}

func NewFactory(logger *mclog.Logger) *Factory {
	if logger == nil {
		logger = mclog.New(mclog.DefaultConfig()).WithComponent(mclog.ComponentBackend)
	}
	return &Factory{logger: logger}
}

// CreateBackend assembles the store described by config.
func (f *Factory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLite(ctx, config)
	case MemoryBackend:
		return f.createMemory(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *Factory) createSQLite(ctx context.Context, config Config) (*Result, error) {
	repo, err := storage.NewRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	// AMQP is optional; without it transactions simply stay pending for the
	// worker's periodic scan.
	var publisher *amqp.Client
	if config.AMQPURL != "" {
		publisher, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("failed to initialize AMQP client, continuing without sync events", "error", err)
			publisher = nil
		} else {
			f.logger.Info("initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	f.logger.Info("initialized sqlite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)

	cleanup := func() error {
		if publisher != nil {
			publisher.Close()
		}
		return repo.Close()
	}
	return &Result{Store: repo, Publisher: publisher, Cleanup: cleanup}, nil
}

func (f *Factory) createMemory(config Config) (*Result, error) {
	var kvStore *kv.FileStore
	if config.DataFile != "" {
		var err error
		kvStore, err = kv.NewFileStore(config.DataFile)
		if err != nil {
			return nil, fmt.Errorf("open data file: %w", err)
		}
	} else {
		kvStore = kv.NewMemory()
	}

	f.logger.Info("initialized memory backend",
		"data_file", config.DataFile,
		"persistent", config.DataFile != "")

	return &Result{
		Store:   NewMemoryStore(kvStore),
		Cleanup: func() error { return nil },
	}, nil
}
