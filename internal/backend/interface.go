package backend

import (
	"context"
	"time"

	"envelopes/internal/services"
)

// CleanupFunc releases what a backend holds.
type CleanupFunc func() error

// BackendResult is a wired ledger service and the function that tears it down.
type BackendResult struct {
	Ledger  *services.LedgerService
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory specific: "Group: Envelope" lines loaded at start
	SeedFile string

	// Ledger events, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Populated month cache; zero size disables it
	CacheSize int
	CacheTTL  time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
