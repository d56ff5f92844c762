// Package slot provides the persistent key-value slot the task list is stored in.
package slot

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("slot: key not found")

// Slot is a persistent key-value store holding whole values.
// Put replaces the value; there are no partial updates.
type Slot interface {
	// Get returns the stored value, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error

	// Close releases the backend connection.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

// Backends lists the supported backend names.
var Backends = []string{BackendFile, BackendMemory, BackendRedis, BackendPostgres, BackendMySQL}

// Options selects and configures a backend.
type Options struct {
	Backend string

	// Dir is the directory for the file backend.
	Dir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresDSN string
	MySQLDSN    string
}

// Open connects to the configured backend.
func Open(ctx context.Context, opts Options) (Slot, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case BackendFile, "":
		return NewFile(opts.Dir)
	case BackendMemory:
		return NewMemory(), nil
	case BackendRedis:
		return NewRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	case BackendPostgres:
		return NewPostgres(ctx, opts.PostgresDSN)
	case BackendMySQL:
		return NewMySQL(ctx, opts.MySQLDSN)
	default:
		return nil, fmt.Errorf("slot: unknown backend %q", opts.Backend)
	}
}

// IsBackend reports whether name is a supported backend.
func IsBackend(name string) bool {
	for _, b := range Backends {
		if b == name {
			return true
		}
	}
	return false
}
