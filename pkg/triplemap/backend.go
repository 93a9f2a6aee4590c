package triplemap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/triplemap-go/internal/database"
	"github.com/ZanzyTHEbar/triplemap-go/internal/memstore"
	"github.com/ZanzyTHEbar/triplemap-go/internal/pgstore"
	"github.com/ZanzyTHEbar/triplemap-go/pkg/triple"
)

// backend hands out the triple store of a project.
type backend interface {
	Name() string
	Store(project string) (triple.Store, error)
	Ping(ctx context.Context, project string) error
	Close() error
}

func openBackend(ctx context.Context, cfg *Config, log zerolog.Logger) (backend, error) {
	switch {
	case strings.HasPrefix(cfg.URL, "memory:"):
		return newMemBackend(), nil
	case strings.HasPrefix(cfg.URL, "postgres://"), strings.HasPrefix(cfg.URL, "postgresql://"):
		pool, err := pgstore.Connect(ctx, cfg.URL, log)
		if err != nil {
			return nil, err
		}
		return &pgBackend{pool: pool}, nil
	default:
		dm, err := database.NewDBManager(cfg.toInternal(), log)
		if err != nil {
			return nil, err
		}
		return &libsqlBackend{dm: dm}, nil
	}
}

type libsqlBackend struct {
	dm *database.DBManager
}

func (b *libsqlBackend) Name() string { return "libsql" }

func (b *libsqlBackend) Store(project string) (triple.Store, error) {
	return b.dm.Store(project)
}

func (b *libsqlBackend) Ping(ctx context.Context, project string) error {
	return b.dm.Ping(ctx, project)
}

func (b *libsqlBackend) Close() error { return b.dm.Close() }

// pgBackend keeps every project as a graph of one Postgres database.
type pgBackend struct {
	pool *pgstore.Pool
}

func (b *pgBackend) Name() string { return "postgres" }

func (b *pgBackend) Store(project string) (triple.Store, error) {
	return b.pool.Store(project)
}

func (b *pgBackend) Ping(ctx context.Context, _ string) error {
	return b.pool.Ping(ctx)
}

func (b *pgBackend) Close() error {
	b.pool.Close()
	return nil
}

// memBackend keeps one memstore per project for the life of the process.
type memBackend struct {
	mu     sync.Mutex
	stores map[string]*memstore.Store
	closed bool
}

func newMemBackend() *memBackend {
	return &memBackend{stores: make(map[string]*memstore.Store)}
}

func (b *memBackend) Name() string { return "memory" }

func (b *memBackend) Store(project string) (triple.Store, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("memory backend is closed")
	}
	s, ok := b.stores[project]
	if !ok {
		s = memstore.New()
		b.stores[project] = s
	}
	return s, nil
}

func (b *memBackend) Ping(ctx context.Context, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("memory backend is closed")
	}
	return nil
}

func (b *memBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.stores = nil
	return nil
}
