package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound - no item with the requested id.
	ErrNotFound = errors.New("todo item not found")
	// ErrDuplicate - an item with the same id already exists.
	ErrDuplicate = errors.New("duplicated todo item")
)

// Config - ...
type Config struct {
	Driver  string
	Path    string
	DSN     string
	Migrate bool
}

// TodoRepository - ...
type TodoRepository interface {
	// List returns all items in insertion order.
	List(ctx context.Context) ([]Todo, error)
	Get(ctx context.Context, id uuid.UUID) (*Todo, error)
	Create(ctx context.Context, todo Todo) error
	Update(ctx context.Context, id uuid.UUID, update TodoUpdate) (*Todo, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the repository selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (TodoRepository, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFileRepository(cfg.Path), nil
	case "memory":
		repo, err := NewMemRepository()
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "postgres":
		if cfg.Migrate {
			if err := Migrate(cfg.DSN); err != nil {
				return nil, err
			}
		}
		repo, err := InitPGRepository(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
