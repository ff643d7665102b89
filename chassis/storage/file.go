package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	log "github.com/freundallein/todo/backend/chassis/logging"
)

// FileRepository keeps every item in a single JSON document.
// Each operation loads the whole file and, for mutations, rewrites it.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileRepository - ...
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// load treats a missing or undecodable file as an empty list.
func (repo *FileRepository) load() ([]Todo, error) {
	data, err := ioutil.ReadFile(repo.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Todo{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", repo.path, err)
	}
	todos := []Todo{}
	if err := json.Unmarshal(data, &todos); err != nil {
		log.WithFields(log.Fields{
			"event": "db_file_decode_failed",
			"path":  repo.path,
		}).Warn(err)
		return []Todo{}, nil
	}
	return todos, nil
}

func (repo *FileRepository) save(todos []Todo) error {
	if todos == nil {
		todos = []Todo{}
	}
	data, err := json.MarshalIndent(todos, "", "    ")
	if err != nil {
		return err
	}
	tmp, err := ioutil.TempFile(filepath.Dir(repo.path), filepath.Base(repo.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", repo.path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", repo.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", repo.path, err)
	}
	if err := os.Rename(tmp.Name(), repo.path); err != nil {
		return fmt.Errorf("save %s: %w", repo.path, err)
	}
	return nil
}

// List - ...
func (repo *FileRepository) List(ctx context.Context) ([]Todo, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.load()
}

// Get - ...
func (repo *FileRepository) Get(ctx context.Context, id uuid.UUID) (*Todo, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	todos, err := repo.load()
	if err != nil {
		return nil, err
	}
	for _, todo := range todos {
		if todo.ID == id {
			found := todo
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// Create - ...
func (repo *FileRepository) Create(ctx context.Context, todo Todo) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	todos, err := repo.load()
	if err != nil {
		return err
	}
	for _, existing := range todos {
		if existing.ID == todo.ID {
			return ErrDuplicate
		}
	}
	return repo.save(append(todos, todo))
}

// Update - ...
func (repo *FileRepository) Update(ctx context.Context, id uuid.UUID, update TodoUpdate) (*Todo, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	todos, err := repo.load()
	if err != nil {
		return nil, err
	}
	for i, current := range todos {
		if current.ID != id {
			continue
		}
		updated := update.Apply(current)
		todos[i] = updated
		if err := repo.save(todos); err != nil {
			return nil, err
		}
		return &updated, nil
	}
	return nil, ErrNotFound
}

// Delete - ...
func (repo *FileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	todos, err := repo.load()
	if err != nil {
		return err
	}
	kept := make([]Todo, 0, len(todos))
	for _, todo := range todos {
		if todo.ID != id {
			kept = append(kept, todo)
		}
	}
	if len(kept) == len(todos) {
		return ErrNotFound
	}
	return repo.save(kept)
}

// Ping checks that the directory holding the file is reachable.
func (repo *FileRepository) Ping(ctx context.Context) error {
	_, err := os.Stat(filepath.Dir(repo.path))
	return err
}

// Close - nothing to release.
func (repo *FileRepository) Close() error {
	return nil
}
