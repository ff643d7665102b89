package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
)

const todoTable = "todo"

type memTodo struct {
	ID   string
	Seq  uint64
	Todo Todo
}

var memSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		todoTable: {
			Name: todoTable,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				// seq keeps insertion order for List
				"seq": {
					Name:    "seq",
					Unique:  true,
					Indexer: &memdb.UintFieldIndex{Field: "Seq"},
				},
			},
		},
	},
}

// MemRepository is a process-local repository backed by go-memdb.
type MemRepository struct {
	db  *memdb.MemDB
	seq uint64
}

// NewMemRepository - ...
func NewMemRepository() (*MemRepository, error) {
	db, err := memdb.NewMemDB(memSchema)
	if err != nil {
		return nil, fmt.Errorf("memdb: %w", err)
	}
	return &MemRepository{db: db}, nil
}

// List - ...
func (repo *MemRepository) List(ctx context.Context) ([]Todo, error) {
	txn := repo.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get(todoTable, "seq")
	if err != nil {
		return nil, err
	}
	todos := []Todo{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		todos = append(todos, obj.(*memTodo).Todo)
	}
	return todos, nil
}

// Get - ...
func (repo *MemRepository) Get(ctx context.Context, id uuid.UUID) (*Todo, error) {
	txn := repo.db.Txn(false)
	defer txn.Abort()
	obj, err := txn.First(todoTable, "id", id.String())
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, ErrNotFound
	}
	todo := obj.(*memTodo).Todo
	return &todo, nil
}

// Create - ...
func (repo *MemRepository) Create(ctx context.Context, todo Todo) error {
	txn := repo.db.Txn(true)
	defer txn.Abort()
	existing, err := txn.First(todoTable, "id", todo.ID.String())
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicate
	}
	// write transactions are serialized by memdb, so seq needs no extra locking
	repo.seq++
	if err := txn.Insert(todoTable, &memTodo{ID: todo.ID.String(), Seq: repo.seq, Todo: todo}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Update - ...
func (repo *MemRepository) Update(ctx context.Context, id uuid.UUID, update TodoUpdate) (*Todo, error) {
	txn := repo.db.Txn(true)
	defer txn.Abort()
	obj, err := txn.First(todoTable, "id", id.String())
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, ErrNotFound
	}
	current := obj.(*memTodo)
	updated := update.Apply(current.Todo)
	if err := txn.Insert(todoTable, &memTodo{ID: current.ID, Seq: current.Seq, Todo: updated}); err != nil {
		return nil, err
	}
	txn.Commit()
	return &updated, nil
}

// Delete - ...
func (repo *MemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	txn := repo.db.Txn(true)
	defer txn.Abort()
	obj, err := txn.First(todoTable, "id", id.String())
	if err != nil {
		return err
	}
	if obj == nil {
		return ErrNotFound
	}
	if err := txn.Delete(todoTable, obj); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Ping - ...
func (repo *MemRepository) Ping(ctx context.Context) error {
	return nil
}

// Close - ...
func (repo *MemRepository) Close() error {
	return nil
}
