package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// PgxIface is the subset of *pgxpool.Pool the repository needs.
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PGRepository - ...
type PGRepository struct {
	pool PgxIface
}

// InitPGRepository - ...
func InitPGRepository(ctx context.Context, cfg Config) (*PGRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}
	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewPGRepository(pool), nil
}

// NewPGRepository wraps an existing pool.
func NewPGRepository(pool PgxIface) *PGRepository {
	return &PGRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTodo(row rowScanner) (*Todo, error) {
	var (
		todo Todo
		id   string
	)
	if err := row.Scan(&id, &todo.Title, &todo.Description, &todo.Completed); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("broken todo id %q: %w", id, err)
	}
	todo.ID = parsed
	return &todo, nil
}

// List - ...
func (repo *PGRepository) List(ctx context.Context) ([]Todo, error) {
	query := `select id, title, description, completed from t_todo order by seq`
	rows, err := repo.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	todos := []Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, *todo)
	}
	return todos, rows.Err()
}

// Get - ...
func (repo *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Todo, error) {
	query := `select id, title, description, completed from t_todo where id = $1`
	todo, err := scanTodo(repo.pool.QueryRow(ctx, query, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return todo, err
}

// Create - ...
func (repo *PGRepository) Create(ctx context.Context, todo Todo) error {
	query := `insert into t_todo(id, title, description, completed) values ($1, $2, $3, $4)`
	_, err := repo.pool.Exec(ctx, query, todo.ID.String(), todo.Title, todo.Description, todo.Completed)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Update - ...
func (repo *PGRepository) Update(ctx context.Context, id uuid.UUID, update TodoUpdate) (*Todo, error) {
	query := `
	update t_todo
	set
		title = coalesce($2, title),
		description = case when $3::boolean then $4 else description end,
		completed = coalesce($5, completed)
	where id = $1
	returning id, title, description, completed;
	`
	todo, err := scanTodo(repo.pool.QueryRow(ctx, query,
		id.String(),
		update.Title,
		update.DescriptionSet,
		update.Description,
		update.Completed,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return todo, err
}

// Delete - ...
func (repo *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `delete from t_todo where id = $1`
	tag, err := repo.pool.Exec(ctx, query, id.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping - ...
func (repo *PGRepository) Ping(ctx context.Context) error {
	return repo.pool.Ping(ctx)
}

// Close - ...
func (repo *PGRepository) Close() error {
	repo.pool.Close()
	return nil
}
