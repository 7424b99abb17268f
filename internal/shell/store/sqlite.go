package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/topdeck-io/topdeck/internal/core/deployment"
	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/topology"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Deployment Operations
// =============================================================================

// deploymentRow represents a deployment row in the database. The
// parsed document and the planned resources serialize as JSON.
type deploymentRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Status    string `db:"status"`
	Document  string `db:"document"`
	Resources string `db:"resources"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (s *SQLiteStore) CreateDeployment(ctx context.Context, dep *deployment.Deployment) error {
	return createDeployment(ctx, s.db, dep)
}

func (s *SQLiteStore) GetDeployment(ctx context.Context, id string) (*deployment.Deployment, error) {
	return getDeployment(ctx, s.db, id)
}

func (s *SQLiteStore) UpdateDeployment(ctx context.Context, dep *deployment.Deployment) error {
	return updateDeployment(ctx, s.db, dep)
}

func (s *SQLiteStore) DeleteDeployment(ctx context.Context, id string) error {
	return deleteDeployment(ctx, s.db, id)
}

func (s *SQLiteStore) ListDeployments(ctx context.Context, opts ListOptions) ([]deployment.Deployment, error) {
	return listDeployments(ctx, s.db, opts)
}

// =============================================================================
// Transaction Support
// =============================================================================

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// txSQLiteStore runs store operations inside one transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (s *txSQLiteStore) CreateDeployment(ctx context.Context, dep *deployment.Deployment) error {
	return createDeployment(ctx, s.tx, dep)
}

func (s *txSQLiteStore) GetDeployment(ctx context.Context, id string) (*deployment.Deployment, error) {
	return getDeployment(ctx, s.tx, id)
}

func (s *txSQLiteStore) UpdateDeployment(ctx context.Context, dep *deployment.Deployment) error {
	return updateDeployment(ctx, s.tx, dep)
}

func (s *txSQLiteStore) DeleteDeployment(ctx context.Context, id string) error {
	return deleteDeployment(ctx, s.tx, id)
}

func (s *txSQLiteStore) ListDeployments(ctx context.Context, opts ListOptions) ([]deployment.Deployment, error) {
	return listDeployments(ctx, s.tx, opts)
}

func (s *txSQLiteStore) WithTx(_ context.Context, fn func(Store) error) error {
	// Already in a transaction; nested calls reuse it.
	return fn(s)
}

func (s *txSQLiteStore) Close() error { return nil }

// =============================================================================
// Shared Implementations
// =============================================================================

func createDeployment(ctx context.Context, exec executor, dep *deployment.Deployment) error {
	row, err := deploymentToRow(dep)
	if err != nil {
		return NewStoreError("CreateDeployment", dep.ID, err.Error(), ErrInvalidData)
	}

	query := `
		INSERT INTO deployments (
			id, name, status, document, resources, created_at, updated_at
		) VALUES (
			:id, :name, :status, :document, :resources, :created_at, :updated_at
		)`

	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: deployments.id") {
			return NewStoreError("CreateDeployment", dep.ID, "deployment with this ID already exists", ErrDuplicateID)
		}
		return NewStoreError("CreateDeployment", dep.ID, err.Error(), err)
	}
	return nil
}

func getDeployment(ctx context.Context, exec executor, id string) (*deployment.Deployment, error) {
	query := `SELECT * FROM deployments WHERE id = ?`

	var row deploymentRow
	err := exec.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetDeployment", id, "deployment not found", ErrNotFound)
		}
		return nil, NewStoreError("GetDeployment", id, err.Error(), err)
	}

	return rowToDeployment(&row)
}

func updateDeployment(ctx context.Context, exec executor, dep *deployment.Deployment) error {
	dep.UpdatedAt = time.Now().UTC()
	row, err := deploymentToRow(dep)
	if err != nil {
		return NewStoreError("UpdateDeployment", dep.ID, err.Error(), ErrInvalidData)
	}

	query := `
		UPDATE deployments SET
			name = :name, status = :status, document = :document,
			resources = :resources, updated_at = :updated_at
		WHERE id = :id`

	result, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		return NewStoreError("UpdateDeployment", dep.ID, err.Error(), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return NewStoreError("UpdateDeployment", dep.ID, err.Error(), err)
	}
	if affected == 0 {
		return NewStoreError("UpdateDeployment", dep.ID, "deployment not found", ErrNotFound)
	}
	return nil
}

func deleteDeployment(ctx context.Context, exec executor, id string) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM deployments WHERE id = ?`, id)
	if err != nil {
		return NewStoreError("DeleteDeployment", id, err.Error(), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return NewStoreError("DeleteDeployment", id, err.Error(), err)
	}
	if affected == 0 {
		return NewStoreError("DeleteDeployment", id, "deployment not found", ErrNotFound)
	}
	return nil
}

func listDeployments(ctx context.Context, exec executor, opts ListOptions) ([]deployment.Deployment, error) {
	opts = opts.Normalize()

	query := `SELECT * FROM deployments`
	args := []any{}
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, opts.Status)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	var rows []deploymentRow
	if err := exec.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, NewStoreError("ListDeployments", "", err.Error(), err)
	}

	deployments := make([]deployment.Deployment, 0, len(rows))
	for i := range rows {
		dep, err := rowToDeployment(&rows[i])
		if err != nil {
			return nil, err
		}
		deployments = append(deployments, *dep)
	}
	return deployments, nil
}

// =============================================================================
// Row Conversion
// =============================================================================

// storedDocument is the JSON shape of the deployment's parsed
// topology.
type storedDocument struct {
	Blueprint   *topology.Blueprint        `json:"blueprint"`
	Environment *topology.EnvironmentConfig `json:"environment"`
	Inputs      map[string]any             `json:"inputs,omitempty"`
}

func deploymentToRow(dep *deployment.Deployment) (map[string]any, error) {
	documentJSON, err := json.Marshal(storedDocument{
		Blueprint:   dep.Blueprint,
		Environment: dep.Environment,
		Inputs:      dep.Inputs.Raw(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}
	resourcesJSON, err := json.Marshal(dep.Resources)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize resources: %w", err)
	}

	return map[string]any{
		"id":         dep.ID,
		"name":       dep.Name,
		"status":     string(dep.Status),
		"document":   string(documentJSON),
		"resources":  string(resourcesJSON),
		"created_at": dep.CreatedAt.Format(time.RFC3339),
		"updated_at": dep.UpdatedAt.Format(time.RFC3339),
	}, nil
}

func rowToDeployment(row *deploymentRow) (*deployment.Deployment, error) {
	var document storedDocument
	if err := json.Unmarshal([]byte(row.Document), &document); err != nil {
		return nil, NewStoreError("GetDeployment", row.ID, "failed to parse document", ErrInvalidData)
	}
	var resources map[domain.ResourceIndex]*domain.Resource
	if err := json.Unmarshal([]byte(row.Resources), &resources); err != nil {
		return nil, NewStoreError("GetDeployment", row.ID, "failed to parse resources", ErrInvalidData)
	}

	dep, err := deployment.New(&topology.File{
		ID:          row.ID,
		Name:        row.Name,
		Blueprint:   document.Blueprint,
		Environment: document.Environment,
		Inputs:      document.Inputs,
	})
	if err != nil {
		return nil, NewStoreError("GetDeployment", row.ID, err.Error(), ErrInvalidData)
	}

	dep.Status = deployment.Status(row.Status)
	if resources != nil {
		dep.Resources = resources
	}
	if createdAt, err := time.Parse(time.RFC3339, row.CreatedAt); err == nil {
		dep.CreatedAt = createdAt
	}
	if updatedAt, err := time.Parse(time.RFC3339, row.UpdatedAt); err == nil {
		dep.UpdatedAt = updatedAt
	}
	return dep, nil
}
