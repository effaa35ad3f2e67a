package config

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrConfigNotFound is returned when no credentials are stored for a provider and environment.
var ErrConfigNotFound = errors.New("provider configuration not found")

const maxBusyRetries = 3

// StoredConfig is one row of the provider_configs table.
type StoredConfig struct {
	Provider    string
	Environment string
	Config      map[string]string
	UpdatedAt   time.Time
}

// ProviderStore persists gateway credentials per provider and environment in SQLite.
// It never stores card data or transactions.
type ProviderStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// retryOperation executes a database operation with retry logic for SQLITE_BUSY errors
func (s *ProviderStore) retryOperation(operation func() error, maxRetries int) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		if !isBusy(err) {
			return err
		}

		lastErr = err
		if attempt < maxRetries {
			// 10ms, 20ms, 40ms
			backoff := time.Duration(10*(1<<attempt)) * time.Millisecond
			log.Printf("SQLite busy, retrying in %v (attempt %d/%d)", backoff, attempt+1, maxRetries+1)
			time.Sleep(backoff)
		}
	}

	return fmt.Errorf("operation failed after %d retries, last error: %w", maxRetries+1, lastErr)
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// NewProviderStore opens (and if needed creates) the SQLite database at dbPath.
func NewProviderStore(dbPath string) (*ProviderStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_timeout=20000&_txlock=immediate", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	store := &ProviderStore{
		db:   db,
		path: dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *ProviderStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS provider_configs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		provider_name TEXT NOT NULL,
		environment TEXT NOT NULL,
		config_data TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(provider_name, environment)
	);

	CREATE INDEX IF NOT EXISTS idx_provider_env ON provider_configs(provider_name, environment);
	`

	return s.retryOperation(func() error {
		_, err := s.db.Exec(query)
		return err
	}, maxBusyRetries)
}

// Save inserts or replaces the credentials for provider in environment.
func (s *ProviderStore) Save(providerName, environment string, config map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return s.retryOperation(func() error {
		query := `
		INSERT INTO provider_configs (provider_name, environment, config_data, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(provider_name, environment)
		DO UPDATE SET
			config_data = excluded.config_data,
			updated_at = CURRENT_TIMESTAMP
		`

		if _, err := s.db.Exec(query, providerName, environment, string(configJSON)); err != nil {
			return fmt.Errorf("failed to save provider config: %w", err)
		}
		return nil
	}, maxBusyRetries)
}

// Load returns the stored credentials for provider in environment, or ErrConfigNotFound.
func (s *ProviderStore) Load(providerName, environment string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config map[string]string
	err := s.retryOperation(func() error {
		query := `
		SELECT config_data
		FROM provider_configs
		WHERE provider_name = ? AND environment = ?
		`

		var configJSON string
		err := s.db.QueryRow(query, providerName, environment).Scan(&configJSON)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: provider %s, environment %s", ErrConfigNotFound, providerName, environment)
			}
			return fmt.Errorf("failed to load provider config: %w", err)
		}

		if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}
		return nil
	}, maxBusyRetries)

	return config, err
}

// LoadAll returns every stored configuration ordered by provider and environment.
// Rows whose JSON cannot be decoded are skipped.
func (s *ProviderStore) LoadAll() ([]StoredConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var configs []StoredConfig
	err := s.retryOperation(func() error {
		query := `
		SELECT provider_name, environment, config_data, updated_at
		FROM provider_configs
		ORDER BY provider_name, environment
		`

		rows, err := s.db.Query(query)
		if err != nil {
			return fmt.Errorf("failed to query provider configs: %w", err)
		}
		defer rows.Close()

		configs = configs[:0]
		for rows.Next() {
			var stored StoredConfig
			var configJSON string
			if err := rows.Scan(&stored.Provider, &stored.Environment, &configJSON, &stored.UpdatedAt); err != nil {
				return fmt.Errorf("failed to scan row: %w", err)
			}

			if err := json.Unmarshal([]byte(configJSON), &stored.Config); err != nil {
				log.Printf("Warning: failed to unmarshal config for provider %s (%s): %v", stored.Provider, stored.Environment, err)
				continue
			}
			configs = append(configs, stored)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating rows: %w", err)
		}
		return nil
	}, maxBusyRetries)

	if err != nil {
		return nil, err
	}
	return configs, nil
}

// Delete removes the credentials for provider in environment.
func (s *ProviderStore) Delete(providerName, environment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retryOperation(func() error {
		result, err := s.db.Exec(`DELETE FROM provider_configs WHERE provider_name = ? AND environment = ?`, providerName, environment)
		if err != nil {
			return fmt.Errorf("failed to delete provider config: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("%w: provider %s, environment %s", ErrConfigNotFound, providerName, environment)
		}
		return nil
	}, maxBusyRetries)
}

// Close closes the database connection
func (s *ProviderStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
