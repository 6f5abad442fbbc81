package credential

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nexusllm/gateway/types"
)

// SQLitePersister stores credential health across process restarts in a
// single-table SQLite database keyed by provider and credential ID.
type SQLitePersister struct {
	db *sql.DB
}

// OpenSQLitePersister opens or creates a SQLite database at path and
// ensures its schema exists.
func OpenSQLitePersister(path string) (*SQLitePersister, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating credential db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening credential db: %w", err)
	}

	p := &SQLitePersister{db: db}
	if err := p.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing credential db schema: %w", err)
	}
	return p, nil
}

func (p *SQLitePersister) createSchema() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS credential_stats (
			provider      TEXT NOT NULL,
			credential_id TEXT NOT NULL,
			cooldown_until INTEGER NOT NULL DEFAULT 0,
			disabled       INTEGER NOT NULL DEFAULT 0,
			consecutive_failures INTEGER NOT NULL DEFAULT 0,
			success_count  INTEGER NOT NULL DEFAULT 0,
			failure_count  INTEGER NOT NULL DEFAULT 0,
			total_latency_ms REAL NOT NULL DEFAULT 0,
			last_error     TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (provider, credential_id)
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (p *SQLitePersister) Close() error {
	return p.db.Close()
}

// Load returns every credential's persisted stats for provider.
func (p *SQLitePersister) Load(provider string) (map[string]types.CredentialStats, error) {
	rows, err := p.db.Query(`
		SELECT credential_id, cooldown_until, disabled, consecutive_failures, success_count, failure_count, total_latency_ms, last_error
		FROM credential_stats WHERE provider = ?
	`, provider)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]types.CredentialStats)
	for rows.Next() {
		var id, lastErr string
		var cooldownUnix int64
		var disabled int
		var consecutiveFailures int
		var success, failure int64
		var totalLatency float64
		if err := rows.Scan(&id, &cooldownUnix, &disabled, &consecutiveFailures, &success, &failure, &totalLatency, &lastErr); err != nil {
			return nil, err
		}
		stats := types.CredentialStats{
			Disabled:            disabled != 0,
			ConsecutiveFailures: consecutiveFailures,
			SuccessCount:        success,
			FailureCount:        failure,
			TotalLatencyMs:      totalLatency,
			LastError:           lastErr,
		}
		if cooldownUnix > 0 {
			stats.CooldownUntil = time.Unix(cooldownUnix, 0)
		}
		out[id] = stats
	}
	return out, rows.Err()
}

// Save upserts one credential's current stats.
func (p *SQLitePersister) Save(provider, credentialID string, stats types.CredentialStats) error {
	var cooldownUnix int64
	if !stats.CooldownUntil.IsZero() {
		cooldownUnix = stats.CooldownUntil.Unix()
	}
	_, err := p.db.Exec(`
		INSERT INTO credential_stats
			(provider, credential_id, cooldown_until, disabled, consecutive_failures, success_count, failure_count, total_latency_ms, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider, credential_id) DO UPDATE SET
			cooldown_until = excluded.cooldown_until,
			disabled = excluded.disabled,
			consecutive_failures = excluded.consecutive_failures,
			success_count = excluded.success_count,
			failure_count = excluded.failure_count,
			total_latency_ms = excluded.total_latency_ms,
			last_error = excluded.last_error
	`, provider, credentialID, cooldownUnix, boolToInt(stats.Disabled), stats.ConsecutiveFailures, stats.SuccessCount, stats.FailureCount, stats.TotalLatencyMs, stats.LastError)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
