// Package feedback records user corrections of field mappings. Corrections
// are stored for later analysis only; nothing reads them back into matching.
package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/formfill/internal/matching"
	"github.com/spigell/formfill/internal/profile"

	_ "modernc.org/sqlite"
)

// InMemory opens a database that lives as long as the Recorder.
const InMemory = ":memory:"

// Correction is one user correction of a field mapping.
type Correction struct {
	ID             string                 `json:"id"`
	FormID         string                 `json:"form_id"`
	FieldID        string                 `json:"field_id"`
	FieldLabel     string                 `json:"field_label,omitempty"`
	PreviousPath   string                 `json:"previous_path,omitempty"`
	PreviousSource matching.MappingSource `json:"previous_source,omitempty"`
	CorrectedPath  string                 `json:"corrected_path"`
	CreatedAt      time.Time              `json:"created_at"`
}

// FromMappings builds a correction from the mapping a field had before and
// the user's replacement. previous may be nil for fields that were unmapped.
func FromMappings(formID string, previous *matching.FieldMapping, corrected matching.FieldMapping) Correction {
	c := Correction{
		FormID:        formID,
		FieldID:       corrected.FieldID,
		FieldLabel:    corrected.FieldLabel,
		CorrectedPath: corrected.ProfilePath,
	}
	if previous != nil {
		c.PreviousPath = previous.ProfilePath
		c.PreviousSource = previous.MappingSource
		if c.FieldLabel == "" {
			c.FieldLabel = previous.FieldLabel
		}
	}
	return c
}

type Config struct {
	// DB is a file path or InMemory.
	DB string `mapstructure:"database"`
}

// Recorder stores corrections in SQLite.
type Recorder struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open opens (or creates) the feedback database.
func Open(cfg Config, logger *zap.Logger) (*Recorder, error) {
	path := strings.TrimSpace(cfg.DB)
	if path == "" {
		return nil, errors.New("feedback database path required")
	}
	if path != InMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create feedback dir: %w", err)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writes.
	db.SetMaxOpenConns(1)

	r := &Recorder{db: db, logger: logger, now: time.Now}
	if err := r.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Recorder) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS corrections (
			id TEXT PRIMARY KEY,
			form_id TEXT NOT NULL,
			field_id TEXT NOT NULL,
			field_label TEXT NOT NULL DEFAULT '',
			previous_path TEXT NOT NULL DEFAULT '',
			previous_source TEXT NOT NULL DEFAULT '',
			corrected_path TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS corrections_form ON corrections (form_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("create feedback schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Record stores c, filling in its id and timestamp, and returns the stored
// value. The corrected path must be a known profile path.
func (r *Recorder) Record(ctx context.Context, c Correction) (Correction, error) {
	if r == nil || r.db == nil {
		return Correction{}, errors.New("feedback recorder not initialized")
	}
	if strings.TrimSpace(c.FieldID) == "" {
		return Correction{}, errors.New("field id required")
	}
	if !profile.Known(c.CorrectedPath) {
		return Correction{}, fmt.Errorf("unknown profile path %q", c.CorrectedPath)
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.now()
	}
	c.CreatedAt = c.CreatedAt.UTC().Truncate(time.Microsecond)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO corrections
		(id, form_id, field_id, field_label, previous_path, previous_source, corrected_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.FormID, c.FieldID, c.FieldLabel, c.PreviousPath, string(c.PreviousSource), c.CorrectedPath, c.CreatedAt.UnixMicro())
	if err != nil {
		return Correction{}, fmt.Errorf("insert correction: %w", err)
	}

	r.logger.Debug("correction recorded",
		zap.String("id", c.ID),
		zap.String("form_id", c.FormID),
		zap.String("field_id", c.FieldID),
		zap.String("corrected_path", c.CorrectedPath),
	)
	return c, nil
}

// List returns the corrections of a form, oldest first. An empty formID
// lists every correction.
func (r *Recorder) List(ctx context.Context, formID string) ([]Correction, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("feedback recorder not initialized")
	}

	query := `SELECT id, form_id, field_id, field_label, previous_path, previous_source, corrected_path, created_at
		FROM corrections`
	args := []any{}
	if formID != "" {
		query += ` WHERE form_id = ?`
		args = append(args, formID)
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query corrections: %w", err)
	}
	defer rows.Close()

	out := make([]Correction, 0)
	for rows.Next() {
		var (
			c       Correction
			source  string
			created int64
		)
		if err := rows.Scan(&c.ID, &c.FormID, &c.FieldID, &c.FieldLabel, &c.PreviousPath, &source, &c.CorrectedPath, &created); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		c.PreviousSource = matching.MappingSource(source)
		c.CreatedAt = time.UnixMicro(created).UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read corrections: %w", err)
	}
	return out, nil
}
