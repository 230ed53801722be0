// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"mcp-simple-bolus/internal/models"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serialises writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS glucose_samples (
        sync_identifier TEXT PRIMARY KEY,
        date TEXT NOT NULL,
        value REAL NOT NULL,
        unit TEXT NOT NULL,
        is_display_only INTEGER NOT NULL,
        was_user_entered INTEGER NOT NULL
    );

    CREATE TABLE IF NOT EXISTS carb_entries (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        date TEXT NOT NULL,
        start_date TEXT NOT NULL,
        grams REAL NOT NULL,
        food_type TEXT,
        absorption_seconds REAL
    );

    CREATE TABLE IF NOT EXISTS doses (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        start_date TEXT NOT NULL,
        units REAL NOT NULL,
        source TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_glucose_samples_date ON glucose_samples(date);
    CREATE INDEX IF NOT EXISTS idx_carb_entries_start_date ON carb_entries(start_date);
    CREATE INDEX IF NOT EXISTS idx_doses_start_date ON doses(start_date);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveGlucoseSamples stores all samples in one transaction.
func (s *SQLiteStorage) SaveGlucoseSamples(ctx context.Context, samples []models.GlucoseSample) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
        INSERT INTO glucose_samples (sync_identifier, date, value, unit, is_display_only, was_user_entered)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	for _, sample := range samples {
		_, err = tx.ExecContext(ctx, query,
			sample.SyncIdentifier, formatTime(sample.Date), sample.Quantity.Value,
			string(sample.Quantity.Unit), sample.IsDisplayOnly, sample.WasUserEntered)
		if err != nil {
			return fmt.Errorf("failed to insert glucose sample: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStorage) SaveCarbEntry(ctx context.Context, entry *models.CarbEntry) error {
	grams, err := entry.Quantity.In(models.Gram)
	if err != nil {
		return fmt.Errorf("invalid carb quantity: %w", err)
	}

	var foodType sql.NullString
	if entry.FoodType != "" {
		foodType = sql.NullString{String: entry.FoodType, Valid: true}
	}
	var absorption sql.NullFloat64
	if entry.AbsorptionTime != nil {
		absorption = sql.NullFloat64{Float64: entry.AbsorptionTime.Seconds(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
        INSERT INTO carb_entries (date, start_date, grams, food_type, absorption_seconds)
        VALUES (?, ?, ?, ?, ?)
    `, formatTime(entry.Date), formatTime(entry.StartDate), grams, foodType, absorption)
	if err != nil {
		return fmt.Errorf("failed to insert carb entry: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read carb entry id: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) SaveDose(ctx context.Context, dose *models.DoseEntry) error {
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO doses (start_date, units, source) VALUES (?, ?, ?)
    `, formatTime(dose.StartDate), dose.Units, dose.Source)
	if err != nil {
		return fmt.Errorf("failed to insert dose: %w", err)
	}
	if dose.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read dose id: %w", err)
	}
	return nil
}

// GetCarbEntries lists entries newest first. startDate and endDate are
// optional YYYY-MM-DD bounds on the entry start date.
func (s *SQLiteStorage) GetCarbEntries(ctx context.Context, startDate, endDate string, limit int) ([]*models.CarbEntry, error) {
	query := `
        SELECT id, date, start_date, grams, food_type, absorption_seconds
        FROM carb_entries
        WHERE 1=1
    `
	args := []interface{}{}

	if startDate != "" {
		query += " AND DATE(start_date) >= ?"
		args = append(args, startDate)
	}
	if endDate != "" {
		query += " AND DATE(start_date) <= ?"
		args = append(args, endDate)
	}

	query += " ORDER BY start_date DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query carb entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.CarbEntry
	for rows.Next() {
		entry := &models.CarbEntry{}
		var dateStr, startStr string
		var grams float64
		var foodType sql.NullString
		var absorption sql.NullFloat64

		if err := rows.Scan(&entry.ID, &dateStr, &startStr, &grams, &foodType, &absorption); err != nil {
			return nil, fmt.Errorf("failed to scan carb entry: %w", err)
		}
		if entry.Date, err = parseTime(dateStr); err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}
		if entry.StartDate, err = parseTime(startStr); err != nil {
			return nil, fmt.Errorf("failed to parse start_date: %w", err)
		}
		entry.Quantity = models.NewQuantity(grams, models.Gram)
		entry.FoodType = foodType.String
		if absorption.Valid {
			d := time.Duration(absorption.Float64 * float64(time.Second))
			entry.AbsorptionTime = &d
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (s *SQLiteStorage) GetGlucoseSamples(ctx context.Context, limit int) ([]*models.GlucoseSample, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT sync_identifier, date, value, unit, is_display_only, was_user_entered
        FROM glucose_samples
        ORDER BY date DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query glucose samples: %w", err)
	}
	defer rows.Close()

	var samples []*models.GlucoseSample
	for rows.Next() {
		sample := &models.GlucoseSample{}
		var dateStr, unit string

		err := rows.Scan(&sample.SyncIdentifier, &dateStr, &sample.Quantity.Value, &unit,
			&sample.IsDisplayOnly, &sample.WasUserEntered)
		if err != nil {
			return nil, fmt.Errorf("failed to scan glucose sample: %w", err)
		}
		if sample.Date, err = parseTime(dateStr); err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}
		sample.Quantity.Unit = models.Unit(unit)

		samples = append(samples, sample)
	}

	return samples, rows.Err()
}

func (s *SQLiteStorage) GetDoses(ctx context.Context, limit int) ([]*models.DoseEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, start_date, units, source FROM doses ORDER BY start_date DESC, id DESC LIMIT ?
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query doses: %w", err)
	}
	defer rows.Close()

	var doses []*models.DoseEntry
	for rows.Next() {
		dose := &models.DoseEntry{}
		var startStr string
		if err := rows.Scan(&dose.ID, &startStr, &dose.Units, &dose.Source); err != nil {
			return nil, fmt.Errorf("failed to scan dose: %w", err)
		}
		if dose.StartDate, err = parseTime(startStr); err != nil {
			return nil, fmt.Errorf("failed to parse start_date: %w", err)
		}
		doses = append(doses, dose)
	}

	return doses, rows.Err()
}

// Timestamps are stored as fixed-width UTC text so DATE() filters and
// ordering work on the raw column.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
