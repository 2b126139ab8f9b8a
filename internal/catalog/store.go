// Package catalog persists per-file ingestion outcomes in SQLite.
// Hash uniqueness is enforced by the schema; outcome updates go
// through a fixed allow-list of writable columns.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sortbook/internal/config"
	"sortbook/internal/services"
)

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the catalog database and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// InsertPending creates the provisional record for a file entering the
// pipeline.
func (s *Store) InsertPending(ctx context.Context, hash, filename, path string, size int64) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO records (file_hash, filename, file_path, file_size, status, started_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		hash, filename, path, size, StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert pending record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// InsertDuplicateHash records a hash-duplicate outcome in a single
// terminal write. No extraction data exists for this path.
func (s *Store) InsertDuplicateHash(ctx context.Context, hash, filename, path string, size, elapsedMS int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO records (file_hash, filename, file_path, file_size, status, started_at, completed_at, processing_time_ms)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		hash, filename, path, size, StatusDuplicateHash, now, now, elapsedMS,
	)
	if err != nil {
		return 0, fmt.Errorf("insert duplicate record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// FindByHash returns the record with a matching content hash, or nil.
func (s *Store) FindByHash(ctx context.Context, hash string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE file_hash = ?`, hash)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by hash: %w", err)
	}
	return record, nil
}

// FindByISBNProcessed returns a processed record carrying the
// identifier, or nil.
func (s *Store) FindByISBNProcessed(ctx context.Context, isbn string) (*Record, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordColumns+` FROM records WHERE isbn = ? AND status = ? ORDER BY id LIMIT 1`,
		isbn, StatusProcessed,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by isbn: %w", err)
	}
	return record, nil
}

// GetByID fetches one record.
func (s *Store) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// Update writes outcome fields for an existing record. Only columns on
// the allow-list are writable; structured values are serialized to
// JSON text.
func (s *Store) Update(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	columns := make([]string, 0, len(fields))
	for column := range fields {
		if _, ok := updateColumns[column]; !ok {
			return services.Wrap(services.ErrValidation, "catalog", "update",
				fmt.Sprintf("column %q is not writable", column), nil)
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	setClauses := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns)+1)
	for _, column := range columns {
		value, err := bindValue(fields[column])
		if err != nil {
			return fmt.Errorf("encode %s: %w", column, err)
		}
		setClauses = append(setClauses, column+" = ?")
		args = append(args, value)
	}
	args = append(args, id)

	query := `UPDATE records SET ` + strings.Join(setClauses, ", ") + ` WHERE id = ?`
	if _, err := s.execWithRetry(ctx, query, args...); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

// ListByStatus returns records matching any of the statuses, oldest
// first. Without statuses it returns everything.
func (s *Store) ListByStatus(ctx context.Context, statuses ...Status) ([]*Record, error) {
	baseQuery := `SELECT ` + recordColumns + ` FROM records`
	orderClause := ` ORDER BY started_at`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ListRecent returns the newest records up to limit.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM records ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Stats counts records grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("catalog stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates record counts for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusProcessed:
			health.Processed += count
		case StatusDuplicateHash, StatusDuplicateISBN:
			health.Duplicates += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health, nil
}

const recordColumns = "id, file_hash, filename, file_path, file_size, status, isbn, isbn_source, has_cover, choice_source, final_title, final_author, error_message, started_at, completed_at, processing_time_ms, isbn_json, metadata_json, cover_json, response_json"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id           int64
		fileHash     string
		filename     string
		filePath     string
		fileSize     int64
		statusStr    string
		isbnValue    sql.NullString
		isbnSource   sql.NullString
		hasCover     sql.NullInt64
		choiceSource sql.NullString
		finalTitle   sql.NullString
		finalAuthor  sql.NullString
		errorMessage sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
		elapsedMS    sql.NullInt64
		isbnJSON     sql.NullString
		metadataJSON sql.NullString
		coverJSON    sql.NullString
		responseJSON sql.NullString
	)

	if err := scanner.Scan(
		&id, &fileHash, &filename, &filePath, &fileSize, &statusStr,
		&isbnValue, &isbnSource, &hasCover, &choiceSource,
		&finalTitle, &finalAuthor, &errorMessage,
		&startedRaw, &completedRaw, &elapsedMS,
		&isbnJSON, &metadataJSON, &coverJSON, &responseJSON,
	); err != nil {
		return nil, err
	}

	record := &Record{
		ID:               id,
		FileHash:         fileHash,
		Filename:         filename,
		FilePath:         filePath,
		FileSize:         fileSize,
		Status:           Status(statusStr),
		ISBN:             isbnValue.String,
		ISBNSource:       isbnSource.String,
		HasCover:         hasCover.Valid && hasCover.Int64 != 0,
		ChoiceSource:     choiceSource.String,
		FinalTitle:       finalTitle.String,
		FinalAuthor:      finalAuthor.String,
		ErrorMessage:     errorMessage.String,
		ProcessingTimeMS: elapsedMS.Int64,
		ISBNJSON:         isbnJSON.String,
		MetadataJSON:     metadataJSON.String,
		CoverJSON:        coverJSON.String,
		ResponseJSON:     responseJSON.String,
	}
	if started, err := parseTimeString(startedRaw.String); err == nil {
		record.StartedAt = started
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			record.CompletedAt = &completed
		}
	}
	return record, nil
}

// bindValue converts an outcome value for SQLite binding. Structured
// values become JSON text, matching the persisted-bundle encoding.
func bindValue(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case Status:
		return string(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case int, int64, float64:
		return v, nil
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(encoded), nil
	}
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
