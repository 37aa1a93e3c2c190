package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore is the Store implementation backed by a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at dbPath and runs
// pending migrations.
func OpenSQLite(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec("CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY)"); err != nil {
		return err
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, m := range entries {
		if m.IsDir() {
			continue
		}
		name := m.Name()

		var applied int
		err := s.db.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
		if err == nil && applied == 1 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
		if s.logger != nil {
			s.logger.Info("applied migration", "name", name)
		}
	}
	return nil
}

func (s *SQLiteStore) CreateCut(ctx context.Context, c *Cut) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cuts (code, fps, revision, timecode_start, timecode_end, entity_type, entity_id, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.Code, c.Fps, c.Revision, c.TimecodeStart, c.TimecodeEnd, c.EntityType, c.EntityID, c.Description,
		c.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

const cutColumns = "id, code, fps, revision, timecode_start, timecode_end, entity_type, entity_id, description, created_at"

func scanCut(row interface{ Scan(...any) error }) (*Cut, error) {
	var c Cut
	var createdAt string
	err := row.Scan(&c.ID, &c.Code, &c.Fps, &c.Revision, &c.TimecodeStart, &c.TimecodeEnd,
		&c.EntityType, &c.EntityID, &c.Description, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}

func (s *SQLiteStore) GetCut(ctx context.Context, id int64) (*Cut, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+cutColumns+" FROM cuts WHERE id = ?", id)
	return scanCut(row)
}

func (s *SQLiteStore) ListCuts(ctx context.Context, limit int) ([]*Cut, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+cutColumns+" FROM cuts ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cuts []*Cut
	for rows.Next() {
		c, err := scanCut(rows)
		if err != nil {
			return nil, err
		}
		cuts = append(cuts, c)
	}
	return cuts, rows.Err()
}

func (s *SQLiteStore) LatestCutForEntity(ctx context.Context, entityType string, entityID int64) (*Cut, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+cutColumns+` FROM cuts
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY revision DESC, id DESC LIMIT 1
	`, entityType, entityID)
	return scanCut(row)
}

func (s *SQLiteStore) CreateCutItems(ctx context.Context, items []*CutItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, item := range items {
		if err := s.insertCutItem(ctx, tx, item); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) insertCutItem(ctx context.Context, tx *sql.Tx, item *CutItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO cut_items (cut_id, code, cut_order,
			timecode_cut_item_in, timecode_cut_item_out, timecode_edit_in, timecode_edit_out,
			cut_item_in, cut_item_out, edit_in, edit_out, cut_item_duration,
			shot_id, shot_code, version_id, version_code, has_effects, has_retime, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.CutID, item.Code, item.CutOrder,
		item.TimecodeCutItemIn, item.TimecodeCutItemOut, item.TimecodeEditIn, item.TimecodeEditOut,
		nullInt(item.CutItemIn), nullInt(item.CutItemOut), nullInt(item.EditIn), nullInt(item.EditOut),
		nullInt(item.CutItemDuration),
		nullInt64(item.ShotID), item.ShotCode, nullInt64(item.VersionID), item.VersionCode,
		boolToInt(item.HasEffects), boolToInt(item.HasRetime), item.Description)
	if err != nil {
		return err
	}
	item.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) GetCutItems(ctx context.Context, cutID int64) ([]*CutItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cut_id, code, cut_order,
			timecode_cut_item_in, timecode_cut_item_out, timecode_edit_in, timecode_edit_out,
			cut_item_in, cut_item_out, edit_in, edit_out, cut_item_duration,
			shot_id, shot_code, version_id, version_code, has_effects, has_retime, description
		FROM cut_items WHERE cut_id = ? ORDER BY cut_order ASC, id ASC
	`, cutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*CutItem
	for rows.Next() {
		var item CutItem
		var cutItemIn, cutItemOut, editIn, editOut, duration sql.NullInt64
		var shotID, versionID sql.NullInt64
		var hasEffects, hasRetime int

		if err := rows.Scan(&item.ID, &item.CutID, &item.Code, &item.CutOrder,
			&item.TimecodeCutItemIn, &item.TimecodeCutItemOut, &item.TimecodeEditIn, &item.TimecodeEditOut,
			&cutItemIn, &cutItemOut, &editIn, &editOut, &duration,
			&shotID, &item.ShotCode, &versionID, &item.VersionCode,
			&hasEffects, &hasRetime, &item.Description); err != nil {
			return nil, err
		}
		item.CutItemIn = intFromNull(cutItemIn)
		item.CutItemOut = intFromNull(cutItemOut)
		item.EditIn = intFromNull(editIn)
		item.EditOut = intFromNull(editOut)
		item.CutItemDuration = intFromNull(duration)
		item.ShotID = int64FromNull(shotID)
		item.VersionID = int64FromNull(versionID)
		item.HasEffects = hasEffects == 1
		item.HasRetime = hasRetime == 1
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) CreateShot(ctx context.Context, shot *Shot) error {
	now := time.Now()
	if shot.CreatedAt.IsZero() {
		shot.CreatedAt = now
	}
	shot.UpdatedAt = now
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO shots (code, status, head_in, cut_in, cut_out, tail_out,
			cut_duration, working_duration, cut_order, has_effects, has_retime, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, shot.Code, shot.Status,
		nullInt(shot.HeadIn), nullInt(shot.CutIn), nullInt(shot.CutOut), nullInt(shot.TailOut),
		nullInt(shot.CutDuration), nullInt(shot.WorkingDuration), nullInt(shot.CutOrder),
		boolToInt(shot.HasEffects), boolToInt(shot.HasRetime),
		shot.CreatedAt.Format(time.RFC3339), shot.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}
	shot.ID, err = res.LastInsertId()
	return err
}

const shotColumns = `id, code, status, head_in, cut_in, cut_out, tail_out,
	cut_duration, working_duration, cut_order, has_effects, has_retime, created_at, updated_at`

func scanShot(row interface{ Scan(...any) error }) (*Shot, error) {
	var shot Shot
	var headIn, cutIn, cutOut, tailOut, cutDuration, workingDuration, cutOrder sql.NullInt64
	var hasEffects, hasRetime int
	var createdAt, updatedAt string

	err := row.Scan(&shot.ID, &shot.Code, &shot.Status,
		&headIn, &cutIn, &cutOut, &tailOut, &cutDuration, &workingDuration, &cutOrder,
		&hasEffects, &hasRetime, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	shot.HeadIn = intFromNull(headIn)
	shot.CutIn = intFromNull(cutIn)
	shot.CutOut = intFromNull(cutOut)
	shot.TailOut = intFromNull(tailOut)
	shot.CutDuration = intFromNull(cutDuration)
	shot.WorkingDuration = intFromNull(workingDuration)
	shot.CutOrder = intFromNull(cutOrder)
	shot.HasEffects = hasEffects == 1
	shot.HasRetime = hasRetime == 1
	shot.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	shot.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &shot, nil
}

func (s *SQLiteStore) GetShot(ctx context.Context, id int64) (*Shot, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+shotColumns+" FROM shots WHERE id = ?", id)
	return scanShot(row)
}

func (s *SQLiteStore) FindShotsByCodes(ctx context.Context, codes []string) (map[string]*Shot, error) {
	result := make(map[string]*Shot, len(codes))
	if len(codes) == 0 {
		return result, nil
	}
	placeholders := strings.Repeat("?,", len(codes))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(codes))
	for i, code := range codes {
		args[i] = code
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+shotColumns+" FROM shots WHERE code COLLATE NOCASE IN ("+placeholders+") ORDER BY id ASC",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		shot, err := scanShot(rows)
		if err != nil {
			return nil, err
		}
		result[strings.ToLower(shot.Code)] = shot
	}
	return result, rows.Err()
}

func (s *SQLiteStore) UpdateShot(ctx context.Context, id int64, update *ShotUpdate) error {
	return s.updateShot(ctx, s.db, id, update)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) updateShot(ctx context.Context, db execer, id int64, update *ShotUpdate) error {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if update.Status != nil {
		add("status", *update.Status)
	}
	if update.HeadIn != nil {
		add("head_in", *update.HeadIn)
	}
	if update.CutIn != nil {
		add("cut_in", *update.CutIn)
	}
	if update.CutOut != nil {
		add("cut_out", *update.CutOut)
	}
	if update.TailOut != nil {
		add("tail_out", *update.TailOut)
	}
	if update.CutDuration != nil {
		add("cut_duration", *update.CutDuration)
	}
	if update.WorkingDuration != nil {
		add("working_duration", *update.WorkingDuration)
	}
	if update.CutOrder != nil {
		add("cut_order", *update.CutOrder)
	}
	if update.HasEffects != nil {
		add("has_effects", boolToInt(*update.HasEffects))
	}
	if update.HasRetime != nil {
		add("has_retime", boolToInt(*update.HasRetime))
	}
	if len(sets) == 0 {
		return nil
	}
	add("updated_at", time.Now().Format(time.RFC3339))
	args = append(args, id)
	res, err := db.ExecContext(ctx, "UPDATE shots SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CreateVersion(ctx context.Context, v *Version) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO versions (code, shot_id, created_at) VALUES (?, ?, ?)
	`, v.Code, nullInt64(v.ShotID), v.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}
	v.ID, err = res.LastInsertId()
	return err
}

func scanVersion(row interface{ Scan(...any) error }) (*Version, error) {
	var v Version
	var shotID sql.NullInt64
	var createdAt string
	err := row.Scan(&v.ID, &v.Code, &shotID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	v.ShotID = int64FromNull(shotID)
	v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &v, nil
}

func (s *SQLiteStore) GetVersion(ctx context.Context, id int64) (*Version, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, code, shot_id, created_at FROM versions WHERE id = ?", id)
	return scanVersion(row)
}

func (s *SQLiteStore) FindVersionByCode(ctx context.Context, code string) (*Version, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, code, shot_id, created_at FROM versions WHERE code = ? ORDER BY id DESC LIMIT 1", code)
	return scanVersion(row)
}

func (s *SQLiteStore) Batch(ctx context.Context, requests []BatchRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, req := range requests {
		switch {
		case req.Op == BatchCreate && req.CutItem != nil:
			if err := s.insertCutItem(ctx, tx, req.CutItem); err != nil {
				return fmt.Errorf("batch request %d: %w", i, err)
			}
		case req.Op == BatchCreate && req.Shot != nil:
			if err := s.insertShotTx(ctx, tx, req.Shot); err != nil {
				return fmt.Errorf("batch request %d: %w", i, err)
			}
		case req.Op == BatchCreate && req.Version != nil:
			if err := s.insertVersionTx(ctx, tx, req.Version); err != nil {
				return fmt.Errorf("batch request %d: %w", i, err)
			}
		case req.Op == BatchUpdate && req.ShotUpdate != nil:
			if err := s.updateShot(ctx, tx, req.ShotID, req.ShotUpdate); err != nil {
				return fmt.Errorf("batch request %d: %w", i, err)
			}
		default:
			return fmt.Errorf("batch request %d: unsupported operation %q", i, req.Op)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) insertShotTx(ctx context.Context, tx *sql.Tx, shot *Shot) error {
	now := time.Now()
	if shot.CreatedAt.IsZero() {
		shot.CreatedAt = now
	}
	shot.UpdatedAt = now
	res, err := tx.ExecContext(ctx, `
		INSERT INTO shots (code, status, head_in, cut_in, cut_out, tail_out,
			cut_duration, working_duration, cut_order, has_effects, has_retime, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, shot.Code, shot.Status,
		nullInt(shot.HeadIn), nullInt(shot.CutIn), nullInt(shot.CutOut), nullInt(shot.TailOut),
		nullInt(shot.CutDuration), nullInt(shot.WorkingDuration), nullInt(shot.CutOrder),
		boolToInt(shot.HasEffects), boolToInt(shot.HasRetime),
		shot.CreatedAt.Format(time.RFC3339), shot.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}
	shot.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) insertVersionTx(ctx context.Context, tx *sql.Tx, v *Version) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO versions (code, shot_id, created_at) VALUES (?, ?, ?)
	`, v.Code, nullInt64(v.ShotID), v.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}
	v.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) EntityTypes(ctx context.Context) ([]string, error) {
	return []string{"Cut", "CutItem", "Shot", "Version"}, nil
}

func (s *SQLiteStore) FieldNames(ctx context.Context, entityType string) ([]string, error) {
	table, ok := map[string]string{
		"Cut":     "cuts",
		"CutItem": "cut_items",
		"Shot":    "shots",
		"Version": "versions",
	}[entityType]
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		fields = append(fields, name)
	}
	return fields, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func int64FromNull(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}
