package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	equipment "equipment-api/internal/equipment/domain"
)

const defaultReadingTable = "equipment_readings"

// ReadingRepository is a Postgres implementation for equipment readings.
type ReadingRepository struct {
	db    *sql.DB
	table string
}

// NewReadingRepository constructs a repository with the default table name.
func NewReadingRepository(db *sql.DB, opts ...RepositoryOption) *ReadingRepository {
	repo := &ReadingRepository{db: db, table: defaultReadingTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*ReadingRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *ReadingRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// FindByKeys loads every stored reading matching one of the composite keys
// in a single query. The predicate is a disjunction of per-key conjuncts,
// which avoids both per-row round-trips and the cross-product matches an
// "id IN (...) AND ts IN (...)" query would return.
func (r *ReadingRepository) FindByKeys(ctx context.Context, keys []equipment.ReadingKey) ([]equipment.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	if len(keys) == 0 {
		return nil, nil
	}

	predicate, args := buildKeyPredicate(keys)
	query := fmt.Sprintf(`
SELECT equipment_id, ts, value
FROM %s
WHERE %s`, r.table, predicate)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []equipment.Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	return readings, rows.Err()
}

// buildKeyPredicate renders "(equipment_id = $1 AND ts = $2) OR ..." over
// the distinct keys and the matching argument list.
func buildKeyPredicate(keys []equipment.ReadingKey) (string, []any) {
	seen := make(map[equipment.ReadingKey]struct{}, len(keys))
	conds := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		key = equipment.NewReadingKey(key.EquipmentID, key.Timestamp)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		conds = append(conds, fmt.Sprintf("(equipment_id = $%d AND ts = $%d)", len(args)+1, len(args)+2))
		args = append(args, key.EquipmentID, key.Timestamp)
	}
	return strings.Join(conds, " OR "), args
}

// SaveBatch writes staged inserts and updates in one transaction. Any
// failure rolls the whole batch back.
func (r *ReadingRepository) SaveBatch(ctx context.Context, inserts, updates []equipment.Reading) error {
	if r == nil || r.db == nil {
		return errors.New("reading repo: nil db")
	}
	if len(inserts) == 0 && len(updates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	insertQuery := fmt.Sprintf(`
INSERT INTO %s (equipment_id, ts, value)
VALUES ($1, $2, $3)`, r.table)
	for _, reading := range inserts {
		if err := execReading(ctx, tx, insertQuery, reading); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	updateQuery := fmt.Sprintf(`
UPDATE %s
SET value = $3
WHERE equipment_id = $1 AND ts = $2`, r.table)
	for _, reading := range updates {
		if err := execReading(ctx, tx, updateQuery, reading); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Insert stores a single reading.
func (r *ReadingRepository) Insert(ctx context.Context, reading equipment.Reading) error {
	if r == nil || r.db == nil {
		return errors.New("reading repo: nil db")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (equipment_id, ts, value)
VALUES ($1, $2, $3)`, r.table)

	value := sql.NullFloat64{}
	if reading.Value != nil {
		value = sql.NullFloat64{Float64: *reading.Value, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query, reading.EquipmentID, equipment.CanonicalTimestamp(reading.Timestamp), value)
	return err
}

// List returns one page of readings ordered by equipment id and timestamp,
// plus the total stored count.
func (r *ReadingRepository) List(ctx context.Context, page, perPage int) ([]equipment.Reading, int, error) {
	if r == nil || r.db == nil {
		return nil, 0, errors.New("reading repo: nil db")
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", r.table)
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
SELECT equipment_id, ts, value
FROM %s
ORDER BY equipment_id ASC, ts ASC
LIMIT $1 OFFSET $2`, r.table)

	rows, err := r.db.QueryContext(ctx, query, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var readings []equipment.Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, 0, err
		}
		readings = append(readings, reading)
	}
	return readings, total, rows.Err()
}

func execReading(ctx context.Context, tx *sql.Tx, query string, reading equipment.Reading) error {
	value := sql.NullFloat64{}
	if reading.Value != nil {
		value = sql.NullFloat64{Float64: *reading.Value, Valid: true}
	}
	_, err := tx.ExecContext(ctx, query, reading.EquipmentID, equipment.CanonicalTimestamp(reading.Timestamp), value)
	return err
}

func scanReading(rows *sql.Rows) (equipment.Reading, error) {
	var reading equipment.Reading
	var ts sql.NullTime
	var value sql.NullFloat64
	if err := rows.Scan(&reading.EquipmentID, &ts, &value); err != nil {
		return equipment.Reading{}, err
	}
	if ts.Valid {
		reading.Timestamp = equipment.CanonicalTimestamp(ts.Time)
	}
	if value.Valid {
		v := value.Float64
		reading.Value = &v
	}
	return reading, nil
}
