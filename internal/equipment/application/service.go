package application

import (
	"context"
	"errors"
	"log"
	"time"

	equipment "equipment-api/internal/equipment/domain"
)

const indexKeyLayout = "2006-01-02T15:04:05.000000"

// Service runs the upload ingestion pipeline: schema validation, per-row
// normalization, bulk existing-row resolution and the final upsert batch.
type Service struct {
	repo   equipment.ReadingRepository
	logger *log.Logger
}

// NewService constructs the ingestion service.
func NewService(repo equipment.ReadingRepository, logger *log.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("equipment ingest: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{repo: repo, logger: logger}, nil
}

// Summary counts the writes an ingestion staged and committed.
type Summary struct {
	Inserted int
	Updated  int
}

// Ingest reconciles a parsed upload against stored readings. Rows are
// processed in input order; a row whose key exists gets its value
// overwritten, every other row becomes a new reading. The whole batch is
// written in one transaction, so the first failure leaves the store
// untouched.
func (s *Service) Ingest(ctx context.Context, ds Dataset) (Summary, error) {
	records, err := ValidateSchema(ds)
	if err != nil {
		return Summary{}, err
	}

	readings := make([]equipment.Reading, 0, len(records))
	for i, record := range records {
		row := i + 1
		id, err := NormalizeEquipmentID(record.EquipmentID, row)
		if err != nil {
			return Summary{}, err
		}
		ts, err := NormalizeTimestamp(record.Timestamp, row)
		if err != nil {
			return Summary{}, err
		}
		value, err := NormalizeValue(record.Value, row)
		if err != nil {
			return Summary{}, err
		}
		readings = append(readings, equipment.Reading{EquipmentID: id, Timestamp: ts, Value: value})
	}

	index, err := s.resolveExisting(ctx, readings)
	if err != nil {
		return Summary{}, err
	}

	var inserts, updates []equipment.Reading
	insertIdx := make(map[string]int)
	updateIdx := make(map[string]int)
	for _, reading := range readings {
		key := indexKey(reading.EquipmentID, reading.Timestamp)

		// A later row with the same key overwrites what an earlier row
		// staged, so input order decides the final value.
		if i, ok := insertIdx[key]; ok {
			inserts[i].Value = reading.Value
			continue
		}
		if i, ok := updateIdx[key]; ok {
			updates[i].Value = reading.Value
			continue
		}

		if existing, ok := index[key]; ok {
			existing.Value = reading.Value
			updates = append(updates, *existing)
			updateIdx[key] = len(updates) - 1
			continue
		}

		inserts = append(inserts, reading)
		insertIdx[key] = len(inserts) - 1
	}

	if len(inserts) == 0 && len(updates) == 0 {
		return Summary{}, nil
	}
	if err := s.repo.SaveBatch(ctx, inserts, updates); err != nil {
		return Summary{}, &equipment.StorageError{Op: "save batch", Err: err}
	}

	s.logger.Printf("equipment ingest: committed %d inserts, %d updates", len(inserts), len(updates))
	return Summary{Inserted: len(inserts), Updated: len(updates)}, nil
}

// resolveExisting fetches every stored reading matching a key present in
// the upload with a single query and indexes the result by composite key.
func (s *Service) resolveExisting(ctx context.Context, readings []equipment.Reading) (map[string]*equipment.Reading, error) {
	if len(readings) == 0 {
		return map[string]*equipment.Reading{}, nil
	}

	seen := make(map[string]struct{}, len(readings))
	keys := make([]equipment.ReadingKey, 0, len(readings))
	for _, reading := range readings {
		key := indexKey(reading.EquipmentID, reading.Timestamp)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, reading.Key())
	}

	existing, err := s.repo.FindByKeys(ctx, keys)
	if err != nil {
		return nil, &equipment.StorageError{Op: "resolve existing rows", Err: err}
	}

	index := make(map[string]*equipment.Reading, len(existing))
	for i := range existing {
		index[indexKey(existing[i].EquipmentID, existing[i].Timestamp)] = &existing[i]
	}
	return index, nil
}

func indexKey(equipmentID string, ts time.Time) string {
	return equipmentID + "|" + equipment.CanonicalTimestamp(ts).Format(indexKeyLayout)
}
