package equipment

import (
	"context"
	"time"
)

// TimestampPrecision is the storage precision for reading timestamps.
const TimestampPrecision = time.Microsecond

// Reading is one stored measurement for a piece of equipment. The pair
// (EquipmentID, Timestamp) uniquely identifies a reading; Value is nil when
// the source reported no value.
type Reading struct {
	EquipmentID string
	Timestamp   time.Time
	Value       *float64
}

// Key returns the composite identity of the reading.
func (r Reading) Key() ReadingKey {
	return NewReadingKey(r.EquipmentID, r.Timestamp)
}

// ReadingKey is the composite identity (equipment id, timestamp).
type ReadingKey struct {
	EquipmentID string
	Timestamp   time.Time
}

// NewReadingKey builds a key with the timestamp in canonical form.
func NewReadingKey(equipmentID string, ts time.Time) ReadingKey {
	return ReadingKey{EquipmentID: equipmentID, Timestamp: CanonicalTimestamp(ts)}
}

// CanonicalTimestamp normalizes a timestamp to the stored representation:
// UTC wall clock truncated to microseconds, offset information dropped.
func CanonicalTimestamp(ts time.Time) time.Time {
	return ts.UTC().Truncate(TimestampPrecision)
}

// ReadingRepository persists equipment readings.
type ReadingRepository interface {
	// FindByKeys loads every stored reading whose composite key matches one
	// of the given keys. An empty key set returns no rows and no error.
	FindByKeys(ctx context.Context, keys []ReadingKey) ([]Reading, error)

	// SaveBatch writes inserts and updates in a single transaction. Updates
	// overwrite the value of the row addressed by the reading's key.
	SaveBatch(ctx context.Context, inserts, updates []Reading) error

	// Insert stores a single new reading.
	Insert(ctx context.Context, reading Reading) error

	// List returns one page of readings ordered by equipment id and
	// timestamp, plus the total stored count.
	List(ctx context.Context, page, perPage int) ([]Reading, int, error)
}
