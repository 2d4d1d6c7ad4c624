package memory

import (
	"context"
	"sort"
	"sync"

	equipment "equipment-api/internal/equipment/domain"
)

// ReadingRepository is an in-memory repository for equipment readings.
type ReadingRepository struct {
	mu   sync.RWMutex
	data map[equipment.ReadingKey]equipment.Reading
}

// NewReadingRepository constructs a repository.
func NewReadingRepository() *ReadingRepository {
	return &ReadingRepository{data: make(map[equipment.ReadingKey]equipment.Reading)}
}

// FindByKeys returns the stored readings matching the given keys.
func (r *ReadingRepository) FindByKeys(ctx context.Context, keys []equipment.ReadingKey) ([]equipment.Reading, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var readings []equipment.Reading
	seen := make(map[equipment.ReadingKey]struct{}, len(keys))
	for _, key := range keys {
		key = equipment.NewReadingKey(key.EquipmentID, key.Timestamp)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if reading, ok := r.data[key]; ok {
			readings = append(readings, cloneReading(reading))
		}
	}
	return readings, nil
}

// SaveBatch stores inserts and updates atomically under the lock.
func (r *ReadingRepository) SaveBatch(ctx context.Context, inserts, updates []equipment.Reading) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, reading := range inserts {
		r.data[reading.Key()] = cloneReading(reading)
	}
	for _, reading := range updates {
		r.data[reading.Key()] = cloneReading(reading)
	}
	return nil
}

// Insert stores a single reading.
func (r *ReadingRepository) Insert(ctx context.Context, reading equipment.Reading) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[reading.Key()] = cloneReading(reading)
	return nil
}

// List returns one page ordered by equipment id and timestamp, plus the
// total stored count.
func (r *ReadingRepository) List(ctx context.Context, page, perPage int) ([]equipment.Reading, int, error) {
	_ = ctx
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}

	r.mu.RLock()
	all := make([]equipment.Reading, 0, len(r.data))
	for _, reading := range r.data {
		all = append(all, cloneReading(reading))
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].EquipmentID != all[j].EquipmentID {
			return all[i].EquipmentID < all[j].EquipmentID
		}
		return all[i].Timestamp.Before(all[j].Timestamp)
	})

	total := len(all)
	offset := (page - 1) * perPage
	if offset >= total {
		return nil, total, nil
	}
	end := offset + perPage
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// Count returns the number of stored readings.
func (r *ReadingRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

func cloneReading(reading equipment.Reading) equipment.Reading {
	clone := reading
	if reading.Value != nil {
		v := *reading.Value
		clone.Value = &v
	}
	return clone
}
