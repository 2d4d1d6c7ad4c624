package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	equipment "equipment-api/internal/equipment/domain"
	"equipment-api/internal/equipment/infrastructure/memory"
)

func newTestService(t *testing.T) (*Service, *memory.ReadingRepository) {
	t.Helper()
	repo := memory.NewReadingRepository()
	service, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, repo
}

func dataset(rows ...[3]string) Dataset {
	ds := Dataset{Columns: []string{"equipmentId", "timestamp", "value"}}
	for _, row := range rows {
		ds.Rows = append(ds.Rows, map[string]Cell{
			"equipmentId": {Raw: row[0], Present: true},
			"timestamp":   {Raw: row[1], Present: true},
			"value":       {Raw: row[2], Present: true},
		})
	}
	return ds
}

func mustFind(t *testing.T, repo *memory.ReadingRepository, equipmentID string, ts time.Time) equipment.Reading {
	t.Helper()
	readings, err := repo.FindByKeys(context.Background(), []equipment.ReadingKey{equipment.NewReadingKey(equipmentID, ts)})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("expected 1 reading for %s@%v, got %d", equipmentID, ts, len(readings))
	}
	return readings[0]
}

func TestIngestCreatesReading(t *testing.T) {
	service, repo := newTestService(t)

	summary, err := service.Ingest(context.Background(), dataset([3]string{"ABC123", "2023-02-12T01:30:00.000-05:00", "50.55"}))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if summary.Inserted != 1 || summary.Updated != 0 {
		t.Fatalf("expected 1 insert, got %+v", summary)
	}

	want := time.Date(2023, 2, 12, 6, 30, 0, 0, time.UTC)
	stored := mustFind(t, repo, "ABC123", want)
	if stored.Value == nil || *stored.Value != 50.55 {
		t.Fatalf("unexpected value: %v", stored.Value)
	}
	if !stored.Timestamp.Equal(want) {
		t.Fatalf("expected %v, got %v", want, stored.Timestamp)
	}
}

func TestIngestUpsertsExistingPair(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()

	if _, err := service.Ingest(ctx, dataset([3]string{"ABC123", "2023-02-12T06:30:00", "50.55"})); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	summary, err := service.Ingest(ctx, dataset([3]string{"ABC123", "2023-02-12T06:30:00", "99.9"}))
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if summary.Inserted != 0 || summary.Updated != 1 {
		t.Fatalf("expected 1 update, got %+v", summary)
	}
	if repo.Count() != 1 {
		t.Fatalf("composite key uniqueness violated: %d rows", repo.Count())
	}

	stored := mustFind(t, repo, "ABC123", time.Date(2023, 2, 12, 6, 30, 0, 0, time.UTC))
	if stored.Value == nil || *stored.Value != 99.9 {
		t.Fatalf("value not overwritten: %v", stored.Value)
	}
}

func TestIngestSameFileTwiceLeavesStoreUnchanged(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()
	ds := dataset(
		[3]string{"EQ-1", "2023-02-12T06:30:00", "1.0"},
		[3]string{"EQ-2", "2023-02-12T06:30:00", "2.0"},
	)

	if _, err := service.Ingest(ctx, ds); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	summary, err := service.Ingest(ctx, ds)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if summary.Inserted != 0 || summary.Updated != 2 {
		t.Fatalf("expected updates only on second pass, got %+v", summary)
	}
	if repo.Count() != 2 {
		t.Fatalf("expected 2 rows, got %d", repo.Count())
	}
}

func TestIngestInBatchDuplicateLaterRowWins(t *testing.T) {
	service, repo := newTestService(t)

	summary, err := service.Ingest(context.Background(), dataset(
		[3]string{"EQ-1", "2023-02-12T06:30:00", "1.0"},
		[3]string{"EQ-1", "2023-02-12T06:30:00", "2.0"},
	))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if summary.Inserted != 1 {
		t.Fatalf("duplicate pair should stage one insert, got %+v", summary)
	}
	if repo.Count() != 1 {
		t.Fatalf("expected 1 row, got %d", repo.Count())
	}

	stored := mustFind(t, repo, "EQ-1", time.Date(2023, 2, 12, 6, 30, 0, 0, time.UTC))
	if stored.Value == nil || *stored.Value != 2.0 {
		t.Fatalf("later row should win, got %v", stored.Value)
	}
}

func TestIngestMissingColumnAbortsBeforeRows(t *testing.T) {
	service, repo := newTestService(t)

	ds := Dataset{
		Columns: []string{"timestamp", "value"},
		Rows: []map[string]Cell{{
			"timestamp": {Raw: "2023-02-12T06:30:00", Present: true},
			"value":     {Raw: "1.0", Present: true},
		}},
	}
	_, err := service.Ingest(context.Background(), ds)
	var schemaErr *equipment.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if !strings.Contains(err.Error(), "equipmentId") {
		t.Fatalf("error should name equipmentId: %v", err)
	}
	if repo.Count() != 0 {
		t.Fatalf("nothing should be persisted, got %d rows", repo.Count())
	}
}

func TestIngestRowFailureAbortsWholeBatch(t *testing.T) {
	service, repo := newTestService(t)

	_, err := service.Ingest(context.Background(), dataset(
		[3]string{"EQ-1", "2023-02-12T06:30:00", "1.0"},
		[3]string{"   ", "2023-02-12T07:30:00", "2.0"},
	))
	var validationErr *equipment.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validationErr.Row != 2 || validationErr.Column != ColumnEquipmentID {
		t.Fatalf("unexpected error context: %+v", validationErr)
	}
	if repo.Count() != 0 {
		t.Fatalf("earlier rows must not be committed, got %d rows", repo.Count())
	}
}

func TestIngestMissingValueStoresNull(t *testing.T) {
	service, repo := newTestService(t)

	ds := Dataset{
		Columns: []string{"equipmentId", "timestamp", "value"},
		Rows: []map[string]Cell{{
			"equipmentId": {Raw: "EQ-1", Present: true},
			"timestamp":   {Raw: "2023-02-12T06:30:00", Present: true},
			"value":       {Raw: "NaN", Present: true},
		}},
	}
	if _, err := service.Ingest(context.Background(), ds); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	stored := mustFind(t, repo, "EQ-1", time.Date(2023, 2, 12, 6, 30, 0, 0, time.UTC))
	if stored.Value != nil {
		t.Fatalf("expected null value, got %v", *stored.Value)
	}
}

func TestIngestEmptyDatasetTouchesNothing(t *testing.T) {
	service, repo := newTestService(t)

	summary, err := service.Ingest(context.Background(), dataset())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if summary.Inserted != 0 || summary.Updated != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
	if repo.Count() != 0 {
		t.Fatalf("expected no rows, got %d", repo.Count())
	}
}

type failingRepo struct {
	findErr error
	saveErr error
}

func (r failingRepo) FindByKeys(context.Context, []equipment.ReadingKey) ([]equipment.Reading, error) {
	return nil, r.findErr
}

func (r failingRepo) SaveBatch(context.Context, []equipment.Reading, []equipment.Reading) error {
	return r.saveErr
}

func (r failingRepo) Insert(context.Context, equipment.Reading) error { return nil }

func (r failingRepo) List(context.Context, int, int) ([]equipment.Reading, int, error) {
	return nil, 0, nil
}

func TestIngestWrapsStorageErrors(t *testing.T) {
	boom := errors.New("connection reset")
	service, err := NewService(failingRepo{findErr: boom}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = service.Ingest(context.Background(), dataset([3]string{"EQ-1", "2023-02-12T06:30:00", "1.0"}))
	var storageErr *equipment.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}

	service, _ = NewService(failingRepo{saveErr: boom}, nil)
	_, err = service.Ingest(context.Background(), dataset([3]string{"EQ-1", "2023-02-12T06:30:00", "1.0"}))
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError on save, got %v", err)
	}
}
