package store

import (
	"context"
	"log"
)

// Logical table names in the backing store.
const (
	TableAssets      = "assets"
	TableCases       = "cases"
	TableMaintenance = "maintenance"
)

// RecordStore is the persistence collaborator. Records are ordered
// positional field lists with no enforced schema; writes are whole-record
// upserts, at-least-once and idempotent by record id.
type RecordStore interface {
	Upsert(ctx context.Context, table, id string, row []string) error
	Delete(ctx context.Context, table, id string) error
	FetchTable(ctx context.Context, table string) ([][]string, error)
}

// BestEffortUpsert writes a record and, if the store's retries are
// exhausted, logs the failure and moves on. Local state is never rolled
// back on a failed write; the operator is never blocked on the store.
func BestEffortUpsert(ctx context.Context, s RecordStore, table, id string, row []string) {
	if s == nil {
		return
	}
	if err := s.Upsert(ctx, table, id, row); err != nil {
		log.Printf("store: upsert %s/%s failed, continuing with local state: %v", table, id, err)
	}
}
