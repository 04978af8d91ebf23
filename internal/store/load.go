package store

import (
	"context"
	"log"

	"toolcrib/internal/models"
)

// LoadAssets fetches and decodes the assets table. Rows that fail to decode
// are logged and skipped; the store enforces no schema so a bad row must
// not poison the load.
func LoadAssets(ctx context.Context, s RecordStore) ([]models.Asset, error) {
	rows, err := s.FetchTable(ctx, TableAssets)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	var out []models.Asset
	for _, row := range rows[1:] {
		a, err := DecodeAsset(header, row)
		if err != nil {
			log.Printf("store: skipping bad asset row: %v", err)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// LoadCases fetches and decodes the cases table.
func LoadCases(ctx context.Context, s RecordStore) ([]models.Case, error) {
	rows, err := s.FetchTable(ctx, TableCases)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	var out []models.Case
	for _, row := range rows[1:] {
		c, err := DecodeCase(header, row)
		if err != nil {
			log.Printf("store: skipping bad case row: %v", err)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// LoadMaintenance fetches and decodes the maintenance table.
func LoadMaintenance(ctx context.Context, s RecordStore) ([]models.MaintenanceRecord, error) {
	rows, err := s.FetchTable(ctx, TableMaintenance)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	var out []models.MaintenanceRecord
	for _, row := range rows[1:] {
		r, err := DecodeMaintenance(header, row)
		if err != nil {
			log.Printf("store: skipping bad maintenance row: %v", err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
