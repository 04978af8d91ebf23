package store

import (
	"context"
	"encoding/json"

	"github.com/jinzhu/gorm"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// storedRecord is the SQLite shape of one positional record.
type storedRecord struct {
	gorm.Model
	Table    string `gorm:"column:tbl;index:idx_tbl_record,unique"`
	RecordID string `gorm:"index:idx_tbl_record,unique"`
	Row      string // JSON-encoded positional field list
}

func (storedRecord) TableName() string { return "records" }

// SQLiteStore is a local RecordStore for development and tests, so the
// service runs without the remote collaborator. It mirrors the remote
// store's contract: positional rows, upsert by id, header row first on
// fetch.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (and migrates) a local store at the given path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := gorm.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.AutoMigrate(&storedRecord{})
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Upsert writes one record, replacing any existing row with the same id.
func (s *SQLiteStore) Upsert(ctx context.Context, table, id string, row []string) error {
	raw, err := json.Marshal(row)
	if err != nil {
		return err
	}
	var existing storedRecord
	res := s.db.Where("tbl = ? AND record_id = ?", table, id).First(&existing)
	if res.RecordNotFound() {
		return s.db.Create(&storedRecord{Table: table, RecordID: id, Row: string(raw)}).Error
	}
	if res.Error != nil {
		return res.Error
	}
	existing.Row = string(raw)
	return s.db.Save(&existing).Error
}

// Delete removes one record by id. Deleting a missing record is a no-op,
// matching the remote store.
func (s *SQLiteStore) Delete(ctx context.Context, table, id string) error {
	return s.db.Where("tbl = ? AND record_id = ?", table, id).Delete(&storedRecord{}).Error
}

// FetchTable returns the canonical header followed by every stored row.
func (s *SQLiteStore) FetchTable(ctx context.Context, table string) ([][]string, error) {
	var records []storedRecord
	if err := s.db.Where("tbl = ?", table).Order("record_id").Find(&records).Error; err != nil {
		return nil, err
	}
	rows := [][]string{HeaderFor(table)}
	for _, rec := range records {
		var row []string
		if err := json.Unmarshal([]byte(rec.Row), &row); err != nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
