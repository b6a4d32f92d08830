package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"warbler/internal/models"

	"gorm.io/gorm"
)

// BatchSize is the number of rows per INSERT during bulk loads.
const BatchSize = 500

type columnKind int

const (
	kindText columnKind = iota
	kindID
	kindTime
)

// table describes which CSV headers a fixture file may carry.
type table struct {
	name     string
	columns  map[string]columnKind
	required []string
	defaults map[string]string
	// stamped columns are set to the load time.
	stamped []string
}

var (
	usersTable = table{
		name: "users",
		columns: map[string]columnKind{
			"id": kindID, "username": kindText, "email": kindText, "password": kindText,
			"image_url": kindText, "header_image_url": kindText, "bio": kindText, "location": kindText,
		},
		required: []string{"username", "email", "password"},
		defaults: map[string]string{
			"image_url":        models.DefaultImageURL,
			"header_image_url": models.DefaultHeaderImageURL,
		},
		stamped: []string{"created_at", "updated_at"},
	}
	messagesTable = table{
		name:     "messages",
		columns:  map[string]columnKind{"id": kindID, "text": kindText, "timestamp": kindTime, "user_id": kindID},
		required: []string{"text", "user_id"},
	}
	followsTable = table{
		name:     "follows",
		columns:  map[string]columnKind{"user_being_followed_id": kindID, "user_following_id": kindID},
		required: []string{"user_being_followed_id", "user_following_id"},
	}
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// loadCSV bulk-inserts path into t using tx and returns the row count.
func loadCSV(tx *gorm.DB, t table, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return insertCSV(tx, t, f, path)
}

func insertCSV(tx *gorm.DB, t table, r io.Reader, source string) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: read header: %w", source, err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
		if _, ok := t.columns[header[i]]; !ok {
			return 0, fmt.Errorf("%s: unknown column %q for %s", source, h, t.name)
		}
	}
	for _, req := range t.required {
		if !contains(header, req) {
			return 0, fmt.Errorf("%s: missing required column %q", source, req)
		}
	}

	total := 0
	batch := make([]map[string]interface{}, 0, BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := tx.Table(t.name).Create(&batch).Error; err != nil {
			return fmt.Errorf("%s: insert into %s: %w", source, t.name, err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return total, fmt.Errorf("%s:%d: %w", source, line, err)
		}

		row, err := t.convert(header, record)
		if err != nil {
			return total, fmt.Errorf("%s:%d: %w", source, line, err)
		}
		batch = append(batch, row)
		if len(batch) == BatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	if contains(header, "id") {
		if err := resetSequence(tx, t.name); err != nil {
			return total, err
		}
	}
	return total, nil
}

func (t table) convert(header, record []string) (map[string]interface{}, error) {
	row := make(map[string]interface{}, len(header)+len(t.defaults))
	for i, col := range header {
		raw := strings.TrimSpace(record[i])
		if raw == "" {
			if def, ok := t.defaults[col]; ok {
				row[col] = def
				continue
			}
		}

		switch t.columns[col] {
		case kindID:
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s: invalid id %q", col, raw)
			}
			row[col] = uint(id)
		case kindTime:
			if raw == "" {
				row[col] = time.Now().UTC()
				continue
			}
			ts, err := parseTime(raw)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			row[col] = ts
		default:
			row[col] = record[i]
		}
	}

	for col, def := range t.defaults {
		if _, ok := row[col]; !ok {
			row[col] = def
		}
	}
	now := time.Now().UTC()
	for _, col := range t.stamped {
		row[col] = now
	}
	if _, ok := t.columns["timestamp"]; ok {
		if _, set := row["timestamp"]; !set {
			row["timestamp"] = now
		}
	}
	return row, nil
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

// resetSequence moves a postgres serial past explicitly inserted ids.
func resetSequence(tx *gorm.DB, tableName string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	sql := fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 1))",
		tableName, tableName)
	if err := tx.Exec(sql).Error; err != nil {
		return fmt.Errorf("reset %s id sequence: %w", tableName, err)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
