package database

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"detectserver/internal/models"
)

// Database persists detection records to SQLite so history survives restarts.
type Database struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates and initializes a new SQLite database.
func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	database := &Database{db: db}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return database, nil
}

// migrate creates the necessary tables if they don't exist.
func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		type TEXT NOT NULL,
		image_url TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS record_objects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		object_name TEXT NOT NULL,
		FOREIGN KEY (record_id) REFERENCES records(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS record_boxes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		x1 REAL NOT NULL,
		y1 REAL NOT NULL,
		x2 REAL NOT NULL,
		y2 REAL NOT NULL,
		confidence REAL NOT NULL,
		class_name TEXT NOT NULL,
		FOREIGN KEY (record_id) REFERENCES records(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_records_type ON records(type);
	CREATE INDEX IF NOT EXISTS idx_records_image_url ON records(image_url);
	CREATE INDEX IF NOT EXISTS idx_record_objects_record_id ON record_objects(record_id);
	CREATE INDEX IF NOT EXISTS idx_record_boxes_record_id ON record_boxes(record_id);
	`

	_, err := d.db.Exec(schema)
	return err
}

// InsertRecord adds a detection record with its objects and boxes.
// The annotated base64 image is deliberately not persisted.
func (d *Database) InsertRecord(rec *models.DetectionRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO records (id, timestamp, type, image_url)
		VALUES (?, ?, ?, ?)
	`, rec.ID, rec.Timestamp, rec.Type, rec.ImageURL)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	for i, obj := range rec.Objects {
		_, err := tx.Exec(`
			INSERT INTO record_objects (record_id, position, object_name)
			VALUES (?, ?, ?)
		`, rec.ID, i, obj)
		if err != nil {
			return fmt.Errorf("failed to insert object: %w", err)
		}
	}

	for i, box := range rec.Boxes {
		_, err := tx.Exec(`
			INSERT INTO record_boxes (record_id, position, x1, y1, x2, y2, confidence, class_name)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.ID, i, box.X1, box.Y1, box.X2, box.Y2, box.Confidence, box.ClassName)
		if err != nil {
			return fmt.Errorf("failed to insert box: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRecords retrieves all detection records in insertion order.
func (d *Database) GetRecords() ([]models.DetectionRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.Query(`
		SELECT id, timestamp, type, image_url
		FROM records
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	var records []models.DetectionRecord
	for rows.Next() {
		var rec models.DetectionRecord
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.Type, &rec.ImageURL); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	rows.Close()

	// Child rows are fetched only after the record cursor is closed: the pool
	// holds a single connection, a nested query would wait on it forever.
	for i := range records {
		objects, err := d.getRecordObjects(records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Objects = objects

		boxes, err := d.getRecordBoxes(records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Boxes = boxes
	}

	return records, nil
}

// CountRecords returns the number of stored detection records.
func (d *Database) CountRecords() (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// HasRecordForImage reports whether a record already references the given
// stored image path.
func (d *Database) HasRecordForImage(imageURL string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM records WHERE image_url = ?`, imageURL).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to look up image url: %w", err)
	}
	return count > 0, nil
}

// getRecordObjects retrieves the deduplicated object names for a record.
func (d *Database) getRecordObjects(recordID string) ([]string, error) {
	rows, err := d.db.Query(`
		SELECT object_name FROM record_objects WHERE record_id = ? ORDER BY position
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	defer rows.Close()

	objects := []string{}
	for rows.Next() {
		var obj string
		if err := rows.Scan(&obj); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		objects = append(objects, obj)
	}

	return objects, rows.Err()
}

// getRecordBoxes retrieves the bounding boxes for a record.
func (d *Database) getRecordBoxes(recordID string) ([]models.DetectionBox, error) {
	rows, err := d.db.Query(`
		SELECT x1, y1, x2, y2, confidence, class_name
		FROM record_boxes WHERE record_id = ? ORDER BY position
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query boxes: %w", err)
	}
	defer rows.Close()

	boxes := []models.DetectionBox{}
	for rows.Next() {
		var box models.DetectionBox
		if err := rows.Scan(&box.X1, &box.Y1, &box.X2, &box.Y2, &box.Confidence, &box.ClassName); err != nil {
			return nil, fmt.Errorf("failed to scan box: %w", err)
		}
		boxes = append(boxes, box)
	}

	return boxes, rows.Err()
}

// ClearAll removes all records, objects and boxes.
func (d *Database) ClearAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, table := range []string{"record_boxes", "record_objects", "records"} {
		if _, err := d.db.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}
