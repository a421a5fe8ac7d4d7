package volumeindex

import (
	"database/sql"
	"fmt"
	"hash/crc32"
	"os"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/nexusfs/engine/types"
)

// schemaVersion is bumped whenever the on-disk layout changes in a way that
// would make an older reader misinterpret the bytes. Deserialize rejects
// any other value outright.
const schemaVersion = 1

// Serialize persists the index as a self-contained SQLite database and
// returns its raw bytes. The records table carries the full mapping; a
// single-row meta table carries the schema version and a CRC32 checksum of
// the record set, checked on load so corrupted or truncated bytes are
// rejected rather than partially accepted.
func Serialize(idx *Index) ([]byte, error) {
	path, cleanup, err := tempDBPath()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open index database")
	}
	defer db.Close()

	if err := createSchema(db); err != nil {
		return nil, err
	}

	records := idx.Snapshot()
	tx, err := db.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "begin transaction")
	}
	for _, r := range records {
		if _, err := tx.Exec(
			`INSERT INTO records (id, parent_id, name, is_dir, size, modified_unix) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.ParentID, r.Name, r.IsDir, r.Size, r.Modified.Unix(),
		); err != nil {
			tx.Rollback()
			return nil, errors.Wrap(err, "insert record")
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO meta (schema_version, checksum) VALUES (?, ?)`,
		schemaVersion, checksumOf(records),
	); err != nil {
		tx.Rollback()
		return nil, errors.Wrap(err, "insert metadata")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit transaction")
	}
	db.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read serialized database")
	}
	return data, nil
}

// Deserialize loads an index previously produced by Serialize. Any error —
// a schema mismatch, a checksum mismatch, or bytes that aren't a valid
// SQLite database at all — leaves no partial index behind: it returns a
// types.Error with kind Serialization and a nil index.
func Deserialize(data []byte) (*Index, error) {
	path, cleanup, err := tempDBPath()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, types.NewError(types.ErrSerialization, path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, types.NewError(types.ErrSerialization, path, err)
	}
	defer db.Close()

	var version int
	var checksum uint32
	row := db.QueryRow(`SELECT schema_version, checksum FROM meta`)
	if err := row.Scan(&version, &checksum); err != nil {
		return nil, types.NewError(types.ErrSerialization, path, errors.Wrap(err, "read metadata row"))
	}
	if version != schemaVersion {
		return nil, types.NewError(types.ErrSerialization, path, fmt.Errorf("unsupported schema version %d", version))
	}

	rows, err := db.Query(`SELECT id, parent_id, name, is_dir, size, modified_unix FROM records`)
	if err != nil {
		return nil, types.NewError(types.ErrSerialization, path, errors.Wrap(err, "read records"))
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var modifiedUnix int64
		if err := rows.Scan(&r.ID, &r.ParentID, &r.Name, &r.IsDir, &r.Size, &modifiedUnix); err != nil {
			return nil, types.NewError(types.ErrSerialization, path, errors.Wrap(err, "scan record"))
		}
		r.Modified = time.Unix(modifiedUnix, 0).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewError(types.ErrSerialization, path, err)
	}

	if checksumOf(records) != checksum {
		return nil, types.NewError(types.ErrSerialization, path, errChecksumMismatch)
	}

	idx := New()
	idx.Restore(records)
	return idx, nil
}

func createSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE records (
			id INTEGER PRIMARY KEY,
			parent_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			is_dir INTEGER NOT NULL,
			size INTEGER NOT NULL,
			modified_unix INTEGER NOT NULL
		)`,
		`CREATE TABLE meta (
			schema_version INTEGER NOT NULL,
			checksum INTEGER NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return errors.Wrap(err, "create schema")
		}
	}
	return nil
}

// checksumOf computes an order-independent CRC32 over the record set, so
// the row insertion order (which SQLite does not guarantee to preserve)
// never produces a spurious mismatch.
func checksumOf(records []Record) uint32 {
	var acc uint32
	for _, r := range records {
		line := fmt.Sprintf("%d|%d|%s|%t|%d|%d", r.ID, r.ParentID, r.Name, r.IsDir, r.Size, r.Modified.Unix())
		acc ^= crc32.ChecksumIEEE([]byte(line))
	}
	return acc
}

func tempDBPath() (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "nexusfs-volumeindex-*.db")
	if err != nil {
		return "", nil, errors.Wrap(err, "create temp database file")
	}
	name := f.Name()
	f.Close()
	os.Remove(name) // sqlite needs to create the file itself on open
	return name, func() { os.Remove(name) }, nil
}

type sentinelPersistError string

func (e sentinelPersistError) Error() string { return string(e) }

const errChecksumMismatch = sentinelPersistError("volumeindex: checksum mismatch, refusing partial index")
