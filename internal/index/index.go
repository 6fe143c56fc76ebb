// Package index catalogues decoded atlases and their tile placements in a
// SQLite database so sprite rectangles can be looked up without redecoding.
package index

import (
	"database/sql"
	"fmt"
	"image"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Faultbox/rscatlas/pkg/formats"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS atlas (
		id INTEGER PRIMARY KEY NOT NULL,
		source TEXT NOT NULL UNIQUE,
		size INTEGER NOT NULL,
		tile_count INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tile (
		atlas_id INTEGER NOT NULL,
		tile_index INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		w INTEGER NOT NULL,
		h INTEGER NOT NULL,
		PRIMARY KEY (atlas_id, tile_index),
		FOREIGN KEY (atlas_id) REFERENCES atlas(id) ON DELETE CASCADE
	)`,
}

// Atlas summarises one catalogued container.
type Atlas struct {
	Source    string
	Size      int
	TileCount int
}

// Store is a SQLite-backed placement catalogue.
type Store struct {
	db *sql.DB
}

// Open opens or creates the catalogue at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put records the placements of source, replacing any earlier entry.
func (s *Store) Put(source string, size int, tiles []formats.RSCTile) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM atlas WHERE source = ?", source); err != nil {
		return err
	}

	res, err := tx.Exec("INSERT INTO atlas (source, size, tile_count) VALUES (?, ?, ?)", source, size, len(tiles))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare("INSERT INTO tile (atlas_id, tile_index, x, y, w, h) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range tiles {
		if _, err := stmt.Exec(id, t.Index, t.Position.X, t.Position.Y, t.Size.X, t.Size.Y); err != nil {
			return fmt.Errorf("tile %d: %w", t.Index, err)
		}
	}

	return tx.Commit()
}

// Tiles returns the placements recorded for source ordered by tile index.
// It returns sql.ErrNoRows if source was never catalogued.
func (s *Store) Tiles(source string) ([]formats.RSCTile, error) {
	var id int64
	if err := s.db.QueryRow("SELECT id FROM atlas WHERE source = ?", source).Scan(&id); err != nil {
		return nil, err
	}

	rows, err := s.db.Query("SELECT tile_index, x, y, w, h FROM tile WHERE atlas_id = ? ORDER BY tile_index", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tiles := []formats.RSCTile{}
	for rows.Next() {
		var t formats.RSCTile
		if err := rows.Scan(&t.Index, &t.Position.X, &t.Position.Y, &t.Size.X, &t.Size.Y); err != nil {
			return nil, err
		}
		tiles = append(tiles, t)
	}
	return tiles, rows.Err()
}

// Lookup returns the atlas rectangle of one tile.
func (s *Store) Lookup(source string, tile int) (image.Rectangle, error) {
	var x, y, w, h int
	err := s.db.QueryRow(`SELECT t.x, t.y, t.w, t.h FROM tile t
		JOIN atlas a ON a.id = t.atlas_id
		WHERE a.source = ? AND t.tile_index = ?`, source, tile).Scan(&x, &y, &w, &h)
	if err != nil {
		return image.Rectangle{}, err
	}
	return image.Rect(x, y, x+w, y+h), nil
}

// Atlases lists every catalogued container ordered by source.
func (s *Store) Atlases() ([]Atlas, error) {
	rows, err := s.db.Query("SELECT source, size, tile_count FROM atlas ORDER BY source")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var atlases []Atlas
	for rows.Next() {
		var a Atlas
		if err := rows.Scan(&a.Source, &a.Size, &a.TileCount); err != nil {
			return nil, err
		}
		atlases = append(atlases, a)
	}
	return atlases, rows.Err()
}
