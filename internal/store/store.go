// Package store persists run results to PostgreSQL.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ironsheep/color-detect/internal/pipeline"
	"github.com/jackc/pgx/v5"
)

// Store writes media runs and their detections. A single connection is
// shared; calls are serialized.
type Store struct {
	mu   sync.Mutex
	conn *pgx.Conn
}

// New connects to the database and creates the schema if needed.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

func initSchema(ctx context.Context, conn *pgx.Conn) error {
	_, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS media_runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			path TEXT NOT NULL,
			output_path TEXT NOT NULL,
			width INT NOT NULL,
			height INT NOT NULL,
			frame_count INT NOT NULL DEFAULT 1,
			color_name TEXT,
			color_hex TEXT,
			processed_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS detections (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT REFERENCES media_runs(id) ON DELETE CASCADE,
			frame_index INT NOT NULL,
			sequence INT NOT NULL,
			label TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			x INT NOT NULL,
			y INT NOT NULL,
			width INT NOT NULL,
			height INT NOT NULL,
			color_r SMALLINT NOT NULL,
			color_g SMALLINT NOT NULL,
			color_b SMALLINT NOT NULL,
			color_name TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS detections_run_id_idx ON detections (run_id);
	`)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.Close(ctx)
}

// RunID identifies a media file by path, size and modification time, so
// reprocessing an unchanged file replaces its earlier rows.
func RunID(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	data := fmt.Sprintf("%s-%d-%d", path, info.Size(), info.ModTime().UnixNano())
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:]), nil
}

// SaveImage records an image run and returns its id.
func (s *Store) SaveImage(ctx context.Context, res *pipeline.ImageResult) (string, error) {
	if res == nil {
		return "", errors.New("nil image result")
	}
	id, err := RunID(res.Path)
	if err != nil {
		return "", err
	}
	run := runRow{
		id: id, kind: "image", path: res.Path, output: res.OutputPath,
		width: res.Width, height: res.Height, frames: 1,
		colorName: res.ColorName, colorHex: res.ColorHex,
	}
	return id, s.save(ctx, run, []pipeline.FrameResult{{Index: 0, Detections: res.Detections}})
}

// SaveVideo records a video run and returns its id.
func (s *Store) SaveVideo(ctx context.Context, res *pipeline.VideoResult) (string, error) {
	if res == nil {
		return "", errors.New("nil video result")
	}
	id, err := RunID(res.Path)
	if err != nil {
		return "", err
	}
	run := runRow{
		id: id, kind: "video", path: res.Path, output: res.OutputPath,
		width: res.Width, height: res.Height, frames: res.FrameCount,
	}
	return id, s.save(ctx, run, res.Frames)
}

type runRow struct {
	id        string
	kind      string
	path      string
	output    string
	width     int
	height    int
	frames    int
	colorName string
	colorHex  string
}

func (s *Store) save(ctx context.Context, run runRow, frames []pipeline.FrameResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Reprocessing replaces the earlier detections.
	if _, err := tx.Exec(ctx, "DELETE FROM detections WHERE run_id = $1", run.id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO media_runs (id, kind, path, output_path, width, height, frame_count, color_name, color_hex, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), NOW())
		ON CONFLICT (id) DO UPDATE SET
			output_path = EXCLUDED.output_path,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			frame_count = EXCLUDED.frame_count,
			color_name = EXCLUDED.color_name,
			color_hex = EXCLUDED.color_hex,
			processed_at = NOW()
	`, run.id, run.kind, run.path, run.output, run.width, run.height, run.frames, run.colorName, run.colorHex); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, fr := range frames {
		for _, d := range fr.Detections {
			batch.Queue(`
				INSERT INTO detections (run_id, frame_index, sequence, label, confidence, x, y, width, height, color_r, color_g, color_b, color_name)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			`, run.id, fr.Index, d.Sequence, d.Label, d.Confidence,
				d.Box.X, d.Box.Y, d.Box.Width, d.Box.Height,
				int16(d.DominantColor.R), int16(d.DominantColor.G), int16(d.DominantColor.B), d.ColorName)
		}
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert detections: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// Summary is a stored run.
type Summary struct {
	ID         string
	Kind       string
	Path       string
	OutputPath string
	FrameCount int
	Detections int
}

// Get returns the stored run with id, or pgx.ErrNoRows.
func (s *Store) Get(ctx context.Context, id string) (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum Summary
	err := s.conn.QueryRow(ctx, `
		SELECT r.id, r.kind, r.path, r.output_path, r.frame_count,
			(SELECT COUNT(*) FROM detections d WHERE d.run_id = r.id)
		FROM media_runs r WHERE r.id = $1
	`, id).Scan(&sum.ID, &sum.Kind, &sum.Path, &sum.OutputPath, &sum.FrameCount, &sum.Detections)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}
