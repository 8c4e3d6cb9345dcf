package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"

	"github.com/ependal/vidgate/internal/domain"
	"github.com/ependal/vidgate/internal/port"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
				"PRAGMA foreign_keys = ON",
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

func NewStore(dataDir string) (*Store, error) {
	registerHook()

	db, err := sql.Open("sqlite", filepath.Join(dataDir, "vidgate.db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection: WAL allows concurrent reads but one writer.
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const videoColumns = `id, owner_id, title, description, category, tags, status,
	duration_seconds, original_asset_name, manifest_name, static_thumb_name,
	animated_thumb_name, custom_thumb_name, created_at`

func (s *Store) Save(ctx context.Context, v *domain.Video) error {
	tags, err := encodeTags(v.Tags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO videos (`+videoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.OwnerID, v.Title, v.Description, v.Category, tags,
		string(v.Status), v.DurationSeconds, v.OriginalAssetName,
		v.ManifestName, v.StaticThumbName, v.AnimatedThumbName,
		v.CustomThumbName, v.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Video, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	return scanVideo(row)
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Video, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+videoColumns+` FROM videos
		WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*domain.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateMetadata(ctx context.Context, id string, patch *domain.MetadataPatch) error {
	v, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	patch.Apply(v)

	tags, err := encodeTags(v.Tags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE videos SET title = ?, description = ?, category = ?, tags = ?
		WHERE id = ?`,
		v.Title, v.Description, v.Category, tags, id,
	)
	return err
}

func (s *Store) UpdateCustomThumb(ctx context.Context, id, customThumbName string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE videos SET custom_thumb_name = ? WHERE id = ?`, customThumbName, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) SetOriginalName(ctx context.Context, id, originalAssetName string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE videos SET original_asset_name = ? WHERE id = ?`, originalAssetName, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Finalize commits the pipeline result in a single statement so the
// manifest, thumbnails, duration and terminal status land atomically.
func (s *Store) Finalize(ctx context.Context, v *domain.Video) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE videos SET
			status = ?, duration_seconds = ?, manifest_name = ?,
			static_thumb_name = ?, animated_thumb_name = ?, custom_thumb_name = ?
		WHERE id = ?`,
		string(v.Status), v.DurationSeconds, v.ManifestName,
		v.StaticThumbName, v.AnimatedThumbName, v.CustomThumbName, v.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status domain.VideoStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE videos SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVideo(row scanner) (*domain.Video, error) {
	var v domain.Video
	var status, tags string
	err := row.Scan(
		&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.Category, &tags,
		&status, &v.DurationSeconds, &v.OriginalAssetName, &v.ManifestName,
		&v.StaticThumbName, &v.AnimatedThumbName, &v.CustomThumbName,
		&v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	v.Status = domain.VideoStatus(status)
	if err := json.Unmarshal([]byte(tags), &v.Tags); err != nil {
		return nil, fmt.Errorf("decode tags for %s: %w", v.ID, err)
	}
	return &v, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

var _ port.VideoStore = (*Store)(nil)
