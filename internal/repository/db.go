package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/debemdeboas/microsites/internal/db"
	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/util"
	"github.com/debemdeboas/microsites/internal/util/compression"
)

const projectColumns = `id, owner, name, description, publish_status, url_slug,
	title, tagline, body, theme, last_edited, created_at, updated_at`

type DBProjectRepository struct { // implements ProjectRepository
	db         db.DB
	compressor compression.Compressor
}

func NewDBProjectRepository(db db.DB) *DBProjectRepository {
	return &DBProjectRepository{
		db: db,

		compressor: compression.ZstdCompressor{},
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *DBProjectRepository) scan(row rowScanner) (*model.Project, error) {
	var (
		p          model.Project
		desc, slug sql.NullString
		compressed []byte
		lastEdited sql.NullTime
	)

	err := row.Scan(&p.ID, &p.Owner, &p.Name, &desc, &p.PublishStatus, &slug,
		&p.State.Title, &p.State.Tagline, &compressed, &p.State.Theme, &lastEdited, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if desc.Valid {
		p.Description = &desc.String
	}
	if slug.Valid {
		p.URLSlug = &slug.String
	}
	if lastEdited.Valid {
		p.State.LastEdited = lastEdited.Time
	}

	if len(compressed) > 0 {
		body, err := r.compressor.Decompress(compressed)
		if err != nil {
			return nil, fmt.Errorf("error decompressing body of project %d: %w", p.ID, err)
		}
		p.State.Body = string(body)
	}

	return &p, nil
}

func (r *DBProjectRepository) list(ctx context.Context, where string, args ...any) ([]model.Project, error) {
	rows, err := r.db.Query(ctx, `SELECT `+projectColumns+` FROM projects WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying projects: %w", err)
	}
	defer rows.Close()

	projects := make([]model.Project, 0)
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *DBProjectRepository) Create(ctx context.Context, owner model.UserID, name string, description *string) (model.ProjectID, error) {
	now := time.Now().UTC()
	state := model.DefaultState()

	res, err := r.db.Exec(ctx,
		`INSERT INTO projects (owner, name, description, publish_status, theme, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		owner, name, description, model.StatusDraft, state.Theme, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("error creating project: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("error reading project id: %w", err)
	}

	repoLogger.Debug().Int64("project_id", id).Str("owner", string(owner)).Msg("Project created")
	return model.ProjectID(id), nil
}

func (r *DBProjectRepository) Get(ctx context.Context, id model.ProjectID) (*model.Project, error) {
	p, err := r.scan(r.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading project %d: %w", id, err)
	}
	return p, nil
}

func (r *DBProjectRepository) Update(ctx context.Context, id model.ProjectID, name string, description *string) error {
	res, err := r.db.Exec(ctx,
		`UPDATE projects SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		name, description, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("error updating project: %w", err)
	}
	return affected(res)
}

func (r *DBProjectRepository) Delete(ctx context.Context, id model.ProjectID) error {
	res, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting project: %w", err)
	}
	return affected(res)
}

func (r *DBProjectRepository) ListByOwner(ctx context.Context, owner model.UserID) ([]model.Project, error) {
	return r.list(ctx, `owner = ?`, owner)
}

func (r *DBProjectRepository) ListPublished(ctx context.Context) ([]model.Project, error) {
	return r.list(ctx, `publish_status = ?`, model.StatusPublished)
}

func (r *DBProjectRepository) SaveState(ctx context.Context, id model.ProjectID, state model.ProjectState) (time.Time, error) {
	compressed, err := r.compressor.Compress([]byte(state.Body))
	if err != nil {
		return time.Time{}, fmt.Errorf("error compressing body: %w", err)
	}

	now := time.Now().UTC()
	res, err := r.db.Exec(ctx,
		`UPDATE projects SET title = ?, tagline = ?, body = ?, body_hash = ?, theme = ?, last_edited = ?, updated_at = ? WHERE id = ?`,
		state.Title, state.Tagline, compressed, util.ContentHashString(state.Body), state.Theme, now, now, id,
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("error saving project state: %w", err)
	}
	if err := affected(res); err != nil {
		return time.Time{}, err
	}

	repoLogger.Debug().Stringer("project_id", id).Int("body_bytes", len(state.Body)).Msg("Project state saved")
	return now, nil
}

func (r *DBProjectRepository) SetStatus(ctx context.Context, id model.ProjectID, status model.PublishStatus) (bool, error) {
	changed := false
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var current model.PublishStatus
		err := tx.QueryRowContext(ctx, `SELECT publish_status FROM projects WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrNotFound
		}
		if err != nil {
			return err
		}
		if current == status {
			return nil
		}

		// The slug is set on first publish and kept afterwards.
		_, err = tx.ExecContext(ctx,
			`UPDATE projects SET publish_status = ?, url_slug = CASE WHEN ? THEN COALESCE(url_slug, ?) ELSE url_slug END, updated_at = ? WHERE id = ?`,
			status, status == model.StatusPublished, model.Slug(id), time.Now().UTC(), id,
		)
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return false, fmt.Errorf("error setting project status: %w", err)
	}
	return changed, err
}

var _ ProjectRepository = (*DBProjectRepository)(nil)
