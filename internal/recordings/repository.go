package recordings

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxnote/backend/internal/models"
)

// Repository handles recording persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a recordings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new recording for its owner.
func (r *Repository) Create(ctx context.Context, rec *models.Recording) error {
	const q = `INSERT INTO recordings (name, file_path, user_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, rec.Name, rec.FilePath, rec.UserID).
		Scan(&rec.ID, &rec.CreatedAt)
}

// ExistsByNameAndOwner reports whether the owner already has a recording
// with this name.
func (r *Repository) ExistsByNameAndOwner(ctx context.Context, name string, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM recordings WHERE name = $1 AND user_id = $2)`
	var exists bool
	err := r.pool.QueryRow(ctx, q, name, userID).Scan(&exists)
	return exists, err
}

// CountByOwner returns the owner's total recording count.
func (r *Repository) CountByOwner(ctx context.Context, userID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM recordings WHERE user_id = $1`
	var n int
	err := r.pool.QueryRow(ctx, q, userID).Scan(&n)
	return n, err
}

// ListByOwner returns a page of the owner's recordings, newest first with id
// as tie-break, without the raw transcription payload.
func (r *Repository) ListByOwner(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.ListItem, error) {
	const q = `SELECT r.id, r.name, r.file_path,
		COALESCE(r.transcription_job_id, ''), COALESCE(r.transcription_result_url, ''),
		r.created_at, u.full_name, u.email
		FROM recordings r JOIN users u ON u.id = r.user_id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC, r.id ASC
		OFFSET $2 LIMIT $3`
	rows, err := r.pool.Query(ctx, q, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.ListItem, 0)
	for rows.Next() {
		var item models.ListItem
		if err := rows.Scan(&item.ID, &item.Name, &item.FilePath, &item.JobID, &item.ResultURL,
			&item.CreatedAt, &item.Owner.FullName, &item.Owner.Email); err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

// GetByIDAndOwner returns a recording matched on both id and owner, with the
// owner's name and email joined in. pgx.ErrNoRows covers absent and foreign
// rows alike.
func (r *Repository) GetByIDAndOwner(ctx context.Context, id, userID uuid.UUID) (*models.Recording, error) {
	const q = `SELECT r.id, r.name, r.file_path, r.user_id,
		COALESCE(r.transcription_job_id, ''), COALESCE(r.transcription_result_url, ''),
		r.transcription_result, r.created_at, u.full_name, u.email
		FROM recordings r JOIN users u ON u.id = r.user_id
		WHERE r.id = $1 AND r.user_id = $2`
	var rec models.Recording
	var owner models.Owner
	err := r.pool.QueryRow(ctx, q, id, userID).Scan(&rec.ID, &rec.Name, &rec.FilePath, &rec.UserID,
		&rec.JobID, &rec.ResultURL, &rec.Result, &rec.CreatedAt, &owner.FullName, &owner.Email)
	if err != nil {
		return nil, err
	}
	rec.Owner = &owner
	return &rec, nil
}

// Delete removes a recording by id.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM recordings WHERE id = $1`, id)
	return err
}

// UpdateJob stores the provider job handle after a transcription submit.
func (r *Repository) UpdateJob(ctx context.Context, id uuid.UUID, jobID, resultURL string) error {
	const q = `UPDATE recordings SET transcription_job_id = $1, transcription_result_url = $2 WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, jobID, resultURL, id)
	return err
}

// UpdateResult overwrites the stored transcription payload.
func (r *Repository) UpdateResult(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	const q = `UPDATE recordings SET transcription_result = $1 WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, result, id)
	return err
}
