// Package repos provides database repository implementations
package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/celestiaorg/jobdesk/internal/db/models"
	"github.com/celestiaorg/jobdesk/internal/types"
)

// DraftRepository handles database operations for stashed drafts
type DraftRepository struct {
	db *gorm.DB
}

// NewDraftRepository creates a new instance of DraftRepository
func NewDraftRepository(db *gorm.DB) *DraftRepository {
	return &DraftRepository{
		db: db,
	}
}

// Put stores the draft of a job, replacing any earlier stash of the same job
func (r *DraftRepository) Put(ctx context.Context, draft *models.DraftStash) error {
	if draft.JobID == 0 {
		return fmt.Errorf("%w: draft stash needs a job ID", types.ErrValidation)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"job_url", "cover_letter", "answers", "profile", "updated_at"}),
	}).Create(draft).Error
}

// Get retrieves the stashed draft of a job
func (r *DraftRepository) Get(ctx context.Context, jobID uint) (*models.DraftStash, error) {
	var draft models.DraftStash
	err := r.db.WithContext(ctx).Where(&models.DraftStash{JobID: jobID}).First(&draft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no stashed draft for job %d", types.ErrNotFound, jobID)
	}
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

// Delete removes the stashed draft of a job. Deleting a missing stash is not an error.
func (r *DraftRepository) Delete(ctx context.Context, jobID uint) error {
	return r.db.WithContext(ctx).Where(&models.DraftStash{JobID: jobID}).Delete(&models.DraftStash{}).Error
}

// List retrieves stashed drafts, most recently updated first
func (r *DraftRepository) List(ctx context.Context, opts *models.ListOptions) ([]models.DraftStash, error) {
	opts = opts.Normalize()
	var drafts []models.DraftStash
	err := r.db.WithContext(ctx).Order("updated_at DESC").
		Limit(opts.Limit).Offset(opts.Offset).Find(&drafts).Error
	return drafts, err
}
