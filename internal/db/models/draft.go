package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/celestiaorg/jobdesk/internal/types"
)

// DraftStash is a locally stashed, unsaved proposal draft. There is at most
// one row per job.
type DraftStash struct {
	ID          uuid.UUID              `json:"id" gorm:"type:varchar(36);primaryKey"`
	JobID       uint                   `json:"job_id" gorm:"not null;uniqueIndex"`
	JobURL      string                 `json:"job_url" gorm:"not null"`
	CoverLetter string                 `json:"cover_letter" gorm:"type:text"`
	Answers     []types.QuestionAnswer `json:"answers" gorm:"type:text;serializer:json"`
	Profile     types.ProfileName      `json:"profile"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at" gorm:"index"`
}

// BeforeCreate assigns a fresh ID to new rows
func (d *DraftStash) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
