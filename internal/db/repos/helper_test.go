package repos

import (
	"context"
	"fmt"
	"strings"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/celestiaorg/jobdesk/internal/db/models"
	"github.com/celestiaorg/jobdesk/internal/types"
)

// DBRepositoryTestSuite provides a base test suite for repository tests
type DBRepositoryTestSuite struct {
	suite.Suite
	db        *gorm.DB
	ctx       context.Context
	draftRepo *DraftRepository
}

func (s *DBRepositoryTestSuite) SetupTest() {
	// A named in-memory database per test keeps tests isolated
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(s.T().Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err, "Failed to create in-memory database")

	err = db.AutoMigrate(&models.DraftStash{})
	require.NoError(s.T(), err, "Failed to run database migrations")

	s.db = db
	s.draftRepo = NewDraftRepository(s.db)
	s.ctx = context.Background()
}

func (s *DBRepositoryTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	if err == nil && sqlDB != nil {
		_ = sqlDB.Close()
	}
}

// Helper methods for creating test data

func (s *DBRepositoryTestSuite) newDraft(jobID uint, coverLetter string) *models.DraftStash {
	return &models.DraftStash{
		JobID:       jobID,
		JobURL:      fmt.Sprintf("https://www.upwork.com/jobs/~%02d", jobID),
		CoverLetter: coverLetter,
		Answers: []types.QuestionAnswer{
			{Question: "Why you?", Answer: "Experience"},
		},
		Profile: types.ProfileGeneral,
	}
}
