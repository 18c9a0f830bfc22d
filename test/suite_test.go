package test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/jobdesk/internal/api/v1/routes"
	"github.com/celestiaorg/jobdesk/internal/db/models"
	"github.com/celestiaorg/jobdesk/internal/types"
)

func TestNewSuite(t *testing.T) {
	s := NewSuite(t)
	defer s.Cleanup()

	assert.Same(t, t, s.T())
	assert.NotNil(t, s.App, "app should be initialized")
	assert.NotNil(t, s.Server, "server should be initialized")
	assert.NotNil(t, s.Backend, "backend should be initialized")
	assert.NotNil(t, s.APIClient, "API client should be initialized")
	assert.NotNil(t, s.DB, "database should be initialized")
	assert.NotNil(t, s.DraftRepo, "draft repository should be initialized")
	assert.NotNil(t, s.Bus, "event bus should be initialized")
	assert.NotNil(t, s.Metrics, "metrics should be initialized")
	assert.NotNil(t, s.ctx, "context should be set")

	health, err := s.APIClient.HealthCheck(s.Context())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health["status"])
}

func TestSuite_Database(t *testing.T) {
	s := NewSuite(t)
	defer s.Cleanup()

	require.True(t, s.DB.Migrator().HasTable(&models.DraftStash{}))

	stash := &models.DraftStash{JobID: 4, JobURL: JobURL(4), CoverLetter: "stashed"}
	require.NoError(t, s.DraftRepo.Put(s.Context(), stash))

	got, err := s.DraftRepo.Get(s.Context(), 4)
	require.NoError(t, err)
	assert.Equal(t, "stashed", got.CoverLetter)
}

func TestSuite_Cleanup(t *testing.T) {
	t.Run("multiple cleanup calls", func(t *testing.T) {
		s := NewSuite(t)
		s.Cleanup()
		s.Cleanup()
	})

	t.Run("database cleanup", func(t *testing.T) {
		s := NewSuite(t)
		sqlDB, err := s.DB.DB()
		require.NoError(t, err)

		s.Cleanup()
		assert.Error(t, sqlDB.Ping(), "database connection should be closed")
	})

	t.Run("context canceled", func(t *testing.T) {
		s := NewSuite(t)
		s.Cleanup()
		assert.ErrorIs(t, s.Context().Err(), context.Canceled)
	})

	t.Run("cleanup func runs", func(t *testing.T) {
		called := false
		s := NewSuite(t, WithCleanupFunc(func() { called = true }))
		s.Cleanup()
		assert.True(t, called)
	})

	t.Run("held request released", func(t *testing.T) {
		s := NewSuite(t)
		s.Backend.HoldNext(routes.HealthCheck)

		done := make(chan error, 1)
		go func() {
			_, err := s.APIClient.HealthCheck(s.Context())
			done <- err
		}()
		s.WaitFor(func() bool { return len(s.Backend.Requests(routes.HealthCheck)) == 1 })

		s.Cleanup()
		select {
		case <-done:
		case <-time.After(waitTimeout):
			t.Fatal("held request was not released on cleanup")
		}
	})
}

func TestSuite_WithTimeout(t *testing.T) {
	s := NewSuite(t, WithTimeout(time.Minute))
	defer s.Cleanup()

	deadline, ok := s.Context().Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestBackend_FailNext(t *testing.T) {
	s := NewSuite(t)
	defer s.Cleanup()

	s.Backend.FailNext(routes.HealthCheck, http.StatusServiceUnavailable)

	_, err := s.APIClient.HealthCheck(s.Context())
	assert.ErrorIs(t, err, types.ErrNetworkFailure)

	_, err = s.APIClient.HealthCheck(s.Context())
	assert.NoError(t, err, "failures apply to one request only")
}
