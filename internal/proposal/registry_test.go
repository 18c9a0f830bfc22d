package proposal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/jobdesk/internal/api/v1/client/mock"
	"github.com/celestiaorg/jobdesk/internal/events"
	"github.com/celestiaorg/jobdesk/internal/types"
)

func TestRegistry_OpenReplacesSession(t *testing.T) {
	m := &mock.MockClient{GetJobFn: jobWithStatus(types.GenerationStatusReady)}
	r := NewRegistry(m)

	first := r.Open(1)
	require.NoError(t, first.Load(context.Background()))
	require.NoError(t, first.SetCoverLetter("edited in first session"))

	second := r.Open(1)
	assert.NotSame(t, first, second)
	assert.Equal(t, PhaseLoading, second.Phase())

	got, ok := r.Get(1)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_SessionsAreIndependent(t *testing.T) {
	m := &mock.MockClient{GetJobFn: jobWithStatus(types.GenerationStatusReady)}
	r := NewRegistry(m)

	a := r.Open(1)
	b := r.Open(2)
	require.NoError(t, a.Load(context.Background()))
	require.NoError(t, b.Load(context.Background()))

	require.NoError(t, a.SetCoverLetter("only a"))
	assert.Equal(t, "Mock cover letter", b.Snapshot().Draft.CoverLetter)

	_, err := a.Apply(context.Background())
	require.NoError(t, err)
	assert.False(t, b.Snapshot().Applied)

	r.Close(1)
	_, ok := r.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_SharesOptions(t *testing.T) {
	bus := events.NewBus()

	var mu sync.Mutex
	var phases []string
	var wg sync.WaitGroup
	wg.Add(3)
	bus.Subscribe(events.EventPhaseChanged, func(ctx context.Context, e events.Event) error {
		mu.Lock()
		phases = append(phases, e.From+"->"+e.To)
		mu.Unlock()
		wg.Done()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.Start(ctx)

	m := &mock.MockClient{GetJobFn: jobWithStatus(types.GenerationStatusPending)}
	r := NewRegistry(m, WithEvents(bus))
	s := r.Open(7)
	require.NoError(t, s.Load(context.Background()))
	_, err := s.TriggerGeneration(context.Background())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for phase events")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"loading->unavailable", "unavailable->generating", "generating->processing"}, phases)
}
