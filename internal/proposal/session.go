// Package proposal implements the per job proposal session: loading,
// generation, editing, saving, reverting and applying.
package proposal

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/celestiaorg/jobdesk/internal/events"
	"github.com/celestiaorg/jobdesk/internal/logger"
	"github.com/celestiaorg/jobdesk/internal/metrics"
	"github.com/celestiaorg/jobdesk/internal/types"
)

// Phase is the single state of a session
type Phase string

const (
	// PhaseLoading is both the initial phase and the phase a failed load
	// returns to. Snapshot.Busy tells an outstanding load from a failed one.
	PhaseLoading     Phase = "loading"
	PhaseUnavailable Phase = "unavailable"
	PhaseGenerating  Phase = "generating"
	PhaseProcessing  Phase = "processing"
	PhaseReady       Phase = "ready"
	PhaseSaving      Phase = "saving"
	PhaseReverting   Phase = "reverting"
	PhaseApplying    Phase = "applying"
	PhaseApplied     Phase = "applied"
	PhaseError       Phase = "error"
)

// Store is the backend a session talks to
type Store interface {
	GetJob(ctx context.Context, id uint) (*types.Job, error)
	GenerateProposal(ctx context.Context, jobURL string) (*types.GenerateProposalResponse, error)
	GetProposal(ctx context.Context, jobURL string) (*types.GetProposalResponse, error)
	SaveProposal(ctx context.Context, req types.SaveProposalRequest) (*types.SaveProposalResponse, error)
	ApplyForJob(ctx context.Context, jobURL string) (*types.ApplyForJobResponse, error)
}

// Option configures a Session
type Option func(*Session)

// WithEvents publishes phase changes on bus
func WithEvents(bus *events.Bus) Option {
	return func(s *Session) {
		s.bus = bus
	}
}

// WithMetrics counts phase transitions on collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Session) {
		s.metrics = collector
	}
}

// Snapshot is a copy of the session state
type Snapshot struct {
	JobID     uint
	Phase     Phase
	Job       *types.Job
	Draft     Draft
	Saved     *Draft
	Applied   bool
	Dirty     bool
	WordCount int
	// Busy is set while a remote action is outstanding
	Busy bool
	// Err is the failure of the last action, cleared when the next one starts
	Err error
}

// Session is the proposal workflow of one job. At most one remote action
// is outstanding at a time; a second one is rejected, never queued.
type Session struct {
	store   Store
	jobID   uint
	bus     *events.Bus
	metrics *metrics.Collector

	mu       sync.Mutex
	job      *types.Job
	draft    Draft
	saved    *Draft
	applied  bool
	phase    Phase
	inflight bool
	err      error
}

// NewSession creates a session for jobID in the loading phase
func NewSession(store Store, jobID uint, opts ...Option) *Session {
	s := &Session{
		store: store,
		jobID: jobID,
		phase: PhaseLoading,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// JobID returns the job the session belongs to
func (s *Session) JobID() uint {
	return s.jobID
}

// Phase returns the current phase
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// WordCount returns the word count of the current cover letter
func (s *Session) WordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.WordCount()
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		JobID:     s.jobID,
		Phase:     s.phase,
		Draft:     s.draft.Clone(),
		Applied:   s.applied,
		WordCount: s.draft.WordCount(),
		Busy:      s.inflight,
		Err:       s.err,
	}
	if s.job != nil {
		job := *s.job
		snap.Job = &job
	}
	if s.saved != nil {
		saved := s.saved.Clone()
		snap.Saved = &saved
		snap.Dirty = !s.draft.Equal(saved)
	}
	return snap
}

// Load fetches the job and, when one exists, its proposal. It may be
// repeated from Unavailable or Processing to pick up generation progress.
func (s *Session) Load(ctx context.Context) error {
	prev, err := s.begin(PhaseLoading, PhaseLoading, PhaseUnavailable, PhaseProcessing)
	if err != nil {
		return err
	}

	job, err := s.store.GetJob(ctx, s.jobID)
	if err != nil {
		return s.fail(prev, fmt.Errorf("error loading job %d: %w", s.jobID, err))
	}

	switch job.GenerationStatus {
	case types.GenerationStatusProcessing:
		s.finish(PhaseProcessing, func() { s.job = job })
		return nil
	case types.GenerationStatusPending, "":
		s.finish(PhaseUnavailable, func() { s.job = job })
		return nil
	}

	resp, err := s.fetchProposal(ctx, job.JobURL)
	if err != nil {
		return s.fail(prev, err)
	}

	s.finish(PhaseReady, func() {
		s.job = job
		s.draft = draftFromResponse(resp)
		saved := s.draft.Clone()
		s.saved = &saved
		s.markApplied(resp.Applied || job.GenerationStatus == types.GenerationStatusApplied)
	})
	return nil
}

// TriggerGeneration asks the backend to generate a proposal and returns its
// acknowledgement message. The job is marked processing locally; no draft is
// populated until a later Load.
func (s *Session) TriggerGeneration(ctx context.Context) (string, error) {
	prev, err := s.begin(PhaseGenerating, PhaseUnavailable)
	if err != nil {
		return "", err
	}

	resp, err := s.store.GenerateProposal(ctx, s.jobURL())
	if err != nil {
		return "", s.fail(prev, fmt.Errorf("error generating proposal: %w", err))
	}

	s.finish(PhaseProcessing, func() {
		if s.job != nil {
			s.job.GenerationStatus = types.GenerationStatusProcessing
		}
	})
	return resp.Message, nil
}

// SetCoverLetter replaces the cover letter text
func (s *Session) SetCoverLetter(text string) error {
	return s.edit(func() error {
		s.draft.CoverLetter = text
		return nil
	})
}

// SetAnswer replaces the answer text of question i
func (s *Session) SetAnswer(i int, text string) error {
	return s.edit(func() error {
		if i < 0 || i >= len(s.draft.Answers) {
			return fmt.Errorf("%w: answer index %d out of range [0, %d)", types.ErrValidation, i, len(s.draft.Answers))
		}
		s.draft.Answers[i].Text = text
		return nil
	})
}

// SetProfile selects the profile the proposal is written for
func (s *Session) SetProfile(p types.ProfileName) error {
	profile, err := types.ParseProfile(string(p))
	if err != nil {
		return err
	}
	return s.edit(func() error {
		s.draft.Profile = profile
		return nil
	})
}

// Restore replays a previously stashed draft through the edit operations.
// Answers are matched by position; questions are never changed.
func (s *Session) Restore(d Draft) error {
	return s.edit(func() error {
		if len(d.Answers) > len(s.draft.Answers) {
			return fmt.Errorf("%w: stashed draft has %d answers, proposal has %d", types.ErrValidation, len(d.Answers), len(s.draft.Answers))
		}
		if d.Profile != "" {
			profile, err := types.ParseProfile(string(d.Profile))
			if err != nil {
				return err
			}
			s.draft.Profile = profile
		}
		s.draft.CoverLetter = d.CoverLetter
		for i, a := range d.Answers {
			s.draft.Answers[i].Text = a.Text
		}
		return nil
	})
}

// Save sends the draft to the backend. On success it becomes the saved
// snapshot; on failure the draft is kept as is.
func (s *Session) Save(ctx context.Context) error {
	prev, err := s.begin(PhaseSaving, PhaseReady, PhaseApplied)
	if err != nil {
		return err
	}

	s.mu.Lock()
	sent := s.draft.Clone()
	s.mu.Unlock()

	resp, err := s.store.SaveProposal(ctx, types.SaveProposalRequest{
		JobURL:   s.jobURL(),
		Profile:  sent.Profile,
		Proposal: sent.Data(),
	})
	if err == nil && !resp.Succeeded() {
		err = fmt.Errorf("%w: backend rejected save with status %q", types.ErrNetworkFailure, resp.Status)
	}
	if err != nil {
		return s.fail(prev, fmt.Errorf("error saving proposal: %w", err))
	}

	s.finish(prev, func() {
		s.saved = &sent
	})
	return nil
}

// Revert discards local edits by re-fetching the proposal from the backend.
// The backend copy replaces both the draft and the saved snapshot.
func (s *Session) Revert(ctx context.Context) error {
	prev, err := s.begin(PhaseReverting, PhaseReady, PhaseApplied)
	if err != nil {
		return err
	}

	resp, err := s.fetchProposal(ctx, s.jobURL())
	if err != nil {
		return s.fail(prev, err)
	}

	s.finish(prev, func() {
		profile := s.draft.Profile
		s.draft = draftFromResponse(resp)
		if resp.Profile == "" {
			s.draft.Profile = profile
		}
		saved := s.draft.Clone()
		s.saved = &saved
		s.markApplied(resp.Applied)
	})
	return nil
}

// Apply enqueues the application. It is accepted once per session; after
// success every further call is rejected with ErrStateConflict.
func (s *Session) Apply(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.applied {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: proposal has already been applied", types.ErrStateConflict)
	}
	prev, err := s.beginLocked(PhaseApplying, PhaseReady)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	resp, err := s.store.ApplyForJob(ctx, s.jobURL())
	if err == nil && !resp.Succeeded() {
		err = fmt.Errorf("%w: backend did not accept the application", types.ErrNetworkFailure)
	}
	if err != nil {
		return "", s.fail(prev, fmt.Errorf("error applying: %w", err))
	}

	s.finish(PhaseApplied, func() {
		s.markApplied(true)
	})
	return resp.Message, nil
}

// begin claims the session for an action allowed from the given phases
func (s *Session) begin(to Phase, allowed ...Phase) (Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginLocked(to, allowed...)
}

func (s *Session) beginLocked(to Phase, allowed ...Phase) (Phase, error) {
	if s.inflight {
		return "", fmt.Errorf("%w: %s already in progress", types.ErrStateConflict, s.phase)
	}
	if !slices.Contains(allowed, s.phase) {
		return "", fmt.Errorf("%w: cannot start %s from %s", types.ErrStateConflict, to, s.phase)
	}

	prev := s.phase
	s.inflight = true
	s.err = nil
	s.transitionLocked(to)
	return prev, nil
}

// finish releases the session, applies the result and moves to phase
func (s *Session) finish(phase Phase, apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply()
	s.inflight = false
	s.transitionLocked(phase)
}

// fail releases the session after a failed action. Not found is fatal;
// anything else returns to the pre-action phase.
func (s *Session) fail(prev Phase, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inflight = false
	s.err = err
	next := prev
	if errors.Is(err, types.ErrNotFound) {
		next = PhaseError
	}
	logger.ErrorWithFields("Proposal action failed", map[string]interface{}{
		"job_id": s.jobID,
		"phase":  s.phase,
		"error":  err.Error(),
	})
	s.transitionLocked(next)
	return err
}

func (s *Session) edit(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseReady && s.phase != PhaseApplied {
		return fmt.Errorf("%w: cannot edit while %s", types.ErrStateConflict, s.phase)
	}
	return fn()
}

func (s *Session) fetchProposal(ctx context.Context, jobURL string) (*types.GetProposalResponse, error) {
	resp, err := s.store.GetProposal(ctx, jobURL)
	if err != nil {
		return nil, fmt.Errorf("error fetching proposal: %w", err)
	}
	if !resp.Found() {
		return nil, fmt.Errorf("%w: no proposal for job %d", types.ErrNotFound, s.jobID)
	}
	return resp, nil
}

func (s *Session) jobURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return ""
	}
	return s.job.JobURL
}

// markApplied only ever turns applied on
func (s *Session) markApplied(applied bool) {
	if !applied || s.applied {
		return
	}
	s.applied = true
	if s.job != nil {
		s.job.GenerationStatus = types.GenerationStatusApplied
	}
	s.bus.Publish(events.Event{Type: events.EventProposalApplied, JobURL: s.jobURLLocked()})
}

func (s *Session) jobURLLocked() string {
	if s.job == nil {
		return ""
	}
	return s.job.JobURL
}

func (s *Session) transitionLocked(to Phase) {
	from := s.phase
	s.phase = to
	if from == to {
		return
	}
	logger.Debugf("Proposal session %d: %s -> %s", s.jobID, from, to)
	s.metrics.RecordTransition(string(from), string(to))
	s.bus.Publish(events.Event{
		Type:   events.EventPhaseChanged,
		JobURL: s.jobURLLocked(),
		From:   string(from),
		To:     string(to),
	})
}
