package test

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/celestiaorg/jobdesk/internal/api/v1/routes"
	"github.com/celestiaorg/jobdesk/internal/types"
)

// APIPrefix is the path the fake backend is mounted under
const APIPrefix = "/api"

// Request is a request received by the fake backend
type Request struct {
	Route string
	Query url.Values
}

type storedProposal struct {
	profile types.ProfileName
	data    types.ProposalData
	edited  bool
}

// Backend is an in-memory proposal backend. Requests can be held back or
// failed per route to drive ordering and error paths.
type Backend struct {
	mu        sync.Mutex
	jobs      []*types.Job
	proposals map[string]*storedProposal
	applied   map[string]bool
	prompts   []types.PromptDetail
	requests  []Request
	failures  map[string][]int
	holds     map[string][]chan struct{}
	releases  []func()
}

// NewBackend creates an empty backend with one active prompt version
func NewBackend() *Backend {
	created := "2024-01-01T00:00:00"
	return &Backend{
		proposals: make(map[string]*storedProposal),
		applied:   make(map[string]bool),
		failures:  make(map[string][]int),
		holds:     make(map[string][]chan struct{}),
		prompts: []types.PromptDetail{{
			PromptVersion: types.PromptVersion{ID: 1, PromptName: "proposal", Version: 1, IsActive: true, CreatedAt: &created},
			PromptText:    "Write a short proposal.",
		}},
	}
}

// JobURL returns the URL the backend assigns to job id
func JobURL(id uint) string {
	return fmt.Sprintf("https://www.upwork.com/jobs/~%04d", id)
}

// AddJob stores a job and returns it. ID and URL are assigned when unset.
func (b *Backend) AddJob(job types.Job) types.Job {
	b.mu.Lock()
	defer b.mu.Unlock()
	if job.ID == 0 {
		job.ID = uint(len(b.jobs) + 1)
	}
	if job.JobURL == "" {
		job.JobURL = JobURL(job.ID)
	}
	if job.GenerationStatus == "" {
		job.GenerationStatus = types.GenerationStatusPending
	}
	stored := job
	b.jobs = append(b.jobs, &stored)
	return job
}

// AddJobs stores n jobs titled "<title> <i>" with the given status
func (b *Backend) AddJobs(n int, title string, status types.GenerationStatus) {
	for i := 0; i < n; i++ {
		b.AddJob(types.Job{JobListItem: types.JobListItem{
			JobTitle:         fmt.Sprintf("%s %d", title, i+1),
			GenerationStatus: status,
		}})
	}
}

// SetProposal stores a generated proposal for a job and marks the job ready
func (b *Backend) SetProposal(jobURL string, profile types.ProfileName, data types.ProposalData) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.proposals[jobURL] = &storedProposal{profile: profile, data: data}
	if job := b.jobByURL(jobURL); job != nil && job.GenerationStatus != types.GenerationStatusApplied {
		job.GenerationStatus = types.GenerationStatusReady
	}
}

// Proposal returns the stored proposal of a job
func (b *Backend) Proposal(jobURL string) (types.ProposalData, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.proposals[jobURL]
	if !ok {
		return types.ProposalData{}, false
	}
	return p.data, true
}

// Job returns the stored job
func (b *Backend) Job(id uint) (types.Job, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	job := b.jobByID(id)
	if job == nil {
		return types.Job{}, false
	}
	return *job, true
}

// FailNext makes the next request to route answer with status
func (b *Backend) FailNext(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = append(b.failures[route], status)
}

// HoldNext blocks the next request to route until the returned function is called
func (b *Backend) HoldNext(route string) (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan struct{})
	b.holds[route] = append(b.holds[route], ch)
	var once sync.Once
	release = func() { once.Do(func() { close(ch) }) }
	b.releases = append(b.releases, release)
	return release
}

// releaseAll unblocks every held request
func (b *Backend) releaseAll() {
	b.mu.Lock()
	releases := b.releases
	b.releases = nil
	b.mu.Unlock()
	for _, release := range releases {
		release()
	}
}

// Requests returns the requests received for route
func (b *Backend) Requests(route string) []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Request
	for _, r := range b.requests {
		if r.Route == route {
			out = append(out, r)
		}
	}
	return out
}

// Register mounts the backend routes on app under APIPrefix
func (b *Backend) Register(app *fiber.App) {
	api := app.Group(APIPrefix)
	api.Get(routes.GetRoute(routes.HealthCheck), b.handle(routes.HealthCheck, b.health))
	api.Get(routes.GetRoute(routes.ListJobs), b.handle(routes.ListJobs, b.listJobs))
	api.Get(routes.GetRoute(routes.GetJob), b.handle(routes.GetJob, b.getJob))
	api.Post(routes.GetRoute(routes.GenerateProposal), b.handle(routes.GenerateProposal, b.generateProposal))
	api.Get(routes.GetRoute(routes.GetProposal), b.handle(routes.GetProposal, b.getProposal))
	api.Post(routes.GetRoute(routes.SaveProposal), b.handle(routes.SaveProposal, b.saveProposal))
	api.Get(routes.GetRoute(routes.EnqueueTask), b.handle(routes.EnqueueTask, b.enqueueTask))
	api.Get(routes.GetRoute(routes.ListPromptVersions), b.handle(routes.ListPromptVersions, b.listPromptVersions))
	api.Get(routes.GetRoute(routes.GetPrompt), b.handle(routes.GetPrompt, b.getPrompt))
	api.Get(routes.GetRoute(routes.GetActivePrompt), b.handle(routes.GetActivePrompt, b.getActivePrompt))
	api.Post(routes.GetRoute(routes.UpdatePrompt), b.handle(routes.UpdatePrompt, b.updatePrompt))
	api.Post(routes.GetRoute(routes.RollbackPrompt), b.handle(routes.RollbackPrompt, b.rollbackPrompt))
}

// handle records the request, then applies holds and injected failures
func (b *Backend) handle(route string, fn fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query, _ := url.ParseQuery(string(c.Request().URI().QueryString()))

		b.mu.Lock()
		b.requests = append(b.requests, Request{Route: route, Query: query})
		var hold chan struct{}
		if holds := b.holds[route]; len(holds) > 0 {
			hold, b.holds[route] = holds[0], holds[1:]
		}
		status := 0
		if failures := b.failures[route]; len(failures) > 0 {
			status, b.failures[route] = failures[0], failures[1:]
		}
		b.mu.Unlock()

		if hold != nil {
			<-hold
		}
		if status != 0 {
			return c.Status(status).JSON(fiber.Map{"detail": fmt.Sprintf("injected %d", status)})
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		return fn(c)
	}
}

func (b *Backend) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}

func (b *Backend) listJobs(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	status := c.Query("status")
	search := strings.ToLower(c.Query("search"))
	if page < 1 || limit < 1 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": "invalid paging"})
	}

	var matched []types.JobListItem
	for _, job := range b.jobs {
		if search != "" && !strings.Contains(strings.ToLower(job.JobTitle), search) {
			continue
		}
		if !b.matchesStatus(job, status) {
			continue
		}
		matched = append(matched, job.JobListItem)
	}

	start := (page - 1) * limit
	end := start + limit
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}
	jobs := matched[start:end]
	if jobs == nil {
		jobs = []types.JobListItem{}
	}

	return c.JSON(types.ListJobsResponse{
		Page:    page,
		Limit:   limit,
		Total:   len(matched),
		HasNext: end < len(matched),
		Jobs:    jobs,
	})
}

// matchesStatus maps list filters onto stored job state
func (b *Backend) matchesStatus(job *types.Job, status string) bool {
	switch status {
	case "", "all":
		return true
	case "pending":
		return job.GenerationStatus == types.GenerationStatusPending
	case "generated":
		return job.GenerationStatus == types.GenerationStatusReady
	case "draft":
		p, ok := b.proposals[job.JobURL]
		return ok && p.edited && !b.applied[job.JobURL]
	case "applied":
		return job.GenerationStatus == types.GenerationStatusApplied
	}
	return false
}

func (b *Backend) getJob(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": "invalid job id"})
	}
	job := b.jobByID(uint(id))
	if job == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "Job not found"})
	}
	return c.JSON(job)
}

func (b *Backend) generateProposal(c *fiber.Ctx) error {
	jobURL := c.Query("job_url")
	job := b.jobByURL(jobURL)
	if job == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "Job not found"})
	}
	job.GenerationStatus = types.GenerationStatusProcessing
	return c.JSON(types.GenerateProposalResponse{
		Status:  "Processing",
		JobURL:  jobURL,
		JobType: job.Description.JobType,
		Message: "Proposal generation started",
	})
}

func (b *Backend) getProposal(c *fiber.Ctx) error {
	jobURL := c.Query("job_url")
	p, ok := b.proposals[jobURL]
	if !ok {
		return c.JSON(fiber.Map{"status": "Not Found", "job_url": jobURL})
	}
	return c.JSON(types.GetProposalResponse{
		Status:   types.StatusDone,
		JobURL:   jobURL,
		Profile:  p.profile,
		Proposal: p.data,
		Applied:  b.applied[jobURL],
	})
}

func (b *Backend) saveProposal(c *fiber.Ctx) error {
	var req types.SaveProposalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": err.Error()})
	}
	p, ok := b.proposals[req.JobURL]
	if !ok {
		return c.JSON(fiber.Map{"status": "Not Found", "job_url": req.JobURL})
	}
	p.data = req.Proposal
	p.edited = true
	if req.Profile != "" {
		p.profile = req.Profile
	}
	return c.JSON(types.SaveProposalResponse{
		Status:   types.StatusDone,
		JobURL:   req.JobURL,
		Proposal: p.data,
	})
}

func (b *Backend) enqueueTask(c *fiber.Ctx) error {
	if c.Query("task_type") != types.TaskTypeApplyForJob {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": "unknown task type"})
	}
	var payload types.ApplyForJobPayload
	if err := json.Unmarshal([]byte(c.Query("payload")), &payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": "invalid payload"})
	}
	job := b.jobByURL(payload.JobURL)
	if job == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "Job not found"})
	}
	b.applied[payload.JobURL] = true
	job.GenerationStatus = types.GenerationStatusApplied
	return c.JSON(types.ApplyForJobResponse{Status: "queued", Message: "Task enqueued"})
}

func (b *Backend) listPromptVersions(c *fiber.Ctx) error {
	versions := make([]types.PromptVersion, len(b.prompts))
	for i, p := range b.prompts {
		versions[i] = p.PromptVersion
	}
	return promptValue(c, versions)
}

func (b *Backend) getPrompt(c *fiber.Ctx) error {
	version := c.QueryInt("version")
	for _, p := range b.prompts {
		if p.Version == version {
			return promptValue(c, p)
		}
	}
	return promptValue(c, nil)
}

func (b *Backend) getActivePrompt(c *fiber.Ctx) error {
	for _, p := range b.prompts {
		if p.IsActive {
			return promptValue(c, p)
		}
	}
	return promptValue(c, nil)
}

func (b *Backend) updatePrompt(c *fiber.Ctx) error {
	text := c.Query("prompt_text")
	if strings.TrimSpace(text) == "" {
		return c.JSON(fiber.Map{"status": "Error", "message": "prompt_text is required"})
	}
	for i := range b.prompts {
		b.prompts[i].IsActive = false
	}
	version := len(b.prompts) + 1
	b.prompts = append(b.prompts, types.PromptDetail{
		PromptVersion: types.PromptVersion{ID: uint(version), PromptName: "proposal", Version: version, IsActive: true},
		PromptText:    text,
	})
	return promptValue(c, fmt.Sprintf("Prompt updated to version %d", version))
}

func (b *Backend) rollbackPrompt(c *fiber.Ctx) error {
	version := c.QueryInt("version")
	found := false
	for i := range b.prompts {
		if b.prompts[i].Version == version {
			found = true
		}
	}
	if !found {
		return c.JSON(fiber.Map{"status": "Error", "message": fmt.Sprintf("Version %d not found", version)})
	}
	for i := range b.prompts {
		b.prompts[i].IsActive = b.prompts[i].Version == version
	}
	return promptValue(c, fmt.Sprintf("Rolled back to version %d", version))
}

func promptValue(c *fiber.Ctx, value interface{}) error {
	return c.JSON(fiber.Map{"status": types.StatusDone, "value": value})
}

func (b *Backend) jobByID(id uint) *types.Job {
	for _, job := range b.jobs {
		if job.ID == id {
			return job
		}
	}
	return nil
}

func (b *Backend) jobByURL(jobURL string) *types.Job {
	for _, job := range b.jobs {
		if job.JobURL == jobURL {
			return job
		}
	}
	return nil
}
