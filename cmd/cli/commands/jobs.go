package commands

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/celestiaorg/jobdesk/internal/events"
	"github.com/celestiaorg/jobdesk/internal/jobquery"
	"github.com/celestiaorg/jobdesk/internal/logger"
	"github.com/celestiaorg/jobdesk/internal/types"
)

// Job flag names
const (
	flagJobID    = "id"
	flagSearch   = "search"
	flagStatus   = "status"
	flagPage     = "page"
	flagLimit    = "limit"
	flagDebounce = "debounce"
)

// jobOutput represents the filtered output for a job list entry
type jobOutput struct {
	ID     uint   `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	URL    string `json:"url" yaml:"url"`
	Status string `json:"proposal_status" yaml:"proposal_status"`
}

// jobListOutput represents one published job list result
type jobListOutput struct {
	State     string      `json:"state" yaml:"state"`
	Search    string      `json:"search,omitempty" yaml:"search,omitempty"`
	Status    string      `json:"status" yaml:"status"`
	Page      int         `json:"page" yaml:"page"`
	PageCount int         `json:"page_count" yaml:"page_count"`
	Total     int         `json:"total" yaml:"total"`
	HasNext   bool        `json:"has_next" yaml:"has_next"`
	Error     string      `json:"error,omitempty" yaml:"error,omitempty"`
	Jobs      []jobOutput `json:"jobs" yaml:"jobs"`
}

// jobDetailOutput represents the filtered output for a single job
type jobDetailOutput struct {
	jobOutput       `yaml:",inline"`
	ClientLocation  string   `json:"client_location,omitempty" yaml:"client_location,omitempty"`
	HireRate        string   `json:"hire_rate,omitempty" yaml:"hire_rate,omitempty"`
	TotalSpent      string   `json:"total_spent,omitempty" yaml:"total_spent,omitempty"`
	MemberSince     string   `json:"member_since,omitempty" yaml:"member_since,omitempty"`
	PaymentVerified bool     `json:"payment_verified" yaml:"payment_verified"`
	JobType         string   `json:"job_type,omitempty" yaml:"job_type,omitempty"`
	Rate            string   `json:"rate,omitempty" yaml:"rate,omitempty"`
	Duration        string   `json:"duration,omitempty" yaml:"duration,omitempty"`
	Skills          []string `json:"skills,omitempty" yaml:"skills,omitempty"`
	Qualified       bool     `json:"qualified" yaml:"qualified"`
	Questions       string   `json:"questions,omitempty" yaml:"questions,omitempty"`
	Summary         string   `json:"summary,omitempty" yaml:"summary,omitempty"`
}

func newJobOutput(item types.JobListItem) jobOutput {
	return jobOutput{
		ID:     item.ID,
		Title:  item.JobTitle,
		URL:    item.JobURL,
		Status: string(item.GenerationStatus),
	}
}

func newJobListOutput(r jobquery.Result) jobListOutput {
	out := jobListOutput{
		State:     string(r.State),
		Search:    r.Query.SearchText,
		Status:    string(r.Query.Status),
		Page:      r.Query.Page,
		PageCount: r.PageCount(),
		Jobs:      []jobOutput{},
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	if r.Page != nil {
		out.Total = r.Page.Total
		out.HasNext = r.Page.HasNext
		for _, item := range r.Page.Items {
			out.Jobs = append(out.Jobs, newJobOutput(item))
		}
	}
	return out
}

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Browse scraped jobs",
	}
	cmd.AddCommand(newListJobsCmd())
	cmd.AddCommand(newBrowseJobsCmd())
	cmd.AddCommand(newGetJobCmd())
	return cmd
}

func newListJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			search, _ := cmd.Flags().GetString(flagSearch)
			page, _ := cmd.Flags().GetInt(flagPage)
			status, err := statusFlag(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			bus := newTraceBus(ctx)

			watcher := newResultWatcher(nil)
			ctrl := jobquery.NewController(apiClient,
				jobquery.WithPageSize(limitFlag(cmd)),
				jobquery.WithDebounce(0),
				jobquery.WithEvents(bus),
				jobquery.WithMetrics(collector),
				jobquery.WithOnResult(watcher.settled),
			)
			defer ctrl.Close()
			watcher.ctrl = ctrl

			ctrl.SetSearchText(search)
			ctrl.SetStatusFilter(status)
			ctrl.SetPage(page)
			ctrl.Start(ctx)

			result, err := watcher.wait(ctx)
			if err != nil {
				return err
			}
			if result.State == jobquery.StateFailed {
				return fmt.Errorf("error fetching jobs: %w", result.Err)
			}
			return printOutput(cmd, newJobListOutput(result))
		},
	}
	cmd.Flags().String(flagSearch, "", "Free text search")
	cmd.Flags().String(flagStatus, string(jobquery.StatusAll), "Status filter: all, pending, generated, draft or applied")
	cmd.Flags().IntP(flagPage, "p", 1, "Page number")
	cmd.Flags().IntP(flagLimit, "l", 0, "Page size (default from config)")
	return cmd
}

func newBrowseJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse jobs interactively",
		Long: `Reads stdin line by line. A plain line replaces the search text and is
committed after the debounce interval. Commands:
  :status <filter>  change the status filter
  :page <n>         go to page n
  :next, :prev      move one page
  :clear            clear the search text and status filter
  :refresh          re-issue the current query
  :quit             exit
Every published result is printed.`,
		RunE: runBrowse,
	}
	cmd.Flags().String(flagStatus, string(jobquery.StatusAll), "Initial status filter")
	cmd.Flags().IntP(flagLimit, "l", 0, "Page size (default from config)")
	cmd.Flags().Duration(flagDebounce, -1, "Search debounce interval (default from config)")
	return cmd
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	status, err := statusFlag(cmd)
	if err != nil {
		return err
	}
	debounce, _ := cmd.Flags().GetDuration(flagDebounce)
	if debounce < 0 {
		debounce = appConfig.Query.Debounce
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	bus := newTraceBus(ctx)

	var outMu sync.Mutex
	watcher := newResultWatcher(func(r jobquery.Result) {
		outMu.Lock()
		defer outMu.Unlock()
		if err := printOutput(cmd, newJobListOutput(r)); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		}
	})
	ctrl := jobquery.NewController(apiClient,
		jobquery.WithPageSize(limitFlag(cmd)),
		jobquery.WithDebounce(debounce),
		jobquery.WithEvents(bus),
		jobquery.WithMetrics(collector),
		jobquery.WithOnResult(watcher.settled),
	)
	defer ctrl.Close()
	watcher.ctrl = ctrl

	ctrl.SetStatusFilter(status)
	ctrl.Start(ctx)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		quit, err := browseLine(ctrl, scanner.Text())
		if err != nil {
			outMu.Lock()
			fmt.Fprintln(cmd.ErrOrStderr(), err)
			outMu.Unlock()
		}
		if quit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	ctrl.Flush()
	_, err = watcher.wait(ctx)
	return err
}

// browseLine applies one input line and reports whether browsing should stop
func browseLine(ctrl *jobquery.Controller, line string) (bool, error) {
	if !strings.HasPrefix(line, ":") {
		ctrl.SetSearchText(line)
		return false, nil
	}

	fields := strings.Fields(line)
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch fields[0] {
	case ":quit", ":q":
		return true, nil
	case ":status":
		f, err := jobquery.ParseStatusFilter(arg)
		if err != nil {
			return false, err
		}
		ctrl.SetStatusFilter(f)
	case ":page":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return false, fmt.Errorf("%w: invalid page %q", types.ErrValidation, arg)
		}
		ctrl.SetPage(n)
	case ":next":
		ctrl.NextPage()
	case ":prev":
		ctrl.PrevPage()
	case ":clear":
		ctrl.ClearFilters()
	case ":refresh":
		ctrl.Refresh()
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
	return false, nil
}

func newGetJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a specific job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := cmd.Flags().GetUint(flagJobID)
			if err != nil {
				return fmt.Errorf("error getting job ID flag: %w", err)
			}
			if id == 0 {
				return fmt.Errorf("job ID must be greater than zero")
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			job, err := apiClient.GetJob(ctx, id)
			if err != nil {
				return fmt.Errorf("error fetching job: %w", err)
			}

			d := job.Description
			return printOutput(cmd, jobDetailOutput{
				jobOutput:       newJobOutput(job.JobListItem),
				ClientLocation:  d.ClientLocation,
				HireRate:        d.HireRate,
				TotalSpent:      d.TotalSpent,
				MemberSince:     d.MemberSince,
				PaymentVerified: d.PaymentVerified,
				JobType:         d.JobType,
				Rate:            d.HourlyRate,
				Duration:        d.Duration,
				Skills:          d.SkillList(),
				Qualified:       d.Qualified,
				Questions:       d.Questions,
				Summary:         d.Summary,
			})
		},
	}
	cmd.Flags().UintP(flagJobID, "i", 0, "Job ID to fetch")
	_ = cmd.MarkFlagRequired(flagJobID)
	return cmd
}

func statusFlag(cmd *cobra.Command) (jobquery.StatusFilter, error) {
	status, _ := cmd.Flags().GetString(flagStatus)
	return jobquery.ParseStatusFilter(status)
}

func limitFlag(cmd *cobra.Command) int {
	limit, _ := cmd.Flags().GetInt(flagLimit)
	if limit < 1 {
		return appConfig.Query.PageSize
	}
	return limit
}

// newTraceBus starts a bus that logs job query events at debug. Delivery is
// best effort; results reach the command through resultWatcher.
func newTraceBus(ctx context.Context) *events.Bus {
	bus := events.NewBus()
	trace := func(_ context.Context, ev events.Event) error {
		fields := map[string]interface{}{"event": ev.Type, "seq": ev.Seq}
		if ev.Err != nil {
			fields["error"] = ev.Err.Error()
		}
		logger.DebugWithFields("Job query event", fields)
		return nil
	}
	bus.Subscribe(events.EventQueryCommitted, trace)
	bus.Subscribe(events.EventPageLoaded, trace)
	bus.Subscribe(events.EventFetchFailed, trace)
	bus.Start(ctx)
	return bus
}

// resultWatcher follows the results a controller settles. ctrl must be set
// before the controller starts.
type resultWatcher struct {
	ctrl     *jobquery.Controller
	onResult func(jobquery.Result)

	mu      sync.Mutex
	handled uint64
	notify  chan struct{}
}

// newResultWatcher returns a watcher whose settled method is installed with
// jobquery.WithOnResult. onResult, when set, is called for every settled
// result that is still current.
func newResultWatcher(onResult func(jobquery.Result)) *resultWatcher {
	return &resultWatcher{
		onResult: onResult,
		notify:   make(chan struct{}, 1),
	}
}

func (w *resultWatcher) settled(r jobquery.Result) {
	w.mu.Lock()
	if r.Seq > w.handled {
		if w.onResult != nil && w.ctrl.CurrentResult().Seq == r.Seq {
			w.onResult(r)
		}
		w.handled = r.Seq
	}
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// wait blocks until the latest fetch has settled and been handled
func (w *resultWatcher) wait(ctx context.Context) (jobquery.Result, error) {
	for {
		r := w.ctrl.CurrentResult()
		w.mu.Lock()
		done := r.State != jobquery.StateLoading && w.handled >= r.Seq
		w.mu.Unlock()
		if done {
			return r, nil
		}
		select {
		case <-w.notify:
		case <-ctx.Done():
			return jobquery.Result{}, ctx.Err()
		}
	}
}
