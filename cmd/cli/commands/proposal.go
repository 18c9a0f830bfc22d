package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/celestiaorg/jobdesk/internal/config"
	"github.com/celestiaorg/jobdesk/internal/db"
	"github.com/celestiaorg/jobdesk/internal/db/models"
	"github.com/celestiaorg/jobdesk/internal/db/repos"
	"github.com/celestiaorg/jobdesk/internal/proposal"
	"github.com/celestiaorg/jobdesk/internal/types"
)

// Proposal flag names
const (
	flagJob             = "job"
	flagCoverLetter     = "cover-letter"
	flagCoverLetterFile = "cover-letter-file"
	flagAnswer          = "answer"
	flagProfile         = "profile"
	flagOffset          = "offset"
)

// proposalOutput represents the filtered output for a proposal session
type proposalOutput struct {
	JobID       uint              `json:"job_id" yaml:"job_id"`
	JobURL      string            `json:"job_url,omitempty" yaml:"job_url,omitempty"`
	Title       string            `json:"title,omitempty" yaml:"title,omitempty"`
	Phase       string            `json:"phase" yaml:"phase"`
	Applied     bool              `json:"applied" yaml:"applied"`
	Dirty       bool              `json:"dirty" yaml:"dirty"`
	Stashed     bool              `json:"stashed,omitempty" yaml:"stashed,omitempty"`
	Profile     string            `json:"profile,omitempty" yaml:"profile,omitempty"`
	WordCount   int               `json:"word_count" yaml:"word_count"`
	CoverLetter string            `json:"cover_letter,omitempty" yaml:"cover_letter,omitempty"`
	Answers     []proposal.Answer `json:"answers,omitempty" yaml:"answers,omitempty"`
	Message     string            `json:"message,omitempty" yaml:"message,omitempty"`
}

// draftOutput represents a stashed draft
type draftOutput struct {
	JobID     uint      `json:"job_id" yaml:"job_id"`
	JobURL    string    `json:"job_url" yaml:"job_url"`
	Profile   string    `json:"profile" yaml:"profile"`
	WordCount int       `json:"word_count" yaml:"word_count"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// openDraftStore opens the local draft stash; tests replace it
var openDraftStore = func(cfg config.DraftsConfig) (*repos.DraftRepository, func(), error) {
	conn, err := db.New(db.Options{Driver: cfg.Driver, DSN: cfg.DSN})
	if err != nil {
		return nil, nil, fmt.Errorf("error opening draft stash: %w", err)
	}
	return repos.NewDraftRepository(conn), func() { _ = db.Close(conn) }, nil
}

func newProposalOutput(snap proposal.Snapshot) proposalOutput {
	out := proposalOutput{
		JobID:       snap.JobID,
		Phase:       string(snap.Phase),
		Applied:     snap.Applied,
		Dirty:       snap.Dirty,
		WordCount:   snap.WordCount,
		CoverLetter: snap.Draft.CoverLetter,
		Answers:     snap.Draft.Answers,
		Profile:     string(snap.Draft.Profile),
	}
	if snap.Job != nil {
		out.JobURL = snap.Job.JobURL
		out.Title = snap.Job.JobTitle
	}
	return out
}

func newProposalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proposal",
		Short: "Generate, edit, save and apply job proposals",
	}
	cmd.PersistentFlags().UintP(flagJob, "j", 0, "Job ID")

	cmd.AddCommand(newShowProposalCmd())
	cmd.AddCommand(newGenerateProposalCmd())
	cmd.AddCommand(newEditProposalCmd())
	cmd.AddCommand(newSaveProposalCmd())
	cmd.AddCommand(newRevertProposalCmd())
	cmd.AddCommand(newApplyProposalCmd())
	cmd.AddCommand(newListDraftsCmd())
	return cmd
}

// loadSession opens a session for the --job flag and loads it
func loadSession(cmd *cobra.Command) (*proposal.Session, error) {
	jobID, err := cmd.Flags().GetUint(flagJob)
	if err != nil {
		return nil, fmt.Errorf("error getting job flag: %w", err)
	}
	if jobID == 0 {
		return nil, fmt.Errorf("required flag \"%s\" not set", flagJob)
	}

	session := proposal.NewSession(apiClient, jobID, proposal.WithMetrics(collector))
	if err := session.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return session, nil
}

func newShowProposalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the proposal of a job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := loadSession(cmd)
			if err != nil {
				return err
			}
			return printOutput(cmd, newProposalOutput(session.Snapshot()))
		},
	}
}

func newGenerateProposalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Start proposal generation for a job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := loadSession(cmd)
			if err != nil {
				return err
			}

			var message string
			switch session.Phase() {
			case proposal.PhaseUnavailable:
				message, err = session.TriggerGeneration(cmd.Context())
				if err != nil {
					return err
				}
			case proposal.PhaseProcessing:
				message = "Proposal generation already in progress"
			default:
				message = "Proposal already generated"
			}

			out := newProposalOutput(session.Snapshot())
			out.Message = message
			return printOutput(cmd, out)
		},
	}
}

func newEditProposalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit a proposal draft locally without saving it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := loadSession(cmd)
			if err != nil {
				return err
			}

			drafts, closeStore, err := openDraftStore(appConfig.Drafts)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := restoreStash(cmd, drafts, session); err != nil {
				return err
			}
			if err := applyEdits(cmd, session); err != nil {
				return err
			}

			snap := session.Snapshot()
			if err := drafts.Put(cmd.Context(), newDraftStash(snap)); err != nil {
				return fmt.Errorf("error stashing draft: %w", err)
			}

			out := newProposalOutput(snap)
			out.Stashed = true
			return printOutput(cmd, out)
		},
	}
	addEditFlags(cmd)
	return cmd
}

func newSaveProposalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the proposal draft, including stashed edits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := loadSession(cmd)
			if err != nil {
				return err
			}

			drafts, closeStore, err := openDraftStore(appConfig.Drafts)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := restoreStash(cmd, drafts, session); err != nil {
				return err
			}
			if err := applyEdits(cmd, session); err != nil {
				return err
			}
			if err := session.Save(cmd.Context()); err != nil {
				return err
			}
			if err := drafts.Delete(cmd.Context(), session.JobID()); err != nil {
				return fmt.Errorf("error removing stashed draft: %w", err)
			}

			out := newProposalOutput(session.Snapshot())
			out.Message = "Proposal saved"
			return printOutput(cmd, out)
		},
	}
	addEditFlags(cmd)
	return cmd
}

func newRevertProposalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revert",
		Short: "Discard local edits and reload the saved proposal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := loadSession(cmd)
			if err != nil {
				return err
			}
			if err := session.Revert(cmd.Context()); err != nil {
				return err
			}

			drafts, closeStore, err := openDraftStore(appConfig.Drafts)
			if err != nil {
				return err
			}
			defer closeStore()
			if err := drafts.Delete(cmd.Context(), session.JobID()); err != nil {
				return fmt.Errorf("error removing stashed draft: %w", err)
			}

			out := newProposalOutput(session.Snapshot())
			out.Message = "Proposal reverted"
			return printOutput(cmd, out)
		},
	}
}

func newApplyProposalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Apply to the job with its saved proposal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := loadSession(cmd)
			if err != nil {
				return err
			}
			message, err := session.Apply(cmd.Context())
			if err != nil {
				return err
			}

			out := newProposalOutput(session.Snapshot())
			out.Message = message
			return printOutput(cmd, out)
		},
	}
}

func newListDraftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "List locally stashed drafts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt(flagLimit)
			offset, _ := cmd.Flags().GetInt(flagOffset)

			drafts, closeStore, err := openDraftStore(appConfig.Drafts)
			if err != nil {
				return err
			}
			defer closeStore()

			stashed, err := drafts.List(cmd.Context(), &models.ListOptions{Limit: limit, Offset: offset})
			if err != nil {
				return fmt.Errorf("error listing drafts: %w", err)
			}

			out := make([]draftOutput, len(stashed))
			for i := range stashed {
				d := &stashed[i]
				out[i] = draftOutput{
					JobID:     d.JobID,
					JobURL:    d.JobURL,
					Profile:   string(d.Profile),
					WordCount: draftFromStash(d).WordCount(),
					UpdatedAt: d.UpdatedAt,
				}
			}
			return printOutput(cmd, out)
		},
	}
	cmd.Flags().IntP(flagLimit, "l", models.DefaultLimit, "Maximum number of drafts")
	cmd.Flags().Int(flagOffset, 0, "Number of drafts to skip")
	return cmd
}

func addEditFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagCoverLetter, "", "New cover letter text")
	cmd.Flags().String(flagCoverLetterFile, "", "Read the cover letter from a file")
	cmd.Flags().StringArray(flagAnswer, nil, "Answer as N=text, N is the 1-based question number (repeatable)")
	cmd.Flags().String(flagProfile, "", "Profile: general or specialized")
	cmd.MarkFlagsMutuallyExclusive(flagCoverLetter, flagCoverLetterFile)
}

// applyEdits runs the edit flags through the session's edit operations
func applyEdits(cmd *cobra.Command, session *proposal.Session) error {
	flags := cmd.Flags()

	if flags.Changed(flagCoverLetter) {
		text, _ := flags.GetString(flagCoverLetter)
		if err := session.SetCoverLetter(text); err != nil {
			return err
		}
	}
	if flags.Changed(flagCoverLetterFile) {
		path, _ := flags.GetString(flagCoverLetterFile)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("error reading cover letter: %w", err)
		}
		if err := session.SetCoverLetter(strings.TrimRight(string(data), "\r\n")); err != nil {
			return err
		}
	}

	answers, _ := flags.GetStringArray(flagAnswer)
	for _, a := range answers {
		n, text, err := parseAnswer(a)
		if err != nil {
			return err
		}
		if err := session.SetAnswer(n-1, text); err != nil {
			return err
		}
	}

	if flags.Changed(flagProfile) {
		profile, _ := flags.GetString(flagProfile)
		if err := session.SetProfile(types.ProfileName(profile)); err != nil {
			return err
		}
	}
	return nil
}

// parseAnswer splits an N=text answer flag
func parseAnswer(s string) (int, string, error) {
	num, text, ok := strings.Cut(s, "=")
	if !ok {
		return 0, "", fmt.Errorf("%w: answer %q must look like N=text", types.ErrValidation, s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || n < 1 {
		return 0, "", fmt.Errorf("%w: invalid question number %q", types.ErrValidation, num)
	}
	return n, text, nil
}

// restoreStash replays the stashed draft of the session's job, if any
func restoreStash(cmd *cobra.Command, drafts *repos.DraftRepository, session *proposal.Session) error {
	stash, err := drafts.Get(cmd.Context(), session.JobID())
	if errors.Is(err, types.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error reading stashed draft: %w", err)
	}
	return session.Restore(draftFromStash(stash))
}

func newDraftStash(snap proposal.Snapshot) *models.DraftStash {
	stash := &models.DraftStash{
		JobID:       snap.JobID,
		CoverLetter: snap.Draft.CoverLetter,
		Answers:     snap.Draft.Data().QuestionsAndAnswers,
		Profile:     snap.Draft.Profile,
	}
	if snap.Job != nil {
		stash.JobURL = snap.Job.JobURL
	}
	return stash
}

func draftFromStash(stash *models.DraftStash) proposal.Draft {
	d := proposal.Draft{
		CoverLetter: stash.CoverLetter,
		Answers:     make([]proposal.Answer, len(stash.Answers)),
		Profile:     stash.Profile,
	}
	for i, qa := range stash.Answers {
		d.Answers[i] = proposal.Answer{Question: qa.Question, Text: qa.Answer}
	}
	return d
}
