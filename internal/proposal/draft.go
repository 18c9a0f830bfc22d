package proposal

import (
	"strings"

	"github.com/celestiaorg/jobdesk/internal/types"
)

// Answer is a screening question with the editable answer text
type Answer struct {
	Question string `json:"question" yaml:"question"`
	Text     string `json:"answer" yaml:"answer"`
}

// Draft is the editable content of a proposal
type Draft struct {
	CoverLetter string            `json:"cover_letter" yaml:"cover_letter"`
	Answers     []Answer          `json:"answers" yaml:"answers"`
	Profile     types.ProfileName `json:"profile" yaml:"profile"`
}

// Clone returns a deep copy
func (d Draft) Clone() Draft {
	out := d
	if d.Answers != nil {
		out.Answers = make([]Answer, len(d.Answers))
		copy(out.Answers, d.Answers)
	}
	return out
}

// Equal reports whether both drafts carry the same content
func (d Draft) Equal(other Draft) bool {
	if d.CoverLetter != other.CoverLetter || d.Profile != other.Profile || len(d.Answers) != len(other.Answers) {
		return false
	}
	for i := range d.Answers {
		if d.Answers[i] != other.Answers[i] {
			return false
		}
	}
	return true
}

// WordCount counts whitespace delimited tokens of the cover letter
func (d Draft) WordCount() int {
	return len(strings.Fields(d.CoverLetter))
}

// Data converts the draft to the wire proposal body
func (d Draft) Data() types.ProposalData {
	qa := make([]types.QuestionAnswer, len(d.Answers))
	for i, a := range d.Answers {
		qa[i] = types.QuestionAnswer{Question: a.Question, Answer: a.Text}
	}
	return types.ProposalData{CoverLetter: d.CoverLetter, QuestionsAndAnswers: qa}
}

// draftFromResponse builds a draft from a fetched proposal. A missing
// profile falls back to the general one.
func draftFromResponse(resp *types.GetProposalResponse) Draft {
	d := Draft{
		CoverLetter: resp.Proposal.CoverLetter,
		Answers:     make([]Answer, len(resp.Proposal.QuestionsAndAnswers)),
		Profile:     resp.Profile,
	}
	for i, qa := range resp.Proposal.QuestionsAndAnswers {
		d.Answers[i] = Answer{Question: qa.Question, Text: qa.Answer}
	}
	if d.Profile == "" {
		d.Profile = types.ProfileGeneral
	}
	return d
}
