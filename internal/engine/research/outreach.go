package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/msaym22/final-lead-gen-sub001/internal/store"
)

// Outreach channels.
const (
	ChannelEmail    = "email"
	ChannelLinkedIn = "linkedin"
)

// ErrBelowTier is returned for leads whose opportunity score is under the
// messaging threshold.
var ErrBelowTier = errors.New("lead below outreach tier")

// Lead is the prospect an outreach message is written for.
type Lead struct {
	Name             string `json:"name"`
	Company          string `json:"company"`
	Role             string `json:"role,omitempty"`
	Industry         string `json:"industry"`
	Channel          string `json:"channel,omitempty"`
	Tone             string `json:"tone,omitempty"`
	Notes            string `json:"notes,omitempty"`
	OpportunityScore int    `json:"opportunity_score,omitempty"`
}

// OutreachDraft is a generated first-touch message.
type OutreachDraft struct {
	Subject              string   `json:"subject"`
	Message              string   `json:"message"`
	FollowUp             string   `json:"follow_up"`
	PersonalizationNotes []string `json:"personalization_notes"`
	UsedResearch         bool     `json:"used_research"`
}

// KnowledgeReader loads the rolling industry summary.
type KnowledgeReader interface {
	GetKnowledge(ctx context.Context, industryKey string) (engine.IndustryKnowledge, error)
}

// Outreach drafts messages grounded in stored industry knowledge.
type Outreach struct {
	llm       engine.Completer
	knowledge KnowledgeReader
	minScore  int
}

// NewOutreach builds a drafter. Leads scoring below minScore are rejected.
func NewOutreach(llm engine.Completer, knowledge KnowledgeReader, minScore int) *Outreach {
	return &Outreach{llm: llm, knowledge: knowledge, minScore: minScore}
}

// Draft writes an outreach message for lead.
func (o *Outreach) Draft(ctx context.Context, lead Lead) (*OutreachDraft, error) {
	if o.llm == nil {
		return nil, &ConfigError{Component: "outreach", Msg: "LLM not configured"}
	}
	if strings.TrimSpace(lead.Company) == "" || strings.TrimSpace(lead.Industry) == "" {
		return nil, errors.New("outreach: company and industry are required")
	}
	if lead.OpportunityScore < o.minScore {
		return nil, fmt.Errorf("outreach %s: score %d < %d: %w", lead.Company, lead.OpportunityScore, o.minScore, ErrBelowTier)
	}

	channel := strings.ToLower(lead.Channel)
	if channel != ChannelLinkedIn {
		channel = ChannelEmail
	}
	tone := lead.Tone
	if tone == "" {
		tone = "friendly, direct, no hype"
	}

	researchText, used := o.researchContext(ctx, lead.Industry)

	notes := ""
	if lead.Notes != "" {
		notes = "Notes: " + engine.TruncateRunes(lead.Notes, 500, "...") + "\n"
	}
	lengthRule := "Keep the message under 150 words."
	if channel == ChannelLinkedIn {
		lengthRule = "Keep the message under 300 characters; LinkedIn connection notes are short."
	}

	prompt := fmt.Sprintf(outreachPrompt, channel, lead.Name, lead.Company, lead.Role, lead.Industry,
		notes, tone, researchText, lengthRule)

	raw, err := o.llm.Complete(ctx, prompt, 1024, 0.7)
	if err != nil {
		return nil, &TransientExternalError{Op: "outreach", Err: err}
	}

	body := engine.ExtractJSONObject(raw)
	if body == "" {
		return nil, &MalformedResponseError{Reason: "no JSON object", Raw: engine.TruncateRunes(raw, 200, "...")}
	}
	var draft OutreachDraft
	if err := json.Unmarshal([]byte(body), &draft); err != nil {
		return nil, &MalformedResponseError{Reason: "decode draft", Raw: engine.TruncateRunes(raw, 200, "..."), Err: err}
	}
	if strings.TrimSpace(draft.Message) == "" {
		return nil, &MalformedResponseError{Reason: "empty message", Raw: engine.TruncateRunes(raw, 200, "...")}
	}
	if channel == ChannelLinkedIn {
		draft.Subject = ""
	}
	draft.UsedResearch = used
	return &draft, nil
}

// researchContext renders stored knowledge for the prompt. Missing
// knowledge is not an error.
func (o *Outreach) researchContext(ctx context.Context, industry string) (string, bool) {
	if o.knowledge == nil {
		return "(no research available)", false
	}
	k, err := o.knowledge.GetKnowledge(ctx, engine.IndustryKey(industry))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("outreach: knowledge lookup failed", slog.String("industry", industry), slog.Any("error", err))
		}
		return "(no research available)", false
	}

	var sb strings.Builder
	if k.ResearchSummary != "" {
		sb.WriteString("Summary: ")
		sb.WriteString(engine.TruncateRunes(k.ResearchSummary, 800, "..."))
		sb.WriteString("\n")
	}
	sb.WriteString("Pain points:\n")
	sb.WriteString(bulletList(top(k.TopPainPoints, 5)))
	sb.WriteString("\nStrategies:\n")
	sb.WriteString(bulletList(top(k.TopStrategies, 5)))
	return sb.String(), true
}
