package leadserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine/research"
	"github.com/msaym22/final-lead-gen-sub001/internal/toolutil"
)

const maxContactURLs = 10

// LeadWebsitesInput is the input for lead_website_search.
type LeadWebsitesInput struct {
	Company      string `json:"company" jsonschema:"Company name"`
	Location     string `json:"location,omitempty" jsonschema:"City or region to disambiguate"`
	MaxResults   int    `json:"max_results,omitempty" jsonschema:"Max candidates (default 5)"`
	ScanContacts bool   `json:"scan_contacts,omitempty" jsonschema:"Also scan the best candidate for contact details"`
}

// LeadWebsitesOutput is the output for lead_website_search.
type LeadWebsitesOutput struct {
	Company    string                      `json:"company"`
	Candidates []research.WebsiteCandidate `json:"candidates"`
	Contacts   *research.Contacts          `json:"contacts,omitempty"`
	ScanError  string                      `json:"scan_error,omitempty"`
}

// OutreachDraftInput is the input for outreach_draft.
type OutreachDraftInput struct {
	Name             string `json:"name,omitempty" jsonschema:"Contact first name"`
	Company          string `json:"company" jsonschema:"Lead company name"`
	Role             string `json:"role,omitempty" jsonschema:"Contact role, e.g. Practice Manager"`
	Industry         string `json:"industry" jsonschema:"Lead industry; stored research for it grounds the message"`
	Channel          string `json:"channel,omitempty" jsonschema:"email (default) or linkedin"`
	Tone             string `json:"tone,omitempty" jsonschema:"Voice for the message, e.g. casual, formal"`
	Notes            string `json:"notes,omitempty" jsonschema:"Anything known about the lead"`
	OpportunityScore int    `json:"opportunity_score,omitempty" jsonschema:"Lead score 0-100; leads below the configured tier are rejected"`
}

func registerOutreachDraft(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "outreach_draft",
		Description: "Draft a first-touch email or LinkedIn message for a lead, grounded in the stored research for the lead's industry (run industry_research first for best results). Returns subject, message, follow-up and personalization notes.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input OutreachDraftInput) (*mcp.CallToolResult, *research.OutreachDraft, error) {
		if input.Company == "" || input.Industry == "" {
			return nil, nil, errors.New("company and industry are required")
		}
		draft, err := d.Outreach.Draft(ctx, research.Lead{
			Name:             input.Name,
			Company:          input.Company,
			Role:             input.Role,
			Industry:         input.Industry,
			Channel:          input.Channel,
			Tone:             input.Tone,
			Notes:            input.Notes,
			OpportunityScore: input.OpportunityScore,
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, draft, nil
	})
}

func registerLeadContacts(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "lead_contacts",
		Description: "Scan lead website pages (home, contact, about) for emails, phone numbers and social profiles. Pages are fetched in parallel; per-page failures are reported in errors.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input LeadContactsInput) (*mcp.CallToolResult, *LeadContactsOutput, error) {
		if len(input.URLs) == 0 {
			return nil, nil, errors.New("urls is required")
		}
		urls := input.URLs
		if len(urls) > maxContactURLs {
			urls = urls[:maxContactURLs]
		}

		results := toolutil.Parallel(ctx, urls, 4, func(ctx context.Context, u string) (*research.Contacts, error) {
			return research.ExtractContacts(ctx, d.Pages, u)
		})

		out := &LeadContactsOutput{Contacts: []*research.Contacts{}}
		for _, r := range results {
			if r.Err != nil {
				if out.Errors == nil {
					out.Errors = map[string]string{}
				}
				out.Errors[r.Input] = r.Err.Error()
				continue
			}
			out.Contacts = append(out.Contacts, r.Value)
		}
		return nil, out, nil
	})
}

func registerLeadWebsites(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "lead_website_search",
		Description: "Find a company's own website via DuckDuckGo and Startpage. Directory and social listings are dropped; candidates are ranked by how well the domain matches the company name. Optionally scans the top candidate for contact details.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input LeadWebsitesInput) (*mcp.CallToolResult, *LeadWebsitesOutput, error) {
		candidates, err := research.FindWebsites(ctx, d.Web, input.Company, input.Location, input.MaxResults)
		if err != nil {
			return nil, nil, err
		}
		out := &LeadWebsitesOutput{Company: input.Company, Candidates: candidates}
		if out.Candidates == nil {
			out.Candidates = []research.WebsiteCandidate{}
		}
		if input.ScanContacts && len(candidates) > 0 {
			c, err := research.ExtractContacts(ctx, d.Pages, candidates[0].URL)
			if err != nil {
				out.ScanError = err.Error()
			} else {
				out.Contacts = c
			}
		}
		return nil, out, nil
	})
}
