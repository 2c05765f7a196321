package research

import (
	"fmt"
	"os"
	"strings"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"gopkg.in/yaml.v3"
)

// Query intents.
const (
	IntentGeneralMarketing    = "general-marketing"
	IntentPaidAds             = "paid-ads"
	IntentEmailMarketing      = "email-marketing"
	IntentSalesPsychology     = "sales-psychology"
	IntentOutreachTechniques  = "outreach-techniques"
	IntentCustomerAcquisition = "customer-acquisition"
	IntentCompanySize         = "company-size"
	IntentChannel             = "channel"
)

// Company size buckets.
const (
	SizeSmall      = "small"
	SizeMid        = "mid"
	SizeEnterprise = "enterprise"
)

// QueryTemplate is a search phrase with an {industry} placeholder.
type QueryTemplate struct {
	Intent  string `yaml:"intent" json:"intent"`
	Pattern string `yaml:"pattern" json:"pattern"`
}

// Templates is the full query plan for a research run.
type Templates struct {
	Base        []QueryTemplate            `yaml:"base"`
	CompanySize map[string][]QueryTemplate `yaml:"company_size"`
	// Channels are YouTube channel IDs whose recent uploads seed every run.
	Channels []string `yaml:"channels"`
}

// DefaultTemplates returns the built-in query plan.
func DefaultTemplates() Templates {
	return Templates{
		Base: []QueryTemplate{
			{IntentGeneralMarketing, "{industry} marketing strategies"},
			{IntentPaidAds, "{industry} facebook google ads that convert"},
			{IntentEmailMarketing, "{industry} email marketing cold outreach"},
			{IntentSalesPsychology, "{industry} sales psychology persuasion"},
			{IntentOutreachTechniques, "how to get {industry} clients outreach"},
			{IntentCustomerAcquisition, "{industry} customer acquisition lead generation"},
		},
		CompanySize: map[string][]QueryTemplate{
			SizeSmall: {
				{IntentCompanySize, "{industry} small business marketing on a budget"},
				{IntentCompanySize, "{industry} startup growth hacking first customers"},
			},
			SizeMid: {
				{IntentCompanySize, "{industry} scaling marketing mid size company"},
			},
			SizeEnterprise: {
				{IntentCompanySize, "{industry} enterprise B2B sales account based marketing"},
			},
		},
	}
}

// LoadTemplates reads a YAML override file. Sections present in the file
// replace the matching defaults; absent sections keep them.
func LoadTemplates(path string) (Templates, error) {
	t := DefaultTemplates()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read templates %s: %w", path, err)
	}
	var override Templates
	if err := yaml.Unmarshal(data, &override); err != nil {
		return t, fmt.Errorf("parse templates %s: %w", path, err)
	}
	if len(override.Base) > 0 {
		t.Base = override.Base
	}
	for size, tpls := range override.CompanySize {
		t.CompanySize[NormalizeCompanySize(size)] = tpls
	}
	if len(override.Channels) > 0 {
		t.Channels = override.Channels
	}
	return t, nil
}

// NormalizeCompanySize maps free-form size labels onto a bucket.
// Unknown labels return "".
func NormalizeCompanySize(size string) string {
	switch strings.ToLower(strings.TrimSpace(size)) {
	case "small", "startup", "smb", "solo":
		return SizeSmall
	case "mid", "medium", "mid-size", "midsize", "mid-market":
		return SizeMid
	case "enterprise", "large":
		return SizeEnterprise
	}
	return ""
}

// BuildQueries expands the templates for an industry. Company-size
// templates are added only when a recognised size is given.
func (t Templates) BuildQueries(industry, companySize string) ([]engine.ResearchQuery, error) {
	industry = strings.TrimSpace(industry)
	if industry == "" {
		return nil, fmt.Errorf("build queries: empty industry")
	}

	var queries []engine.ResearchQuery
	add := func(tpl QueryTemplate) {
		term := strings.TrimSpace(strings.ReplaceAll(tpl.Pattern, "{industry}", industry))
		if term == "" {
			return
		}
		queries = append(queries, engine.ResearchQuery{Term: term, Source: engine.SourceYouTube, Intent: tpl.Intent})
	}

	for _, tpl := range t.Base {
		add(tpl)
	}
	if size := NormalizeCompanySize(companySize); size != "" {
		for _, tpl := range t.CompanySize[size] {
			add(tpl)
		}
	}
	for _, ch := range t.Channels {
		ch = strings.TrimSpace(ch)
		if ch == "" {
			continue
		}
		queries = append(queries, engine.ResearchQuery{Term: ch, Source: engine.SourceChannelFeed, Intent: IntentChannel})
	}

	if len(queries) == 0 {
		return nil, fmt.Errorf("build queries: no templates produced a query for %q", industry)
	}
	return queries, nil
}
