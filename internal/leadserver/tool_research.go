package leadserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine/research"
	"github.com/msaym22/final-lead-gen-sub001/internal/store"
	"github.com/msaym22/final-lead-gen-sub001/internal/toolutil"
)

func registerIndustryResearch(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "industry_research",
		Description: "Research marketing tactics for an industry from YouTube. Searches a fixed set of query templates, fetches transcripts (cached), extracts insights, strategies, pain points and outreach approaches with an LLM, and returns deduplicated items ranked by confidence plus a summary. Results younger than 24h are reused unless use_cache=false.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input IndustryResearchInput) (*mcp.CallToolResult, *ResearchOutput, error) {
		if strings.TrimSpace(input.Industry) == "" {
			return nil, nil, errors.New("industry is required")
		}
		opts := research.ResearchOptions{
			Industry:    input.Industry,
			Depth:       strings.ToLower(input.Depth),
			CompanySize: input.CompanySize,
			UseCache:    toolutil.BoolOr(input.UseCache, true),
		}
		var res *engine.ResearchResult
		err := engine.TrackOperation(ctx, "research:"+opts.Industry, func(ctx context.Context) error {
			var err error
			res, err = d.Research.Research(ctx, opts)
			return err
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, toResearchOutput(res), nil
	})
}

func registerIndustryKnowledge(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "industry_knowledge",
		Description: "Return the stored knowledge summary for an industry: top insights, strategies and pain points from the latest research run. Returns found=false when the industry has not been researched.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input IndustryInput) (*mcp.CallToolResult, *KnowledgeOutput, error) {
		if strings.TrimSpace(input.Industry) == "" {
			return nil, nil, errors.New("industry is required")
		}
		k, err := d.Store.GetKnowledge(ctx, engine.IndustryKey(input.Industry))
		if errors.Is(err, store.ErrNotFound) {
			return nil, &KnowledgeOutput{Found: false, Industry: input.Industry}, nil
		}
		if err != nil {
			return nil, nil, err
		}
		return nil, toKnowledgeOutput(k), nil
	})
}

func registerResearchHistory(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "research_history",
		Description: "List past research runs, newest first. Filter by industry and by age (since: 24h, 7d, a date or RFC 3339 timestamp).",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ResearchHistoryInput) (*mcp.CallToolResult, *ResearchHistoryOutput, error) {
		since, err := toolutil.ParseSince(input.Since, time.Now().UTC())
		if err != nil {
			return nil, nil, err
		}
		list, err := d.Store.ListResults(ctx, engine.ResultFilter{
			Industry: input.Industry,
			Since:    since,
			Limit:    input.Limit,
		})
		if err != nil {
			return nil, nil, err
		}
		out := &ResearchHistoryOutput{Results: make([]HistoryEntry, 0, len(list))}
		for _, r := range list {
			out.Results = append(out.Results, toHistoryEntry(r))
		}
		out.Total = len(out.Results)
		return nil, out, nil
	})
}

func registerResearchCacheDelete(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "research_cache_delete",
		Description: "Delete every stored research result and the knowledge summary for an industry so the next industry_research call runs fresh. Cached transcripts are kept.",
		Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(true)},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input IndustryInput) (*mcp.CallToolResult, *ResearchCacheDeleteOutput, error) {
		key := engine.IndustryKey(input.Industry)
		if key == "" {
			return nil, nil, errors.New("industry is required")
		}
		n, err := d.Store.DeleteIndustry(ctx, key)
		if err != nil {
			return nil, nil, fmt.Errorf("delete %s: %w", key, err)
		}
		return nil, &ResearchCacheDeleteOutput{Industry: key, DeletedResults: n}, nil
	})
}

func boolPtr(b bool) *bool { return &b }
