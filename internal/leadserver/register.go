// Package leadserver exposes the industry research pipeline as MCP tools.
package leadserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/msaym22/final-lead-gen-sub001/internal/bootstrap"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine/research"
	"github.com/msaym22/final-lead-gen-sub001/internal/store"
)

// Researcher runs one industry research pass.
type Researcher interface {
	Research(ctx context.Context, opts research.ResearchOptions) (*engine.ResearchResult, error)
}

// Deps are the services the tools call into.
type Deps struct {
	Research    Researcher
	Search      research.VideoSearcher
	Transcripts research.TranscriptFetcher
	Cache       *research.TranscriptCache
	Store       store.Store
	Outreach    *research.Outreach
	Pages       research.PageFetcher
	Web         research.WebSearcher
}

// DepsFrom adapts bootstrap services.
func DepsFrom(s *bootstrap.Services) Deps {
	return Deps{
		Research:    s.Aggregator,
		Search:      s.YouTube,
		Transcripts: s.Fetcher,
		Cache:       s.Transcripts,
		Store:       s.Store,
		Outreach:    s.Outreach,
		Pages:       s.Pages,
		Web:         s.Web,
	}
}

// NewServer builds an MCP server with every tool registered.
func NewServer(name, version string, d Deps) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)
	RegisterTools(server, d)
	return server
}

// ToolCount is the number of tools RegisterTools adds.
const ToolCount = 11

// RegisterTools registers the research, transcript, cache and outreach tools.
func RegisterTools(server *mcp.Server, d Deps) {
	registerIndustryResearch(server, d)
	registerIndustryKnowledge(server, d)
	registerResearchHistory(server, d)
	registerResearchCacheDelete(server, d)

	registerYouTubeSearch(server, d)
	registerYouTubeTranscript(server, d)
	registerTranscriptCacheStats(server, d)
	registerTranscriptCacheDelete(server, d)

	registerOutreachDraft(server, d)
	registerLeadContacts(server, d)
	registerLeadWebsites(server, d)
}
