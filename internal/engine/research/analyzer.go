package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
)

const (
	// MaxTranscriptRunes is the transcript prefix sent to the model.
	MaxTranscriptRunes = 8000
	// MinConfidence is the lowest confidence an analyzer item may carry.
	MinConfidence = 6

	analyzeMaxTokens   = 2048
	analyzeTemperature = 0.3
)

// AnalysisResult is the filtered structured output for one video.
type AnalysisResult struct {
	Insights       []engine.InsightItem `json:"insights"`
	Strategies     []engine.InsightItem `json:"strategies"`
	PainPoints     []engine.InsightItem `json:"painPoints"`
	Approaches     []engine.InsightItem `json:"approaches"`
	RelevanceScore int                  `json:"relevanceScore"`
}

// Count returns the number of items across every category.
func (r AnalysisResult) Count() int {
	return len(r.Insights) + len(r.Strategies) + len(r.PainPoints) + len(r.Approaches)
}

// Analyzer extracts marketing insights from transcripts with a language model.
type Analyzer struct {
	llm     engine.Completer
	timeout time.Duration
}

// NewAnalyzer builds an analyzer. timeout <= 0 means no per-call deadline.
func NewAnalyzer(llm engine.Completer, timeout time.Duration) *Analyzer {
	return &Analyzer{llm: llm, timeout: timeout}
}

// Analyze sends the transcript prefix with video and industry context to the
// model and returns items with confidence >= MinConfidence.
func (a *Analyzer) Analyze(ctx context.Context, transcript, industry string, video engine.VideoCandidate) (AnalysisResult, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(analyzePrompt, industry, video.Title, video.ChannelTitle,
		engine.RunePrefix(transcript, MaxTranscriptRunes))

	raw, err := a.llm.Complete(ctx, prompt, analyzeMaxTokens, analyzeTemperature)
	if err != nil {
		return AnalysisResult{}, &TransientExternalError{Op: "analyze " + video.ID, Err: err}
	}

	res, err := ParseAnalysis(raw)
	if err != nil {
		return AnalysisResult{}, err
	}
	return filterByConfidence(res, MinConfidence), nil
}

// confidence accepts an integer, a float (rounded) or a numeric string.
type confidence struct {
	value int
	set   bool
}

func (c *confidence) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var f float64
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("confidence %q: %w", s, err)
		}
		f = v
	} else if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return errors.New("confidence not finite")
	}
	c.value = int(math.Round(f))
	c.set = true
	return nil
}

type rawItem struct {
	Text        string     `json:"text"`
	Relevance   string     `json:"relevance"`
	Application string     `json:"application"`
	Confidence  confidence `json:"confidence"`
}

var analysisKeys = map[string]bool{
	"insights": true, "strategies": true, "painPoints": true, "pain_points": true,
	"approaches": true, "relevanceScore": true, "relevance_score": true,
}

// ParseAnalysis decodes model output into typed items. Items without text,
// without a confidence, or with confidence outside 0..10 are dropped.
// Output that is not an object carrying any known key is a
// MalformedResponseError.
func ParseAnalysis(raw string) (AnalysisResult, error) {
	body := engine.ExtractJSONObject(raw)
	if body == "" {
		return AnalysisResult{}, &MalformedResponseError{Reason: "no JSON object", Raw: engine.TruncateRunes(raw, 200, "...")}
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &top); err != nil {
		return AnalysisResult{}, &MalformedResponseError{Reason: "decode object", Raw: engine.TruncateRunes(raw, 200, "..."), Err: err}
	}

	known := false
	for k := range top {
		if analysisKeys[k] {
			known = true
			break
		}
	}
	if !known {
		return AnalysisResult{}, &MalformedResponseError{Reason: "no known keys", Raw: engine.TruncateRunes(raw, 200, "...")}
	}

	var res AnalysisResult
	var err error
	if res.Insights, err = decodeItems(top, "insights"); err != nil {
		return AnalysisResult{}, err
	}
	if res.Strategies, err = decodeItems(top, "strategies"); err != nil {
		return AnalysisResult{}, err
	}
	if res.PainPoints, err = decodeItems(top, "painPoints", "pain_points"); err != nil {
		return AnalysisResult{}, err
	}
	if res.Approaches, err = decodeItems(top, "approaches"); err != nil {
		return AnalysisResult{}, err
	}

	for _, k := range []string{"relevanceScore", "relevance_score"} {
		if v, ok := top[k]; ok {
			var c confidence
			if json.Unmarshal(v, &c) == nil && c.set {
				res.RelevanceScore = min(max(c.value, 0), 10)
			}
			break
		}
	}
	return res, nil
}

func decodeItems(top map[string]json.RawMessage, keys ...string) ([]engine.InsightItem, error) {
	var raw json.RawMessage
	for _, k := range keys {
		if v, ok := top[k]; ok {
			raw = v
			break
		}
	}
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, &MalformedResponseError{Reason: keys[0] + " is not an array", Err: err}
	}

	items := make([]engine.InsightItem, 0, len(elems))
	for _, e := range elems {
		var ri rawItem
		if err := json.Unmarshal(e, &ri); err != nil {
			continue
		}
		text := strings.TrimSpace(ri.Text)
		if text == "" || !ri.Confidence.set || ri.Confidence.value < 0 || ri.Confidence.value > 10 {
			continue
		}
		items = append(items, engine.InsightItem{
			Text:        text,
			Relevance:   strings.TrimSpace(ri.Relevance),
			Application: strings.TrimSpace(ri.Application),
			Confidence:  ri.Confidence.value,
		})
	}
	return items, nil
}

func filterByConfidence(res AnalysisResult, threshold int) AnalysisResult {
	keep := func(items []engine.InsightItem) []engine.InsightItem {
		out := make([]engine.InsightItem, 0, len(items))
		for _, it := range items {
			if it.Confidence >= threshold {
				out = append(out, it)
			}
		}
		return out
	}
	res.Insights = keep(res.Insights)
	res.Strategies = keep(res.Strategies)
	res.PainPoints = keep(res.PainPoints)
	res.Approaches = keep(res.Approaches)
	return res
}
