// Package toolutil provides helpers shared by the MCP tools and the CLI.
package toolutil

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// BoolOr returns *p, or def when p is nil.
func BoolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// ParseSince turns a history filter into an absolute time. Accepted forms:
// "" (no filter), a Go duration ("36h"), a day count ("7d"), a date
// ("2026-01-31") or an RFC 3339 timestamp.
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err == nil && n >= 0 {
			return now.AddDate(0, 0, -n), nil
		}
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return now.Add(-d), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid since %q (use 24h, 7d, 2006-01-02 or RFC 3339)", s)
}

// ParallelResult is one fan-out outcome, in input order.
type ParallelResult[T any] struct {
	Input string
	Value T
	Err   error
}

// Parallel runs fn for every input with at most limit goroutines and
// returns outcomes in input order. Empty inputs are skipped.
func Parallel[T any](ctx context.Context, inputs []string, limit int, fn func(context.Context, string) (T, error)) []ParallelResult[T] {
	if limit <= 0 {
		limit = 4
	}
	out := make([]ParallelResult[T], len(inputs))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, in := range inputs {
		out[i].Input = in
		if strings.TrimSpace(in) == "" {
			out[i].Err = fmt.Errorf("empty input")
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				out[i].Err = ctx.Err()
				return
			}
			defer func() { <-sem }()
			out[i].Value, out[i].Err = fn(ctx, in)
		}()
	}
	wg.Wait()
	return out
}
