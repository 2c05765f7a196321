package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine/research"
)

var (
	resDepth   string
	resSize    string
	resNoCache bool
)

var researchCmd = &cobra.Command{
	Use:   "research <industry>",
	Short: "Research marketing tactics for an industry from YouTube",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		res, err := svc.Aggregator.Research(cmd.Context(), research.ResearchOptions{
			Industry:    args[0],
			Depth:       resDepth,
			CompanySize: resSize,
			UseCache:    !resNoCache,
		})
		if err != nil {
			return fmt.Errorf("research %s: %w", args[0], err)
		}

		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		printResearch(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	researchCmd.Flags().StringVar(&resDepth, "depth", "shallow", "shallow or deep")
	researchCmd.Flags().StringVar(&resSize, "size", "", "Company size: small, mid or enterprise")
	researchCmd.Flags().BoolVar(&resNoCache, "no-cache", false, "Ignore a recent stored result")
	rootCmd.AddCommand(researchCmd)
}

func printResearch(w io.Writer, res *engine.ResearchResult) {
	cached := ""
	if res.FromCache {
		cached = "  (cached)"
	}
	fmt.Fprintf(w, "%s  %s  depth=%s%s\n", res.Industry, res.Timestamp.Format("2006-01-02 15:04"), res.Depth, cached)
	st := res.TranscriptionStats
	fmt.Fprintf(w, "videos: %d/%d transcribed (%.0f%%), %d from cache\n\n", st.Successful, st.Attempted, st.SuccessRate, st.Cached)

	printItems(w, "Insights", res.Insights, 10)
	printItems(w, "Strategies", res.Strategies, 10)
	printItems(w, "Pain points", res.PainPoints, 10)
	printItems(w, "Approaches", res.Approaches, 10)

	if res.AISummary != "" {
		fmt.Fprintf(w, "Summary\n%s\n", res.AISummary)
	}
}

func printItems(w io.Writer, title string, items []engine.InsightItem, n int) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s (%d)\n", title, len(items))
	for i, it := range items {
		if i == n {
			fmt.Fprintf(w, "  ... %d more\n", len(items)-n)
			break
		}
		fmt.Fprintf(w, "  [%2d] %s\n", it.Confidence, it.Text)
	}
	fmt.Fprintln(w)
}
