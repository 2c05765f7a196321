package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/msaym22/final-lead-gen-sub001/internal/store"
	"github.com/msaym22/final-lead-gen-sub001/internal/toolutil"
)

var (
	histIndustry string
	histSince    string
	histLimit    int
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge <industry>",
	Short: "Show the stored knowledge summary for an industry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		k, err := st.GetKnowledge(cmd.Context(), engine.IndustryKey(args[0]))
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no research stored for %q (run: leadctl research %q)", args[0], args[0])
		}
		if err != nil {
			return err
		}

		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), k)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s  updated %s\n", k.Industry, k.LastUpdated.Format("2006-01-02 15:04"))
		fmt.Fprintf(w, "insights=%d strategies=%d pain_points=%d\n\n", k.TotalInsights, k.TotalStrategies, k.TotalPainPoints)
		printItems(w, "Top insights", k.TopInsights, 5)
		printItems(w, "Top strategies", k.TopStrategies, 5)
		printItems(w, "Top pain points", k.TopPainPoints, 5)
		if k.ResearchSummary != "" {
			fmt.Fprintf(w, "Summary\n%s\n", k.ResearchSummary)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past research runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := toolutil.ParseSince(histSince, time.Now().UTC())
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		list, err := st.ListResults(cmd.Context(), engine.ResultFilter{
			Industry: histIndustry,
			Since:    since,
			Limit:    histLimit,
		})
		if err != nil {
			return err
		}

		if jsonOut {
			if list == nil {
				list = []engine.ResearchResult{}
			}
			return writeJSON(cmd.OutOrStdout(), list)
		}
		w := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(w, "No research runs found.")
			return nil
		}
		for _, r := range list {
			fmt.Fprintf(w, "%s  %-24s %-8s insights=%-3d strategies=%-3d videos=%d\n",
				r.Timestamp.Format("2006-01-02 15:04"), engine.TruncateRunes(r.Industry, 24, ""), r.Depth,
				len(r.Insights), len(r.Strategies), r.TranscriptionStats.Successful)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&histIndustry, "industry", "", "Only this industry")
	historyCmd.Flags().StringVar(&histSince, "since", "", "Only runs newer than this: 24h, 7d, 2026-01-31")
	historyCmd.Flags().IntVar(&histLimit, "limit", 20, "Max runs (max 100)")
	rootCmd.AddCommand(knowledgeCmd, historyCmd)
}
