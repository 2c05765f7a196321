package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine/research"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine/sources"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and prune the transcript and research stores",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Transcript cache totals per retrieval method",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := research.NewTranscriptCache(st).Stats(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), stats)
		}
		printStats(cmd, stats)
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <video-url-or-id>",
	Short: "Remove one cached transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := sources.ExtractVideoID(args[0])
		if id == "" {
			return fmt.Errorf("not a YouTube video: %s", args[0])
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		deleted, err := research.NewTranscriptCache(st).Delete(cmd.Context(), id)
		if err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), map[string]any{"video_id": id, "deleted": deleted})
		}
		if deleted {
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s was not cached\n", id)
		}
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge-industry <industry>",
	Short: "Delete stored research results and knowledge for an industry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := engine.IndustryKey(args[0])
		if key == "" {
			return fmt.Errorf("industry is required")
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.DeleteIndustry(cmd.Context(), key)
		if err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), map[string]any{"industry": key, "deleted_results": n})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d result(s) for %s\n", n, key)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheDeleteCmd, cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

func printStats(cmd *cobra.Command, stats engine.TranscriptCacheStats) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "cached transcripts: %d\n", stats.TotalCached)
	fmt.Fprintf(w, "total length:       %d\n", stats.TotalLength)
	fmt.Fprintf(w, "average length:     %.0f\n", stats.AverageLength)

	methods := make([]string, 0, len(stats.Methods))
	for m := range stats.Methods {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	for _, m := range methods {
		fmt.Fprintf(w, "  %-14s %d\n", m, stats.Methods[m])
	}
}
