package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine/research"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine/sources"
)

var (
	trNoCache   bool
	trMinLength int
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript <video-url-or-id>",
	Short: "Print a video transcript, fetching and caching it if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := sources.ExtractVideoID(args[0])
		if id == "" {
			return fmt.Errorf("not a YouTube video: %s", args[0])
		}

		svc, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		res, ok, err := svc.Fetcher.Fetch(cmd.Context(), id, research.FetchOptions{
			UseCache:  !trNoCache,
			MinLength: trMinLength,
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no transcript available for %s", id)
		}

		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), struct {
				VideoID string `json:"video_id"`
				research.FetchResult
			}{id, res})
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Transcript)
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d chars via %s (cached=%t)\n", id, len(res.Transcript), res.Method, res.FromCache)
		return nil
	},
}

func init() {
	transcriptCmd.Flags().BoolVar(&trNoCache, "no-cache", false, "Fetch again even when cached")
	transcriptCmd.Flags().IntVar(&trMinLength, "min-length", 0, "Reject transcripts shorter than this")
	rootCmd.AddCommand(transcriptCmd)
}
