package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine/research"
	"github.com/msaym22/final-lead-gen-sub001/internal/toolutil"
)

var lead research.Lead

var outreachCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Draft a first-touch message for a lead using stored industry research",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		draft, err := svc.Outreach.Draft(cmd.Context(), lead)
		if err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), draft)
		}
		w := cmd.OutOrStdout()
		if draft.Subject != "" {
			fmt.Fprintf(w, "Subject: %s\n\n", draft.Subject)
		}
		fmt.Fprintf(w, "%s\n", draft.Message)
		if draft.FollowUp != "" {
			fmt.Fprintf(w, "\nFollow-up:\n%s\n", draft.FollowUp)
		}
		if !draft.UsedResearch {
			fmt.Fprintf(cmd.ErrOrStderr(), "note: no stored research for %q\n", lead.Industry)
		}
		return nil
	},
}

var contactsCmd = &cobra.Command{
	Use:   "contacts <url>...",
	Short: "Scan lead web pages for emails, phones and social profiles",
	Args:  cobra.RangeArgs(1, 10),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		results := toolutil.Parallel(cmd.Context(), args, 4, func(ctx context.Context, u string) (*research.Contacts, error) {
			return research.ExtractContacts(ctx, svc.Pages, u)
		})
		if jsonOut {
			out := struct {
				Contacts []*research.Contacts `json:"contacts"`
				Errors   map[string]string    `json:"errors,omitempty"`
			}{Contacts: []*research.Contacts{}}
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
			return writeJSON(cmd.OutOrStdout(), out)
		}
		w := cmd.OutOrStdout()
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(w, "%s\n  error: %v\n", r.Input, r.Err)
				continue
			}
			c := r.Value
			fmt.Fprintf(w, "%s  %s\n", c.URL, c.Title)
			if len(c.Emails) > 0 {
				fmt.Fprintf(w, "  emails: %s\n", strings.Join(c.Emails, ", "))
			}
			if len(c.Phones) > 0 {
				fmt.Fprintf(w, "  phones: %s\n", strings.Join(c.Phones, ", "))
			}
			for network, link := range c.Socials {
				fmt.Fprintf(w, "  %s: %s\n", network, link)
			}
		}
		return nil
	},
}

var (
	siteLocation string
	siteMax      int
)

var websiteCmd = &cobra.Command{
	Use:   "website <company>",
	Short: "Find a company's own website, skipping directory listings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		candidates, err := research.FindWebsites(cmd.Context(), svc.Web, args[0], siteLocation, siteMax)
		if err != nil {
			return err
		}
		if jsonOut {
			if candidates == nil {
				candidates = []research.WebsiteCandidate{}
			}
			return writeJSON(cmd.OutOrStdout(), candidates)
		}
		w := cmd.OutOrStdout()
		if len(candidates) == 0 {
			fmt.Fprintln(w, "No candidate websites found.")
			return nil
		}
		for i, c := range candidates {
			fmt.Fprintf(w, "%d. %s  (score %d)\n   %s\n", i+1, c.Domain, c.Score, c.URL)
		}
		return nil
	},
}

func init() {
	websiteCmd.Flags().StringVar(&siteLocation, "location", "", "City or region")
	websiteCmd.Flags().IntVar(&siteMax, "max", 5, "Max candidates")

	f := outreachCmd.Flags()
	f.StringVar(&lead.Company, "company", "", "Lead company (required)")
	f.StringVar(&lead.Industry, "industry", "", "Lead industry (required)")
	f.StringVar(&lead.Name, "name", "", "Contact first name")
	f.StringVar(&lead.Role, "role", "", "Contact role")
	f.StringVar(&lead.Channel, "channel", research.ChannelEmail, "email or linkedin")
	f.StringVar(&lead.Tone, "tone", "", "Message tone")
	f.StringVar(&lead.Notes, "notes", "", "Anything known about the lead")
	f.IntVar(&lead.OpportunityScore, "score", 0, "Lead opportunity score 0-100")
	_ = outreachCmd.MarkFlagRequired("company")
	_ = outreachCmd.MarkFlagRequired("industry")
	rootCmd.AddCommand(outreachCmd, contactsCmd, websiteCmd)
}
