package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/confatlas/confcrawler/internal/service"
)

// newCrawlCmd creates the 'crawl' subcommand: one synchronous crawl of a URL
// or an existing conference record.
func newCrawlCmd() *cobra.Command {
	var (
		conferenceID string
		saveHTML     bool
	)

	cmd := &cobra.Command{
		Use:   "crawl [url]",
		Short: "Crawl one conference website",
		Long: `Runs a single end-to-end crawl: robots check, headless fetch, field
extraction, and persistence. Pass a URL, or --id to re-crawl a stored
conference. The outcome is printed as JSON.`,
		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			if len(args) == 0 && conferenceID == "" {
				return fmt.Errorf("a url argument or --id is required")
			}
			if len(args) == 1 && conferenceID != "" {
				return fmt.Errorf("url argument and --id are mutually exclusive")
			}

			opts := service.Options{SaveHTMLToStorage: saveHTML}
			var out service.Outcome
			if conferenceID != "" {
				out = a.svc.CrawlByID(cmd.Context(), conferenceID, opts)
			} else {
				out = a.svc.CrawlByURL(cmd.Context(), args[0], opts)
			}

			encoded, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("encode outcome: %w", err)
			}
			cmd.Println(string(encoded))

			if !out.Success {
				return fmt.Errorf("crawl failed: %s", out.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&conferenceID, "id", "", "crawl an existing conference by id")
	cmd.Flags().BoolVar(&saveHTML, "save-html", false, "archive the raw HTML to blob storage")

	return cmd
}
