package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhivel/lyfe/pkg/usecase/retrieval"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func searchCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "search",
		Usage:     "Search photos by text, without the conversation loop",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return goerr.New("query is required")
			}

			cfg.setupLogger()

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()
			index, err := cfg.newIndex(ctx)
			if err != nil {
				return err
			}
			defer index.Close()
			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			t, err := cfg.loadTuning()
			if err != nil {
				return err
			}
			var opts []retrieval.Option
			if t.TopK > 0 {
				opts = append(opts, retrieval.WithTopK(t.TopK))
			}
			if t.Threshold > 0 {
				opts = append(opts, retrieval.WithThreshold(t.Threshold))
			}
			engine := retrieval.New(gemini, index, repo, opts...)

			photos, err := engine.Search(ctx, query)
			if err != nil {
				return goerr.Wrap(err, "search failed")
			}

			if len(photos) == 0 {
				fmt.Fprintf(c.Root().Writer, "No photos found\n")
				return nil
			}
			for _, photo := range photos {
				line := fmt.Sprintf("photo %s", photo.ID)
				if photo.Location != "" {
					line += fmt.Sprintf("  %s", photo.Location)
				}
				if photo.CapturedAt != nil {
					line += fmt.Sprintf("  %s", photo.CapturedAt.Format("2006-01-02"))
				}
				fmt.Fprintf(c.Root().Writer, "%s\n", line)
			}
			return nil
		},
	}
}
