package cli

import (
	"context"
	"fmt"

	"github.com/abhivel/lyfe/pkg/model"
	"github.com/urfave/cli/v3"
)

func statsCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "stats",
		Usage: "Show record and vector counts",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
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

			records, err := repo.Count(ctx)
			if err != nil {
				return err
			}
			photoVectors, err := index.Count(ctx, model.NamespacePhotos)
			if err != nil {
				return err
			}
			captionVectors, err := index.Count(ctx, model.NamespaceLocationCaptions)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "records:          %d\n", records)
			fmt.Fprintf(c.Root().Writer, "photo vectors:    %d\n", photoVectors)
			fmt.Fprintf(c.Root().Writer, "caption vectors:  %d\n", captionVectors)
			if missing := records - photoVectors; missing > 0 {
				fmt.Fprintf(c.Root().Writer, "\n%d photos lack vectors; run 'lyfe repair'\n", missing)
			}
			return nil
		},
	}
}
