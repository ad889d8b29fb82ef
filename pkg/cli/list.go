package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func listCommand() *cli.Command {
	var (
		cfg    config
		offset int64
		limit  int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "offset",
			Usage:       "Number of photos to skip",
			Destination: &offset,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of photos to show",
			Value:       50,
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List stored photos",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			photos, err := repo.List(ctx, int(offset), int(limit))
			if err != nil {
				return err
			}

			if len(photos) == 0 {
				fmt.Fprintf(c.Root().Writer, "No photos stored\n")
				return nil
			}
			for _, photo := range photos {
				line := fmt.Sprintf("photo %s  %s  %d bytes", photo.ID, photo.FileType, len(photo.Data))
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
