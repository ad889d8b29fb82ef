package cli

import (
	"context"
	"fmt"

	"github.com/abhivel/lyfe/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func setLocationCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "set-location",
		Usage:     "Correct where a photo was taken",
		ArgsUsage: "<photo-id> <location>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 2 {
				return goerr.New("photo id and location are required")
			}
			id, err := model.ParsePhotoID(c.Args().Get(0))
			if err != nil {
				return err
			}
			location := c.Args().Get(1)

			cfg.setupLogger()

			pipeline, cleanup, err := cfg.newPipeline(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := pipeline.SetLocation(ctx, id, location); err != nil {
				return goerr.Wrap(err, "failed to update location")
			}

			fmt.Fprintf(c.Root().Writer, "photo %s is now at %s\n", id, location)
			return nil
		},
	}
}
