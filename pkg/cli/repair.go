package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func repairCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "repair",
		Usage: "Re-embed photos whose vectors are missing",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			pipeline, cleanup, err := cfg.newPipeline(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := pipeline.Repair(ctx)
			if err != nil {
				return goerr.Wrap(err, "repair pass failed")
			}

			fmt.Fprintf(c.Root().Writer, "scanned: %d, repaired: %d, failed: %d\n",
				result.Scanned, result.Repaired, result.Failed)
			if result.Failed > 0 {
				return goerr.New("some photos could not be repaired",
					goerr.V("failed", result.Failed))
			}
			return nil
		},
	}
}
