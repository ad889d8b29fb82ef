package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhivel/lyfe/pkg/model"
	"github.com/abhivel/lyfe/pkg/usecase/chat"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a single question about your photos",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if question == "" {
				return goerr.New("question is required")
			}

			cfg.setupLogger()

			ctrl, cleanup, err := cfg.newController(ctx, chat.WithOutput(c.Root().ErrWriter))
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := ctrl.Run(ctx, []model.Message{
				model.NewTextMessage(model.RoleUser, question),
			})
			if err != nil {
				return goerr.Wrap(err, "failed to answer question")
			}

			fmt.Fprintf(c.Root().Writer, "%s\n", result.Message)
			if len(result.PhotoIDs) > 0 {
				ids := make([]string, len(result.PhotoIDs))
				for i, id := range result.PhotoIDs {
					ids[i] = id.String()
				}
				fmt.Fprintf(c.Root().Writer, "Photos: %s\n", strings.Join(ids, ", "))
			}
			return nil
		},
	}
}
