package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abhivel/lyfe/pkg/model"
	"github.com/abhivel/lyfe/pkg/usecase/chat"
	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive conversation about your photos",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			ctrl, cleanup, err := cfg.newController(ctx, chat.WithOutput(c.Root().ErrWriter))
			if err != nil {
				return err
			}
			defer cleanup()

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to open terminal")
			}
			defer rl.Close()

			fmt.Fprintf(c.Root().Writer, "Ask about your photos. Type 'exit' to quit.\n")

			var transcript []model.Message
			for {
				line, err := rl.Readline()
				if err != nil {
					if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
						break
					}
					return goerr.Wrap(err, "failed to read input")
				}

				question := strings.TrimSpace(line)
				if question == "" {
					continue
				}
				if question == "exit" {
					break
				}

				transcript = append(transcript,
					model.NewTextMessage(model.RoleUser, question))

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
					spinner.WithWriter(c.Root().ErrWriter))
				sp.Suffix = " looking through your photos..."
				sp.Start()
				result, err := ctrl.Run(ctx, transcript)
				sp.Stop()

				if err != nil {
					fmt.Fprintf(c.Root().ErrWriter, "error: %v\n", err)
					// Drop the failed turn so the next question starts clean.
					transcript = transcript[:len(transcript)-1]
					continue
				}

				fmt.Fprintf(c.Root().Writer, "%s\n", result.Message)
				if len(result.PhotoIDs) > 0 {
					ids := make([]string, len(result.PhotoIDs))
					for i, id := range result.PhotoIDs {
						ids[i] = id.String()
					}
					fmt.Fprintf(c.Root().Writer, "Photos: %s\n", strings.Join(ids, ", "))
				}

				transcript = append(transcript,
					model.NewTextMessage(model.RoleAssistant, result.Message))
			}

			fmt.Fprintf(c.Root().Writer, "\nBye.\n")
			return nil
		},
	}
}
