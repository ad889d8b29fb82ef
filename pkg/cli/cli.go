package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:     "lyfe",
		Usage:    "Ask questions about your photo collection",
		Commands: rootCommands(),
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

func rootCommands() []*cli.Command {
	return []*cli.Command{
		askCommand(),
		chatCommand(),
		ingestCommand(),
		searchCommand(),
		listCommand(),
		setLocationCommand(),
		statsCommand(),
		repairCommand(),
		deleteAllCommand(),
	}
}
