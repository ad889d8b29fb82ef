package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func deleteAllCommand() *cli.Command {
	var (
		cfg           config
		force         bool
		archiveBucket string
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "force",
			Usage:       "Skip the confirmation prompt",
			Destination: &force,
		},
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "GCS bucket to copy all photos to before deleting",
			Sources:     cli.EnvVars("LYFE_ARCHIVE_BUCKET"),
			Destination: &archiveBucket,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "delete-all",
		Usage: "Delete every photo record and vector",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if !force {
				return goerr.New("refusing to delete everything without --force")
			}

			cfg.setupLogger()

			pipeline, cleanup, err := cfg.newPipeline(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if archiveBucket != "" {
				repo, err := cfg.newRepository(ctx)
				if err != nil {
					return err
				}
				defer repo.Close()
				archive, err := cfg.newArchive(ctx, archiveBucket)
				if err != nil {
					return err
				}

				const pageSize = 100
				archived := 0
				for offset := 0; ; offset += pageSize {
					photos, err := repo.List(ctx, offset, pageSize)
					if err != nil {
						return goerr.Wrap(err, "failed to list photos for archiving")
					}
					if len(photos) == 0 {
						break
					}
					for _, photo := range photos {
						if err := archive.Put(ctx, photo); err != nil {
							return goerr.Wrap(err, "archive failed, nothing deleted",
								goerr.V("photo_id", photo.ID))
						}
						archived++
					}
					if len(photos) < pageSize {
						break
					}
				}
				fmt.Fprintf(c.Root().Writer, "archived %d photos to gs://%s\n", archived, archiveBucket)
			}

			result := pipeline.PurgeAll(ctx)

			fmt.Fprintf(c.Root().Writer, "records deleted: %d\n", result.RecordsDeleted)
			if result.PhotosErr != nil {
				fmt.Fprintf(c.Root().ErrWriter, "photo vectors: %v\n", result.PhotosErr)
			}
			if result.CaptionsErr != nil {
				fmt.Fprintf(c.Root().ErrWriter, "caption vectors: %v\n", result.CaptionsErr)
			}
			if result.RecordsErr != nil {
				fmt.Fprintf(c.Root().ErrWriter, "records: %v\n", result.RecordsErr)
			}
			if !result.Complete() {
				return goerr.New("purge finished with errors; rerun to clear the rest")
			}
			return nil
		},
	}
}
