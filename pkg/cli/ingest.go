package cli

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abhivel/lyfe/pkg/usecase/ingest"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// imageExtensions lists the file suffixes picked up when a directory is given.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true,
}

// manifestEntry is one photo in a batch manifest file: the payload is base64
// encoded, location and captured_at are optional.
type manifestEntry struct {
	Data       string `json:"data"`
	Location   string `json:"location"`
	CapturedAt string `json:"captured_at"`
}

func ingestCommand() *cli.Command {
	var (
		cfg           config
		location      string
		capturedAt    string
		manifestPath  string
		archiveBucket string
		concurrency   int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "location",
			Aliases:     []string{"l"},
			Usage:       "Where the photos were taken",
			Destination: &location,
		},
		&cli.StringFlag{
			Name:        "captured-at",
			Usage:       "When the photos were taken (YYYY-MM-DD)",
			Destination: &capturedAt,
		},
		&cli.StringFlag{
			Name:        "manifest",
			Usage:       "JSON manifest of base64-encoded photos to ingest",
			Destination: &manifestPath,
		},
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "GCS bucket to archive original photos to",
			Sources:     cli.EnvVars("LYFE_ARCHIVE_BUCKET"),
			Destination: &archiveBucket,
		},
		&cli.IntFlag{
			Name:        "concurrency",
			Usage:       "Parallel uploads per batch",
			Value:       4,
			Destination: &concurrency,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "ingest",
		Usage:     "Add photos to the collection",
		ArgsUsage: "[<photo-file-or-dir>...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			args := c.Args().Slice()
			if len(args) == 0 && manifestPath == "" {
				return goerr.New("photo files, directories, or a manifest are required")
			}

			var when *time.Time
			if capturedAt != "" {
				t, err := parseDate(capturedAt)
				if err != nil {
					return err
				}
				when = &t
			}

			cfg.setupLogger()

			var (
				inputs []ingest.Input
				labels []string
			)
			for _, arg := range args {
				paths, err := expandPath(arg)
				if err != nil {
					return err
				}
				for _, path := range paths {
					data, err := os.ReadFile(path)
					if err != nil {
						return goerr.Wrap(err, "failed to read photo file", goerr.V("path", path))
					}
					inputs = append(inputs, ingest.Input{
						Data:       data,
						Location:   location,
						CapturedAt: when,
					})
					labels = append(labels, path)
				}
			}

			if manifestPath != "" {
				fromManifest, err := loadManifest(manifestPath)
				if err != nil {
					return err
				}
				for i, in := range fromManifest {
					inputs = append(inputs, in)
					labels = append(labels, fmt.Sprintf("%s[%d]", manifestPath, i))
				}
			}

			if len(inputs) == 0 {
				return goerr.New("no photos found to ingest")
			}

			pipeline, cleanup, err := cfg.newPipeline(ctx,
				ingest.WithBatchConcurrency(int(concurrency)))
			if err != nil {
				return err
			}
			defer cleanup()

			result := pipeline.IngestBatch(ctx, inputs)

			for _, item := range result.Items {
				switch item.Status {
				case ingest.StatusCreated:
					fmt.Fprintf(c.Root().Writer, "%s: photo %s\n", labels[item.Index], item.Photo.ID)
				case ingest.StatusEmbeddingError:
					fmt.Fprintf(c.Root().Writer, "%s: photo %s stored, embedding pending (run repair): %v\n",
						labels[item.Index], item.Photo.ID, item.Err)
				case ingest.StatusFailed:
					fmt.Fprintf(c.Root().Writer, "%s: failed: %v\n", labels[item.Index], item.Err)
				}
			}

			if archiveBucket != "" {
				archive, err := cfg.newArchive(ctx, archiveBucket)
				if err != nil {
					return err
				}
				for _, item := range result.Items {
					if item.Photo == nil {
						continue
					}
					if err := archive.Put(ctx, item.Photo); err != nil {
						fmt.Fprintf(c.Root().ErrWriter, "archive of photo %s failed: %v\n",
							item.Photo.ID, err)
					}
				}
			}

			if failed := result.CountByStatus(ingest.StatusFailed); failed > 0 {
				return goerr.New("some photos could not be ingested",
					goerr.V("failed", failed), goerr.V("batch_id", result.BatchID))
			}
			return nil
		},
	}
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "invalid date, expected YYYY-MM-DD", goerr.V("value", value))
	}
	return t, nil
}

// expandPath resolves a file or directory argument to a list of photo files.
// Directories are walked non-recursively; non-image files are skipped.
func expandPath(arg string) ([]string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, goerr.Wrap(err, "cannot access path", goerr.V("path", arg))
	}
	if !info.IsDir() {
		return []string{arg}, nil
	}

	entries, err := os.ReadDir(arg)
	if err != nil {
		return nil, goerr.Wrap(err, "cannot read directory", goerr.V("path", arg))
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(arg, entry.Name()))
		}
	}
	return paths, nil
}

func loadManifest(path string) ([]ingest.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read manifest", goerr.V("path", path))
	}

	var entries []manifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, goerr.Wrap(err, "failed to parse manifest", goerr.V("path", path))
	}

	inputs := make([]ingest.Input, 0, len(entries))
	for i, entry := range entries {
		payload, err := base64.StdEncoding.DecodeString(entry.Data)
		if err != nil {
			return nil, goerr.Wrap(err, "manifest entry is not valid base64",
				goerr.V("path", path), goerr.V("index", i))
		}
		in := ingest.Input{Data: payload, Location: entry.Location}
		if entry.CapturedAt != "" {
			t, err := parseDate(entry.CapturedAt)
			if err != nil {
				return nil, goerr.Wrap(err, "manifest entry has invalid captured_at",
					goerr.V("path", path), goerr.V("index", i))
			}
			in.CapturedAt = &t
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}
