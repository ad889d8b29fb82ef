package cli

import (
	"context"
	"os"

	"github.com/abhivel/lyfe/pkg/adapter"
	"github.com/abhivel/lyfe/pkg/repository"
	"github.com/abhivel/lyfe/pkg/usecase/chat"
	"github.com/abhivel/lyfe/pkg/usecase/ingest"
	"github.com/abhivel/lyfe/pkg/usecase/retrieval"
	"github.com/abhivel/lyfe/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// config holds configuration values
type config struct {
	// Repository
	databaseURL string

	// Vector index
	firestoreProject  string
	firestoreDatabase string

	// Adapters
	geminiProject  string
	geminiLocation string

	// Misc
	logLevel   string
	tuningPath string
}

// tuning holds optional retrieval and loop parameters loaded from a YAML
// file. Zero values fall back to the usecase defaults.
type tuning struct {
	TopK               int     `yaml:"top_k"`
	Threshold          float64 `yaml:"threshold"`
	MaxTurns           int     `yaml:"max_turns"`
	MaxTranscriptBytes int     `yaml:"max_transcript_bytes"`
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "database-url",
			Aliases:     []string{"d"},
			Usage:       "PostgreSQL connection string",
			Sources:     cli.EnvVars("LYFE_DATABASE_URL"),
			Destination: &cfg.databaseURL,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID for the vector index",
			Sources:     cli.EnvVars("LYFE_FIRESTORE_PROJECT", "GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("LYFE_FIRESTORE_DATABASE"),
			Destination: &cfg.firestoreDatabase,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("LYFE_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "tuning-file",
			Usage:       "Path to YAML file with retrieval tuning parameters",
			Sources:     cli.EnvVars("LYFE_TUNING_FILE"),
			Destination: &cfg.tuningPath,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("LYFE_GEMINI_PROJECT", "GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("LYFE_GEMINI_LOCATION", "GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
	}
}

// setupLogger installs the default logger per the configured level.
func (cfg *config) setupLogger() {
	logging.SetDefault(logging.New(cfg.logLevel, os.Stderr))
}

// loadTuning reads the optional tuning file. No file configured means all
// defaults.
func (cfg *config) loadTuning() (*tuning, error) {
	t := &tuning{}
	if cfg.tuningPath == "" {
		return t, nil
	}

	data, err := os.ReadFile(cfg.tuningPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read tuning file", goerr.V("path", cfg.tuningPath))
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, goerr.Wrap(err, "failed to parse tuning file", goerr.V("path", cfg.tuningPath))
	}
	return t, nil
}

// newRepository creates a new repository instance
func (cfg *config) newRepository(ctx context.Context) (*repository.Postgres, error) {
	if cfg.databaseURL == "" {
		return nil, goerr.New("database-url is required")
	}

	repo, err := repository.NewPostgres(ctx, cfg.databaseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newIndex creates a new vector index instance
func (cfg *config) newIndex(ctx context.Context) (*adapter.FirestoreIndex, error) {
	if cfg.firestoreProject == "" {
		return nil, goerr.New("firestore-project is required")
	}
	if cfg.firestoreDatabase == "" {
		return nil, goerr.New("firestore-database is required")
	}

	index, err := adapter.NewFirestoreIndex(ctx, cfg.firestoreProject, cfg.firestoreDatabase)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create vector index")
	}
	return index, nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (*adapter.GeminiClient, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	gemini, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client")
	}
	return gemini, nil
}

// newArchive creates a new archive instance for raw photo backups
func (cfg *config) newArchive(ctx context.Context, bucketName string) (adapter.Archive, error) {
	if bucketName == "" {
		return nil, goerr.New("bucket name is required")
	}

	archive, err := adapter.NewArchive(ctx, bucketName)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create archive")
	}
	return archive, nil
}

// newController assembles the full question-answering stack.
func (cfg *config) newController(ctx context.Context, opts ...chat.Option) (*chat.Controller, func(), error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	index, err := cfg.newIndex(ctx)
	if err != nil {
		repo.Close()
		return nil, nil, err
	}
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		repo.Close()
		index.Close()
		return nil, nil, err
	}

	t, err := cfg.loadTuning()
	if err != nil {
		repo.Close()
		index.Close()
		return nil, nil, err
	}

	var searchOpts []retrieval.Option
	if t.TopK > 0 {
		searchOpts = append(searchOpts, retrieval.WithTopK(t.TopK))
	}
	if t.Threshold > 0 {
		searchOpts = append(searchOpts, retrieval.WithThreshold(t.Threshold))
	}
	engine := retrieval.New(gemini, index, repo, searchOpts...)

	if t.MaxTurns > 0 {
		opts = append(opts, chat.WithMaxTurns(t.MaxTurns))
	}
	if t.MaxTranscriptBytes > 0 {
		opts = append(opts, chat.WithMaxTranscriptBytes(t.MaxTranscriptBytes))
	}
	ctrl := chat.New(gemini, engine, opts...)

	cleanup := func() {
		repo.Close()
		index.Close()
	}
	return ctrl, cleanup, nil
}

// newPipeline assembles the ingest stack.
func (cfg *config) newPipeline(ctx context.Context, opts ...ingest.Option) (*ingest.Pipeline, func(), error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, nil, err
	}
	index, err := cfg.newIndex(ctx)
	if err != nil {
		repo.Close()
		return nil, nil, err
	}
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		repo.Close()
		index.Close()
		return nil, nil, err
	}

	pipeline := ingest.New(repo, index, gemini, opts...)
	cleanup := func() {
		repo.Close()
		index.Close()
	}
	return pipeline, cleanup, nil
}
