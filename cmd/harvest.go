package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/healthdex/provider-harvest/internal/clock/system"
	"github.com/healthdex/provider-harvest/internal/config"
	"github.com/healthdex/provider-harvest/internal/extract"
	"github.com/healthdex/provider-harvest/internal/frontier"
	"github.com/healthdex/provider-harvest/internal/id/uuid"
	"github.com/healthdex/provider-harvest/internal/logging"
	"github.com/healthdex/provider-harvest/internal/metrics"
	"github.com/healthdex/provider-harvest/internal/pacing"
	"github.com/healthdex/provider-harvest/internal/pipeline"
	"github.com/healthdex/provider-harvest/internal/registry"
	"github.com/healthdex/provider-harvest/internal/render"
	"github.com/healthdex/provider-harvest/internal/sink"
)

var quotaFlag int

// newHarvestCmd creates the 'harvest' subcommand, the single operation this
// tool exposes.
func newHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Runs the directory harvest",
		Long: `Paginates the configured listing pages, scrapes each discovered profile
sequentially, enriches via the NPI registry and writes the result set as one
JSON array.`,
		RunE: runHarvest,
	}
	cmd.Flags().IntVar(&quotaFlag, "quota", 0, "entity quota (overrides config)")
	return cmd
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if quotaFlag > 0 {
		cfg.Harvest.Quota = quotaFlag
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()

	runID, err := uuid.NewGenerator().NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	logger = logger.With(zap.String("run_id", runID))

	var identity pacing.IdentityRotator = pacing.StaticIdentity(cfg.Render.UserAgent)
	if cfg.Render.RotateIdentity {
		identity = pacing.NewBrowserRotator()
	}

	// A renderer that cannot start is fatal for the whole run.
	renderer, err := render.NewChromedp(render.Config{
		UserAgent:   identity.UserAgent,
		NavTimeout:  time.Duration(cfg.Render.NavTimeoutSeconds) * time.Second,
		ScrollPause: time.Duration(cfg.Render.ScrollPauseMs) * time.Millisecond,
	}, logger)
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}
	defer func() {
		if cerr := renderer.Close(cmd.Context()); cerr != nil {
			logger.Warn("failed to close renderer", zap.Error(cerr))
		}
	}()

	controller := frontier.New(frontier.Config{
		ListingURL:   cfg.Harvest.ListingURL,
		PageParam:    cfg.Harvest.PageParam,
		Quota:        cfg.Harvest.Quota,
		MaxPages:     cfg.Harvest.MaxPages,
		WaitTimeout:  cfg.ListingWait(),
		ScrollPasses: cfg.Harvest.ScrollPasses,
		Cards:        cfg.CardSelectors(),
	}, renderer, logger)

	extractor := extract.New(cfg.ProfileSelectors(), logger)

	enricher := registry.NewClient(registry.Config{
		Endpoint: cfg.Registry.Endpoint,
		Version:  cfg.Registry.Version,
		Timeout:  time.Duration(cfg.Registry.TimeoutSeconds) * time.Second,
	}, logger)

	var pacer pacing.Policy = pacing.None{}
	if cfg.Pacing.Enabled {
		pacer = pacing.NewJittered(pacing.Config{
			MinDelay:       time.Duration(cfg.Pacing.MinDelayMs) * time.Millisecond,
			MaxDelay:       time.Duration(cfg.Pacing.MaxDelayMs) * time.Millisecond,
			MaxRPS:         cfg.Pacing.MaxRPS,
			PostWaitChance: cfg.Pacing.PostWaitChance,
		})
	}

	results, err := sink.NewJSONFile(cfg.Output.Path, logger)
	if err != nil {
		return fmt.Errorf("init sink: %w", err)
	}

	orchestrator := pipeline.New(
		pipeline.Config{
			RunID:               runID,
			ProfileWaitSelector: cfg.Harvest.ProfileWaitSelector,
			ProfileWaitTimeout:  cfg.ProfileWait(),
		},
		controller,
		renderer,
		extractor,
		enricher,
		pacer,
		results,
		system.New(),
		logger,
	)

	records, err := orchestrator.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run harvest: %w", err)
	}

	logger.Info("harvest finished", zap.Int("records", len(records)))
	return nil
}
