package cmd

import (
	"fmt"
	"os"

	"github.com/harrison/detective/internal/analyzer"
	"github.com/harrison/detective/internal/budget"
	"github.com/harrison/detective/internal/config"
	"github.com/harrison/detective/internal/issuestore"
	"github.com/harrison/detective/internal/llm"
	"github.com/harrison/detective/internal/logger"
	"github.com/harrison/detective/internal/pattern"
	"github.com/harrison/detective/internal/router"
	"github.com/harrison/detective/internal/supervisor"
	"github.com/harrison/detective/internal/validator"
)

// pipeline bundles the wired-up analysis stack for one command run.
type pipeline struct {
	cfg        *config.Config
	log        *logger.ConsoleLogger
	tracker    *budget.Tracker
	store      *issuestore.Store
	supervisor *supervisor.Supervisor
}

func (p *pipeline) Close() {
	if p.store != nil {
		p.store.Close()
	}
}

// loadConfig reads configuration from the --config path, or from
// .detective/config.yaml in the working directory when the flag is empty.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadConfig(path)
	} else {
		cfg, err = config.LoadConfigFromDir(".")
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildPipeline assembles the full analysis stack from configuration.
// patternsFile optionally layers extra error patterns over the built-ins.
func buildPipeline(cfg *config.Config, patternsFile string) (*pipeline, error) {
	log := logger.NewConsoleLogger(os.Stderr, cfg.LogLevel)

	lib := pattern.NewLibrary()
	if patternsFile != "" {
		if err := lib.LoadFile(patternsFile); err != nil {
			return nil, fmt.Errorf("load patterns: %w", err)
		}
	}

	tracker, err := budget.NewTracker(
		cfg.Budget.StatePath,
		cfg.Budget.DailyLimit,
		cfg.Budget.MonthlyLimit,
		cfg.Budget.PerOperationLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("open budget tracker: %w", err)
	}

	store, err := issuestore.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open issue store: %w", err)
	}

	invoker := llm.NewCLIInvoker()
	invoker.ClaudePath = cfg.Models.ClaudePath
	invoker.Timeout = cfg.Models.Timeout

	rt := router.New(tracker, cfg.Models.HaikuCost, cfg.Models.SonnetCost)
	a := analyzer.New(lib, rt, invoker, log, analyzer.Options{
		ShortCircuitConfidence: cfg.Analysis.ShortCircuitConfidence,
		MaxLogTokens:           cfg.Analysis.MaxLogTokens,
	})

	sup := supervisor.New(a, validator.New(), store, log, supervisor.Options{
		CacheWindow:          cfg.Analysis.CacheWindow,
		EscalationConfidence: cfg.Analysis.EscalationConfidence,
	})

	return &pipeline{
		cfg:        cfg,
		log:        log,
		tracker:    tracker,
		store:      store,
		supervisor: sup,
	}, nil
}
