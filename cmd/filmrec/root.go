package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rushteam/filmrec/config"
	"github.com/rushteam/filmrec/config/builders"
	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/dataset"
	"github.com/rushteam/filmrec/hybrid"
	"github.com/rushteam/filmrec/pipeline"
	"github.com/rushteam/filmrec/pkg/conv"
	"github.com/rushteam/filmrec/pkg/logging"
	"github.com/rushteam/filmrec/store"
)

// app 在 PersistentPreRunE 中初始化，供各子命令共享。
type app struct {
	cfg      *hybrid.Config
	logger   zerolog.Logger
	holder   *dataset.Holder
	engine   *hybrid.Engine
	registry *prometheus.Registry
	store    core.Store

	configPath  string
	dataPath    string
	logLevel    string
	metricsPath string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "filmrec",
		Short: "Hybrid movie recommendation scoring engine",
		Long: `filmrec scores movies for a user by blending user-based and item-based
collaborative filtering with TF-IDF content similarity.

Configuration is read from an optional YAML file and FILMREC_* environment
variables (nested keys use a double underscore, e.g. FILMREC_CONTENT__STOP_WORDS).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "filmrec.yaml", "config file (YAML)")
	flags.StringVar(&a.dataPath, "data", "", "CSV dataset path (overrides dataset.path)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (overrides logging.level)")
	flags.StringVar(&a.metricsPath, "metrics-out", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		newRecommendCmd(a),
		newUserBasedCmd(a),
		newItemBasedCmd(a),
		newContentCmd(a),
		newImportCmd(a),
	)
	return root
}

func (a *app) init(ctx context.Context) error {
	cfg, err := hybrid.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.dataPath != "" {
		cfg.Dataset.Source = "csv"
		cfg.Dataset.Path = a.dataPath
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	a.logger, err = logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return err
	}

	if cfg.Dataset.Source == "redis" {
		rs, err := store.NewRedisStore(ctx, cfg.Dataset.Redis)
		if err != nil {
			return err
		}
		a.store = rs
		builders.UseStore(rs)
	}

	a.holder = dataset.NewHolder(nil)
	snap, err := a.holder.Reload(ctx, a.loader())
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	a.logger.Info().
		Str("source", cfg.Dataset.Source).
		Uint64("snapshot_version", snap.Version()).
		Int("ratings", len(snap.Ratings())).
		Int("catalog", len(snap.Catalog())).
		Int("users", snap.Users()).
		Msg("dataset loaded")

	opts := []hybrid.Option{}
	a.registry = prometheus.NewRegistry()
	opts = append(opts, hybrid.WithMetrics(hybrid.NewMetrics(a.registry)))
	if cfg.Pipeline != "" {
		nodes, err := postNodes(cfg.Pipeline)
		if err != nil {
			return err
		}
		opts = append(opts, hybrid.WithPostNodes(nodes...))
	}

	a.engine, err = hybrid.NewEngine(*cfg, a.holder, a.logger, opts...)
	return err
}

func (a *app) loader() dataset.Loader {
	if a.store != nil {
		return &dataset.StoreLoader{
			Store:      a.store,
			RatingsKey: a.cfg.Dataset.RatingsKey,
			CatalogKey: a.cfg.Dataset.CatalogKey,
			Logger:     a.logger,
		}
	}
	return &dataset.CSVLoader{Path: a.cfg.Dataset.Path, Logger: a.logger}
}

func (a *app) close() error {
	if a.metricsPath != "" && a.registry != nil {
		if err := prometheus.WriteToTextfile(a.metricsPath, a.registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

func postNodes(path string) ([]pipeline.Node, error) {
	pcfg, err := pipeline.LoadFromYAML(path)
	if err != nil {
		return nil, fmt.Errorf("load pipeline %s: %w", path, err)
	}
	if err := config.ValidatePipelineConfig(pcfg); err != nil {
		return nil, err
	}
	p, err := pcfg.BuildPipeline(config.DefaultFactory())
	if err != nil {
		return nil, err
	}
	return p.Nodes, nil
}

// parseRatings 解析 "片名=评分" 形式的参数；片名本身可以包含 '='。
func parseRatings(in []string) ([]core.ItemRating, error) {
	out := make([]core.ItemRating, 0, len(in))
	for _, s := range in {
		i := strings.LastIndex(s, "=")
		if i <= 0 {
			return nil, fmt.Errorf("rating %q: want TITLE=VALUE", s)
		}
		v, ok := conv.ParseRating(s[i+1:])
		if !ok {
			return nil, fmt.Errorf("rating %q: value is not a number", s)
		}
		out = append(out, core.ItemRating{ItemKey: strings.TrimSpace(s[:i]), Value: v})
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
