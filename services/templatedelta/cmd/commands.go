package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/redbco/templatedelta/pkg/config"
	"github.com/redbco/templatedelta/pkg/logger"
	"github.com/redbco/templatedelta/pkg/templatemodel"
	"github.com/redbco/templatedelta/services/templatedelta/internal/engine"
	"github.com/redbco/templatedelta/services/templatedelta/internal/policy"
	"github.com/redbco/templatedelta/services/templatedelta/internal/report"
)

type globalOptions struct {
	configFile string
	logLevel   string
}

type compareOptions struct {
	format            string
	parallel          int
	orderDiff         bool
	failOnDestructive bool
	noColor           bool
}

// setupCommands initializes all commands and their relationships
func setupCommands(rootCmd *cobra.Command, opts *globalOptions) {
	rootCmd.AddCommand(newCompareCmd(opts))
	rootCmd.AddCommand(newPolicyCmd(opts))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersionInfo(cmd.OutOrStdout())
		},
	})
}

func newCompareCmd(global *globalOptions) *cobra.Command {
	opts := &compareOptions{}

	cmd := &cobra.Command{
		Use:   "compare PREVIOUS CURRENT",
		Short: "Compare two template documents",
		Long: "Compares the previous and current version of a template (YAML or JSON) and reports " +
			"additions, deletions, renames, type, constraint and order changes.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := map[string]string{}
			if cmd.Flags().Changed("format") {
				overrides[config.KeyOutputFormat] = opts.format
			}
			if cmd.Flags().Changed("parallel") {
				overrides[config.KeyComparisonParallel] = strconv.Itoa(opts.parallel)
			}

			cfg, settings, log, err := initialize(global, overrides)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			format, err := report.ParseFormat(settings.Output.Format)
			if err != nil {
				return err
			}

			e, err := startEngine(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = e.Stop(context.Background()) }()

			result, err := e.CompareFiles(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			err = report.Write(out, result, report.Options{
				Format:    format,
				Color:     settings.Output.Color && !opts.noColor && isTerminal(out),
				OrderDiff: opts.orderDiff,
			})
			if err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}

			if opts.failOnDestructive && result.Delta.HasDestructiveChanges() {
				return fmt.Errorf("%w: %d destructive change(s)", errUnsafeDelta, len(result.Delta.DestructiveChanges()))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "o", "text", "Output format: text, json or yaml")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", 1, "Number of top-level elements compared concurrently")
	cmd.Flags().BoolVar(&opts.orderDiff, "order-diff", false, "Include a unified diff of changed child orders")
	cmd.Flags().BoolVar(&opts.failOnDestructive, "fail-on-destructive", false, "Exit with status 2 when the change is destructive")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	return cmd
}

func newPolicyCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "policy",
		Short: "Print the destructive type changes in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, log, err := initialize(global, nil)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			e, err := startEngine(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = e.Stop(context.Background()) }()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Destructive type changes:")
			for _, pair := range e.Policy().DenyList() {
				fmt.Fprintf(out, "  %s -> %s%s\n", pair.From, pair.To, unknownMarker(pair))
			}
			fmt.Fprintln(out, "Constraint changes are destructive when the new constraints render longer than the old ones.")

			kinds := templatemodel.AllFieldKinds()
			names := make([]string, 0, len(kinds))
			for _, kind := range kinds {
				names = append(names, kind.String())
			}
			fmt.Fprintf(out, "Known field kinds: %s\n", strings.Join(names, ", "))
			return nil
		},
	}
}

// initialize loads the configuration, applies flag overrides and creates the logger
func initialize(global *globalOptions, overrides map[string]string) (*config.Config, *config.Settings, *logger.Logger, error) {
	cfg, err := config.Load(global.configFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if global.logLevel != "" {
		if overrides == nil {
			overrides = map[string]string{}
		}
		overrides[config.KeyLogLevel] = global.logLevel
	}
	if len(overrides) > 0 {
		cfg.Update(overrides)
	}

	settings, err := cfg.Settings()
	if err != nil {
		return nil, nil, nil, err
	}

	log := logger.New("templatedelta", Version)
	if err := log.SetLevel(settings.Log.Level); err != nil {
		return nil, nil, nil, err
	}
	if file := cfg.File(); file != "" {
		log.Debugf("using config file %s", file)
	}
	log.WithFields(cfg.GetAll()).Debug("effective configuration")
	return cfg, settings, log, nil
}

// unknownMarker flags configured pairs naming a kind templates cannot declare
func unknownMarker(pair policy.KindPair) string {
	if templatemodel.FieldKind(pair.From).IsValid() && templatemodel.FieldKind(pair.To).IsValid() {
		return ""
	}
	return " (unknown kind)"
}

func startEngine(ctx context.Context, cfg *config.Config, log *logger.Logger) (*engine.Engine, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	e := engine.NewEngine(cfg)
	e.SetLogger(log)
	if err := e.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}
	return e, nil
}

func isTerminal(w interface{}) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
