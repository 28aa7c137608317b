package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nvr-ai/filterbench/benchmark"
	"github.com/nvr-ai/filterbench/filters"
	"github.com/nvr-ai/filterbench/filters/opencv"
	"github.com/nvr-ai/filterbench/frames"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	logPath    string
	configPath string
	outputPath string
	csvPath    string
	inputPath  string
	overwrite  bool
	metricList string
	compareOn  string
	rankBy     string

	logFile *os.File
	logger  = slog.Default()

	rootCmd = &cobra.Command{
		Use:   "filterbench",
		Short: "Micro-benchmarks interchangeable frame filters",
		Long: `filterbench measures filters over a sweep of pixel formats, resolutions,
thread counts and parameter combinations, then stores, displays and
compares the results.`,
		SilenceUsage:       true,
		PersistentPreRunE:  openLog,
		PersistentPostRunE: closeLog,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark described by a YAML configuration",
		RunE:  runBenchmark,
	}

	showCmd = &cobra.Command{
		Use:   "show",
		Short: "Display saved results",
		RunE:  showResults,
	}

	compareCmd = &cobra.Command{
		Use:   "compare",
		Short: "Show the best function per resolution and format for one metric",
		RunE:  compareResults,
	}

	filtersCmd = &cobra.Command{
		Use:   "filters",
		Short: "List the registered filters",
		RunE:  listFilters,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "benchmark.log", "JSON log file")

	runCmd.Flags().StringVarP(&configPath, "config", "c", "bench.yaml", "benchmark configuration")
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "results.json", "results file")
	runCmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace existing output files")
	runCmd.Flags().StringVar(&csvPath, "csv", "", "also export every pass to this CSV file")
	runCmd.Flags().StringVarP(&metricList, "metrics", "m", "ALL", "metrics to display")
	runCmd.Flags().StringVar(&compareOn, "compare", "", "metric to rank functions by after the run")

	showCmd.Flags().StringVarP(&inputPath, "input", "i", "results.json", "results file")
	showCmd.Flags().StringVarP(&metricList, "metrics", "m", "ALL", "metrics to display")

	compareCmd.Flags().StringVarP(&inputPath, "input", "i", "results.json", "results file")
	compareCmd.Flags().StringVar(&rankBy, "metric", "TIME", "metric to rank by")

	rootCmd.AddCommand(runCmd, showCmd, compareCmd, filtersCmd)
}

func openLog(cmd *cobra.Command, args []string) error {
	f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open log %s", logPath)
	}
	logFile = f
	logger = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
	return nil
}

func closeLog(cmd *cobra.Command, args []string) error {
	if logFile == nil {
		return nil
	}
	return logFile.Close()
}

// registry returns the builtin filters plus the OpenCV variants.
func registry() (*filters.Registry, error) {
	reg := filters.Builtin()
	if err := opencv.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	metrics, err := benchmark.ParseMetricSet(metricList)
	if err != nil {
		return err
	}
	var ranking benchmark.MetricSet
	if compareOn != "" {
		if ranking, err = benchmark.ParseMetricSet(compareOn); err != nil {
			return err
		}
		if _, err := ranking.Single(); err != nil {
			return err
		}
	}

	cfg, err := benchmark.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	reg, err := registry()
	if err != nil {
		return err
	}
	fns, err := cfg.Resolve(reg)
	if err != nil {
		return err
	}

	source := frames.BlankSource{Seed: cfg.Seed}
	gen := &benchmark.Generator{Source: source, Logger: logger, Console: os.Stderr}
	cases, err := gen.Generate(fns, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d test cases\n", len(cases))

	opts := []benchmark.Option{
		benchmark.WithLogger(logger),
		benchmark.WithSource(source),
		benchmark.WithConsole(os.Stderr),
	}
	if benchmark.IsTerminal(os.Stderr) {
		opts = append(opts, benchmark.WithProgress(os.Stderr))
	}
	engine, err := benchmark.NewEngine(opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	store, runErr := engine.Run(ctx, cases, cfg.RunOptions())
	if runErr != nil && !errors.Is(runErr, benchmark.ErrInterrupted) {
		return runErr
	}

	store.Display(os.Stdout, metrics)
	if compareOn != "" {
		if err := store.Compare(os.Stdout, ranking); err != nil {
			return err
		}
	}
	if err := store.Save(outputPath, overwrite); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Results saved to: %s\n", outputPath)
	if csvPath != "" {
		if err := store.ExportCSV(csvPath, overwrite); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Passes saved to: %s\n", csvPath)
	}
	return runErr
}

func showResults(cmd *cobra.Command, args []string) error {
	metrics, err := benchmark.ParseMetricSet(metricList)
	if err != nil {
		return err
	}
	store, err := benchmark.Load(inputPath)
	if err != nil {
		return err
	}
	store.Display(os.Stdout, metrics)
	return nil
}

func compareResults(cmd *cobra.Command, args []string) error {
	ranking, err := benchmark.ParseMetricSet(rankBy)
	if err != nil {
		return err
	}
	store, err := benchmark.Load(inputPath)
	if err != nil {
		return err
	}
	return store.Compare(os.Stdout, ranking)
}

func listFilters(cmd *cobra.Command, args []string) error {
	reg, err := registry()
	if err != nil {
		return err
	}
	for _, name := range reg.Names() {
		b, _ := reg.Lookup(name)
		fmt.Printf("%-20s %v\n", name, b.Signature().Params)
	}
	return nil
}
