package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/grt43/genetic-ode/internal/config"
	"github.com/grt43/genetic-ode/internal/dataset"
	"github.com/grt43/genetic-ode/internal/evolve"
	"github.com/grt43/genetic-ode/internal/fitness"
	"github.com/grt43/genetic-ode/internal/storage"
	"github.com/grt43/genetic-ode/internal/tui"
)

var (
	dataDir    string
	configFile string
	demo       string
	noSave     bool

	population    int
	generations   int
	maxDepth      int
	crossoverRate float64
	mutationRate  float64
	tournament    int
	elites        int
	substeps      int
	seed          int64
	workers       int
	target        float64
	operators     []string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "genetic-ode",
		Short: "genetic programming search for ODE right-hand sides",
		Long: "genetic-ode evolves symbolic expressions f(x, t) so that the\n" +
			"trajectory of x' = f(x, t) matches observed (time, position) samples.",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".genetic-ode", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run an evolution search",
		RunE:  runSearch,
	}
	addRunFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a search with a live terminal view",
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list archived runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print an archived run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot an archived run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export an archived run's trajectories to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete an archived run",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteRun,
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, showCmd, plotCmd, exportCSVCmd, deleteCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&demo, "demo", "quadratic", "demo dataset when none is configured (quadratic|cosine)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "skip archiving the result")
	cmd.Flags().IntVar(&population, "pop", config.DefaultPopulation, "population size")
	cmd.Flags().IntVar(&generations, "gens", config.DefaultGenerations, "generation budget")
	cmd.Flags().IntVar(&maxDepth, "depth", config.DefaultMaxDepth, "maximum tree depth")
	cmd.Flags().Float64Var(&crossoverRate, "crossover", config.DefaultCrossoverRate, "crossover probability")
	cmd.Flags().Float64Var(&mutationRate, "mutation", config.DefaultMutationRate, "mutation probability")
	cmd.Flags().IntVar(&tournament, "tournament", config.DefaultTournament, "tournament size")
	cmd.Flags().IntVar(&elites, "elites", config.DefaultElites, "elites carried over per generation")
	cmd.Flags().IntVar(&substeps, "substeps", 10, "RK4 substeps per sample interval")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel fitness workers (0 = all cores)")
	cmd.Flags().Float64Var(&target, "target", 0, "early-stop fitness threshold (0 disables)")
	cmd.Flags().StringSliceVar(&operators, "ops", nil, "operator set (default from config)")
}

// buildConfig merges defaults, an optional config file and any explicitly
// set flags, in that order.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("pop") {
		cfg.Population = population
	}
	if flags.Changed("gens") {
		cfg.Generations = generations
	}
	if flags.Changed("depth") {
		cfg.MaxDepth = maxDepth
	}
	if flags.Changed("crossover") {
		cfg.CrossoverRate = crossoverRate
	}
	if flags.Changed("mutation") {
		cfg.MutationRate = mutationRate
	}
	if flags.Changed("tournament") {
		cfg.TournamentSize = tournament
	}
	if flags.Changed("elites") {
		cfg.Elites = elites
	}
	if flags.Changed("substeps") {
		cfg.Substeps = substeps
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("target") {
		cfg.TargetFitness = target
	}
	if flags.Changed("ops") {
		cfg.Operators = operators
	}
	if cfg.Seed == 0 || flags.Changed("seed") {
		cfg.Seed = seed
	}
	return cfg, nil
}

// buildDataset uses the configured samples when present, otherwise one of
// the built-in demo trajectories.
func buildDataset(cfg *config.Config) (*dataset.Dataset, error) {
	if len(cfg.TimeData) > 0 || len(cfg.PositionData) > 0 {
		return dataset.New(cfg.TimeData, cfg.PositionData)
	}

	var times, positions []float64
	switch demo {
	case "quadratic": // x = t^2, recoverable as f = 2t
		for t := 0.0; t <= 3.0+1e-9; t += 0.25 {
			times = append(times, t)
			positions = append(positions, t*t)
		}
	case "cosine": // x = -cos(t), recoverable as f = sin(t)
		for t := 0.0; t <= 10.0+1e-9; t += 0.5 {
			times = append(times, t)
			positions = append(positions, -math.Cos(t))
		}
	default:
		return nil, fmt.Errorf("unknown demo dataset: %s", demo)
	}
	cfg.TimeData = times
	cfg.PositionData = positions
	return dataset.New(times, positions)
}

func buildEngine(cmd *cobra.Command) (*evolve.Engine, *fitness.Evaluator, *config.Config, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	ds, err := buildDataset(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	eval := fitness.New(ds, cfg.Substeps)
	engine, err := evolve.New(engineCfg, eval)
	if err != nil {
		return nil, nil, nil, err
	}
	return engine, eval, cfg, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	engine, eval, cfg, err := buildEngine(cmd)
	if err != nil {
		return err
	}

	engine.AddObserver(evolve.ObserverFunc(func(s evolve.Stats) {
		fmt.Printf("gen %4d  best %.6f  err %-12.4g  %s\n",
			s.Generation, s.BestFitness, s.BestError, s.BestExpr)
	}))

	res, err := engine.Run(cmd.Context())
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	printSummary(res)
	plotFit(eval, res)

	if noSave {
		return nil
	}
	return archive(cmd.Context(), cfg, eval, res)
}

func runLive(cmd *cobra.Command, args []string) error {
	engine, eval, cfg, err := buildEngine(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stats := make(chan evolve.Stats)
	engine.AddObserver(evolve.ObserverFunc(func(s evolve.Stats) {
		select {
		case stats <- s:
		case <-ctx.Done():
		}
	}))

	var res *evolve.Result
	var runErr error
	go func() {
		res, runErr = engine.Run(ctx)
		close(stats)
	}()

	p := tea.NewProgram(tui.NewModel(stats, cancel))
	if _, err := p.Run(); err != nil {
		cancel()
		return err
	}
	cancel()
	for range stats { // wait for the engine goroutine to finish
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if res == nil || res.Best == nil {
		return nil
	}

	printSummary(res)
	if noSave {
		return nil
	}
	return archive(cmd.Context(), cfg, eval, res)
}

func printSummary(res *evolve.Result) {
	fmt.Println()
	fmt.Printf("best f(x, t) = %s\n", res.Best.Root)
	fmt.Printf("fitness      = %.6f\n", res.Best.Fitness)
	fmt.Printf("error        = %.6g\n", res.Best.Err)
	fmt.Printf("found at     = generation %d\n", res.FoundAt)
	fmt.Printf("evaluations  = %s over %d generations\n",
		humanize.Comma(int64(res.Evals)), res.Generations+1)
}

func plotFit(eval *fitness.Evaluator, res *evolve.Result) {
	pred := eval.Predict(res.Best.Root)
	if !pred.Complete() {
		return
	}

	fmt.Println()
	fmt.Println(asciigraph.Plot(eval.Dataset().Positions(),
		asciigraph.Height(8),
		asciigraph.Width(70),
		asciigraph.Caption("observed x(t)"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(pred.Positions,
		asciigraph.Height(8),
		asciigraph.Width(70),
		asciigraph.Caption(fmt.Sprintf("predicted by %s", res.Best.Root)),
	))
}

func openStore(ctx context.Context) (*storage.Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	return storage.Open(ctx, filepath.Join(dataDir, "runs.db"))
}

func archive(ctx context.Context, cfg *config.Config, eval *fitness.Evaluator, res *evolve.Result) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	snapshot, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	rec := storage.RunRecord{
		Seed:        cfg.Seed,
		Config:      string(snapshot),
		BestExpr:    res.Best.Root.String(),
		BestFitness: res.Best.Fitness,
		BestError:   res.Best.Err,
		FoundAt:     res.FoundAt,
		Generations: res.Generations,
		Evals:       res.Evals,
		History:     res.History,
		TimeData:    eval.Dataset().Times(),
		Positions:   eval.Dataset().Positions(),
	}
	if pred := eval.Predict(res.Best.Root); pred.Complete() {
		rec.Predicted = pred.Positions
	}

	id, err := st.SaveRun(ctx, rec)
	if err != nil {
		return err
	}
	fmt.Printf("\nsaved run %s\n", id)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no archived runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSEED\tGENS\tFITNESS\tBEST")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.4f\t%s\n",
			r.ID, humanize.Time(r.CreatedAt), r.Seed, r.Generations, r.BestFitness, r.BestExpr)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.LoadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func plotRun(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.LoadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if len(rec.History) > 1 {
		best := make([]float64, len(rec.History))
		for i, s := range rec.History {
			best[i] = s.BestFitness
		}
		fmt.Println(asciigraph.Plot(best,
			asciigraph.Height(10),
			asciigraph.Width(70),
			asciigraph.Caption("best fitness by generation"),
		))
		fmt.Println()
	}

	fmt.Println(asciigraph.Plot(rec.Positions,
		asciigraph.Height(8),
		asciigraph.Width(70),
		asciigraph.Caption("observed x(t)"),
	))
	if len(rec.Predicted) > 0 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(rec.Predicted,
			asciigraph.Height(8),
			asciigraph.Width(70),
			asciigraph.Caption(fmt.Sprintf("predicted by %s", rec.BestExpr)),
		))
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.LoadRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write([]string{"time", "observed", "predicted"}); err != nil {
		return err
	}
	for i, t := range rec.TimeData {
		row := []string{
			strconv.FormatFloat(t, 'g', -1, 64),
			strconv.FormatFloat(rec.Positions[i], 'g', -1, 64),
			"",
		}
		if i < len(rec.Predicted) {
			row[2] = strconv.FormatFloat(rec.Predicted[i], 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func deleteRun(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteRun(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted run %s\n", args[0])
	return nil
}
