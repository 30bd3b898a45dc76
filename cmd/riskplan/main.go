// Command riskplan evaluates candidate maneuvers for a driving scene, picks
// the lowest-risk one and optionally records, plots and serves the result.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/riskplan/internal/config"
	"github.com/banshee-data/riskplan/internal/planner"
	"github.com/banshee-data/riskplan/internal/planserver"
	"github.com/banshee-data/riskplan/internal/report"
	"github.com/banshee-data/riskplan/internal/runlog"
	"github.com/banshee-data/riskplan/internal/scenario"
	"github.com/banshee-data/riskplan/internal/units"
	"github.com/banshee-data/riskplan/internal/version"
)

var (
	configPath   = flag.String("config", "", "Planner config JSON (default: "+config.DefaultConfigPath+" when present)")
	scenarioName = flag.String("scenario", "random", "Scene to evaluate: random or forced")
	seed         = flag.Uint64("seed", 0, "Evaluation seed (overrides config when set)")
	samples      = flag.Int("samples", 0, "Monte Carlo trials per candidate (0 keeps config)")
	workers      = flag.Int("workers", -1, "Worker goroutines (0 = GOMAXPROCS, -1 keeps config)")
	dbPath       = flag.String("db", "", "Record the run in this sqlite run log")
	notes        = flag.String("notes", "", "Free-text notes stored with the run")
	plotsDir     = flag.String("plots", "", "Write PNG dashboard plots into this directory")
	htmlPath     = flag.String("html", "", "Write an HTML report to this file")
	csvPath      = flag.String("csv", "", "Write the per-candidate CSV summary to this file")
	displayUnits = flag.String("units", units.MPS, "Speed display units: "+units.GetValidUnitsString())
	serveAddr    = flag.String("serve", "", "Serve the admin HTTP mux on this address after evaluating")
	grpcAddr     = flag.String("grpc", "", "Serve the gRPC planner on this address after evaluating")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

// options is the parsed command line.
type options struct {
	ConfigPath string
	Scenario   string
	Seed       uint64
	SeedSet    bool
	Samples    int
	Workers    int
	DBPath     string
	Notes      string
	PlotsDir   string
	HTMLPath   string
	CSVPath    string
	Units      string
	ServeAddr  string
	GRPCAddr   string
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	o := options{
		ConfigPath: *configPath,
		Scenario:   *scenarioName,
		Seed:       *seed,
		Samples:    *samples,
		Workers:    *workers,
		DBPath:     *dbPath,
		Notes:      *notes,
		PlotsDir:   *plotsDir,
		HTMLPath:   *htmlPath,
		CSVPath:    *csvPath,
		Units:      *displayUnits,
		ServeAddr:  *serveAddr,
		GRPCAddr:   *grpcAddr,
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			o.SeedSet = true
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, os.Stdout); err != nil {
		log.Fatalf("riskplan: %v", err)
	}
}

func loadConfig(path string) (*config.PlannerConfig, error) {
	if path != "" {
		return config.LoadPlannerConfig(path)
	}
	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		return config.LoadPlannerConfig(config.DefaultConfigPath)
	}
	return config.DefaultPlannerConfig(), nil
}

func buildSettings(o options) (planner.Settings, error) {
	cfg, err := loadConfig(o.ConfigPath)
	if err != nil {
		return planner.Settings{}, err
	}
	s := planner.SettingsFromConfig(cfg)
	if o.SeedSet {
		s.Seed = o.Seed
	}
	if o.Samples != 0 {
		s.Samples = o.Samples
	}
	if o.Workers >= 0 {
		s.Workers = o.Workers
	}
	return s, s.Validate()
}

func run(ctx context.Context, o options, out io.Writer) error {
	if !units.IsValid(o.Units) {
		return fmt.Errorf("invalid units %q (want one of %s)", o.Units, units.GetValidUnitsString())
	}
	settings, err := buildSettings(o)
	if err != nil {
		return err
	}
	scene, err := scenario.ByName(o.Scenario, settings.Seed)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := planner.Evaluate(ctx, settings, scene.Ego, scene.Agents)
	planserver.Observe(res, err, time.Since(start))
	if err != nil {
		return err
	}
	printSummary(out, scene, res, o.Units)

	// The CSV export reads from a run log; without -db it uses a throwaway
	// in-memory one.
	var store *runlog.Store
	switch {
	case o.DBPath != "":
		store, err = runlog.Open(o.DBPath)
	case o.CSVPath != "":
		store, err = runlog.Open(":memory:")
	}
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	if store != nil {
		defer store.Close()
		rec, err := store.Record(scene, res, o.Notes)
		if err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		fmt.Fprintf(out, "run_id=%s\n", rec.RunID)

		if o.CSVPath != "" {
			if err := writeFile(o.CSVPath, func(w io.Writer) error { return store.ExportCSV(w, rec.RunID) }); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
		}
	}

	if o.PlotsDir != "" {
		paths, err := report.WriteDashboard(o.PlotsDir, scene, res, report.Options{Units: o.Units})
		if err != nil {
			return fmt.Errorf("write plots: %w", err)
		}
		log.Printf("wrote %d plots to %s", len(paths), o.PlotsDir)
	}
	if o.HTMLPath != "" {
		err := writeFile(o.HTMLPath, func(w io.Writer) error {
			return report.RenderHTML(w, scene, res, report.Options{Units: o.Units})
		})
		if err != nil {
			return fmt.Errorf("write html: %w", err)
		}
	}

	if o.ServeAddr == "" && o.GRPCAddr == "" {
		return nil
	}
	// A CSV-only in-memory log is not worth serving.
	if o.DBPath == "" {
		store = nil
	}
	return serve(ctx, settings, store, o)
}

func serve(ctx context.Context, settings planner.Settings, store *runlog.Store, o options) error {
	srv, err := planserver.NewServer(settings, store)
	if err != nil {
		return err
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	start := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
			log.Printf("%s server terminated", name)
		}()
	}
	if o.ServeAddr != "" {
		start("http", func() error { return srv.ServeAdmin(ctx, o.ServeAddr) })
	}
	if o.GRPCAddr != "" {
		start("grpc", func() error { return planserver.ServeGRPC(ctx, o.GRPCAddr, srv) })
	}
	wg.Wait()
	return errors.Join(errs...)
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(w io.Writer, scene scenario.Scene, res *planner.Result, unit string) {
	fmt.Fprintf(w, "scene=%s agents=%d ego=(%.1f, %.1f) %s seed=%d samples=%d elapsed=%s\n",
		scene.Name, len(scene.Agents), scene.Ego.X, scene.Ego.Y, units.FormatSpeed(scene.Ego.V, unit),
		res.Seed, res.Samples, res.Elapsed)
	for i, c := range res.Candidates {
		r := res.Risks[i]
		mark := " "
		if i == res.BestIndex {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %-18s p=%.3f avg_d=%.2f worst_d=%.2f score=%.4f end=%s\n",
			mark, c.Name, r.CollisionProb, r.AvgMinDistance, r.WorstMinDistance,
			res.Scores[i], units.FormatSpeed(c.Trajectory.Last().V, unit))
	}
	fmt.Fprintf(w, "chosen=%s\n", res.BestName)
}
