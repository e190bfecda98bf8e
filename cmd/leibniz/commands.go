package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/leibniz/internal/config"
	"github.com/san-kum/leibniz/internal/runner"
	"github.com/san-kum/leibniz/internal/scheduler"
	"github.com/san-kum/leibniz/internal/storage"
	"github.com/san-kum/leibniz/internal/viz"
)

// loadSimulation resolves a preset or file, applies the command line
// overrides and builds it.
func loadSimulation(cmd *cobra.Command, arg string) (*config.System, *config.Simulation, error) {
	sys, err := config.Resolve(arg)
	if err != nil {
		return nil, nil, err
	}
	if f := cmd.Flags().Lookup("duration"); f != nil && f.Changed {
		sys.Run.Duration = duration
	}
	if f := cmd.Flags().Lookup("fps"); f != nil && f.Changed {
		sys.Run.FPS = frameRate
	}
	sim, err := config.Build(sys)
	if err != nil {
		return nil, nil, err
	}
	return sys, sim, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	jobs := make([]runner.Job, 0, len(args))
	for _, arg := range args {
		sys, sim, err := loadSimulation(cmd, arg)
		if err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}
		jobs = append(jobs, runner.Job{System: sys, Sim: sim})
	}

	results, err := runner.RunAll(cmd.Context(), jobs, slog.Default())
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	var stopped error
	for _, res := range results {
		runID, err := st.Save(res.Metadata(), res.Recorder)
		if err != nil {
			return err
		}

		fmt.Printf("run saved: %s\n", runID)
		fmt.Printf("steps: %d  frames: %d  simulated: %v  wall: %v\n", res.Steps, res.Frames, res.Simulated, res.Elapsed)
		for _, b := range res.Sim.Bodies {
			fmt.Printf("  %-10s %s\n", b.Name(), b.Position())
		}
		if res.Err != nil && stopped == nil {
			stopped = fmt.Errorf("%s stopped early: %w", res.Name, res.Err)
		}
	}
	return stopped
}

func runLive(cmd *cobra.Command, args []string) error {
	_, sim, err := loadSimulation(cmd, args[0])
	if err != nil {
		return err
	}

	// The terminal belongs to the view, so logs go to a file or nowhere.
	var out io.Writer = io.Discard
	if logFile != "" {
		f, err := os.Create(logFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	log := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))

	sched := scheduler.New(scheduler.WithLogger(log))
	if err := sched.Bind(sim.Generator); err != nil {
		return err
	}
	for _, b := range sim.Bodies {
		sched.AddEntity(b)
	}

	m := viz.NewModel(sim.Name, sim.Generator, sched, sim.Bodies, sim.Run.FPS)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func checkSystem(cmd *cobra.Command, args []string) error {
	_, sim, err := loadSimulation(cmd, args[0])
	if err != nil {
		return err
	}
	g := sim.Generator

	fmt.Printf("system: %s\n\n", sim.Name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tTYPE\tVALUE\tDEFINITION")
	for _, name := range g.Names() {
		typ, _ := g.Type(name)
		v, _ := g.Value(name)
		def := "(hold)"
		if n := g.Definition(name); n != nil {
			def = n.String()
		}
		fmt.Fprintf(w, "%s\tvar\t%s\t%s\t%s\n", name, typ, v, def)
	}
	for _, name := range g.Funcs() {
		typ, _ := g.Type(name)
		value := "-"
		if v, err := g.Value(name); err == nil {
			value = v.String()
		}
		fmt.Fprintf(w, "%s\tfunc\t%s\t%s\t%s\n", name, typ, value, g.Definition(name))
	}
	for _, b := range sim.Bodies {
		c := b.Color()
		fmt.Fprintf(w, "%s\tbody\tcolor(%g %g %g)\t-\t%s\n", b.Name(), c.R, c.G, c.B, b.Expression())
	}
	return w.Flush()
}

func benchSystem(cmd *cobra.Command, args []string) error {
	_, sim, err := loadSimulation(cmd, args[0])
	if err != nil {
		return err
	}
	if benchN <= 0 {
		return fmt.Errorf("steps must be positive, got %d", benchN)
	}

	fmt.Printf("benchmarking %s\n\n", sim.Name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROUND\tSTEPS\tTIME\tSTEPS/SEC")

	for round := 1; round <= 3; round++ {
		start := time.Now()
		if err := sim.Generator.Run(cmd.Context(), benchN); err != nil {
			return err
		}
		elapsed := time.Since(start)
		fmt.Fprintf(w, "%d\t%d\t%v\t%.0f\n", round, benchN, elapsed, float64(benchN)/elapsed.Seconds())
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYSTEM\tTIME\tDURATION\tDT\tSTEPS\tFRAMES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
			run.ID,
			run.System,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Steps,
			run.Frames,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if asJSON {
		return storage.ExportJSON(os.Stdout, meta, series)
	}
	if len(series.Rows) < 2 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("system: %s\n", meta.System)
	fmt.Printf("samples: %d over %.2fs\n\n", len(series.Rows), series.Times[len(series.Times)-1])

	names := columns
	if len(names) == 0 {
		names = series.Columns
		if len(names) > maxPlots {
			names = names[:maxPlots]
		}
	}
	for _, name := range names {
		data, ok := series.Column(name)
		if !ok {
			return fmt.Errorf("run %s has no column %q (have %s)", runID, name, strings.Join(series.Columns, ", "))
		}
		graph := asciigraph.Plot(finite(data),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name+" vs time"),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

// finite replaces NaN and Inf, which asciigraph cannot scale, with zero.
func finite(data []float64) []float64 {
	out := make([]float64, len(data))
	for i, x := range data {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out[i] = x
		}
	}
	return out
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDT\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		sys, err := config.GetPreset(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%g\t%s\n", name, sys.Dt, sys.Description)
	}
	return w.Flush()
}

func exportPreset(cmd *cobra.Command, args []string) error {
	sys, err := config.GetPreset(args[0])
	if err != nil {
		return err
	}
	path := outFile
	if path == "" {
		path = args[0] + ".yaml"
	}
	if err := config.Save(path, sys); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
