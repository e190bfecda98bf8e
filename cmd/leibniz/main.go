package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	dataDir   string
	verbose   bool
	duration  float64
	frameRate int
	benchN    int
	columns   []string
	maxPlots  int
	asJSON    bool
	outFile   string
	logFile   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "leibniz",
		Short:         "step and display expression-defined simulations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".leibniz", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [preset|file]...",
		Short: "run simulations headless, concurrently, and record them",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().Float64Var(&duration, "duration", 0, "simulated seconds (default from system)")
	runCmd.Flags().IntVar(&frameRate, "fps", 0, "frames per second (default from system)")

	liveCmd := &cobra.Command{
		Use:   "live [preset|file]",
		Short: "run a simulation with live visualization",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().IntVar(&frameRate, "fps", 0, "frame rate (default from system)")
	liveCmd.Flags().StringVar(&logFile, "log", "", "write logs to this file")

	checkCmd := &cobra.Command{
		Use:   "check [preset|file]",
		Short: "type-check a system and print its declarations",
		Args:  cobra.ExactArgs(1),
		RunE:  checkSystem,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [preset|file]",
		Short: "measure step throughput",
		Args:  cobra.ExactArgs(1),
		RunE:  benchSystem,
	}
	benchCmd.Flags().IntVar(&benchN, "steps", 100000, "steps per measurement")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&columns, "column", nil, "columns to plot (default: the first few)")
	plotCmd.Flags().IntVar(&maxPlots, "max", 6, "maximum number of plots")
	plotCmd.Flags().BoolVar(&asJSON, "json", false, "print the run as JSON instead")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in systems",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	exportCmd := &cobra.Command{
		Use:   "export [preset]",
		Short: "write a built-in system to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE:  exportPreset,
	}
	exportCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default <preset>.yaml)")

	rootCmd.AddCommand(runCmd, liveCmd, checkCmd, benchCmd, listCmd, plotCmd, presetsCmd, exportCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
