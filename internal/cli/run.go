package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"vistora/internal/observability"
	"vistora/internal/runner"
	"vistora/internal/serial"
)

type runFlags struct {
	output      string
	outputDir   string
	runner      string
	quality     string
	detector    string
	restorer    string
	refiner     string
	hint        int
	options     []string
	optionsJSON string
	interval    time.Duration
	json        bool
	binary      string
}

func newRunCmd() *cobra.Command {
	rf := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run <input>",
		Short: "Run one local restoration serially (no queue, no credits)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocal(cmd, args[0], rf)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&rf.output, "output", "o", "", "Output file path; a directory or empty picks a default name")
	f.StringVar(&rf.outputDir, "output-dir", "outputs", "Directory for default output names")
	f.StringVar(&rf.runner, "runner", "auto", "Runner: auto|simulated|external (aliases dry-run, lada-cli)")
	f.StringVar(&rf.quality, "quality", "ultra", "Quality tier: balanced|high|ultra")
	f.StringVar(&rf.detector, "detector", "", "Detector model id override")
	f.StringVar(&rf.restorer, "restorer", "", "Restorer model id override")
	f.StringVar(&rf.refiner, "refiner", "", "Refiner model id override (empty disables refinement)")
	f.IntVar(&rf.hint, "duration-hint-seconds", 0, "Duration hint for progress and ETA")
	f.StringArrayVar(&rf.options, "option", nil, "Extra runner option KEY=VALUE, can repeat")
	f.StringVar(&rf.optionsJSON, "options-json", "{}", "Extra runner options as a JSON object")
	f.DurationVar(&rf.interval, "progress-interval", 200*time.Millisecond, "Progress refresh interval")
	f.BoolVar(&rf.json, "json", false, "Print the result as JSON")
	f.StringVar(&rf.binary, "lada-binary", runner.DefaultExternalBinary, "External restoration binary")
	return cmd
}

func runLocal(cmd *cobra.Command, input string, rf *runFlags) error {
	opts, err := parseOptions(rf.options, rf.optionsJSON)
	if err != nil {
		return err
	}
	log, err := observability.NewLogger(os.Getenv("VISTORA_LOG_LEVEL"), "console", cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ext := runner.NewExternal(rf.binary)
	ext.Log = log
	r := serial.New(runner.NewSelector(runner.NewSimulated(), ext), log)

	req := serial.Request{
		InputPath:           input,
		OutputPath:          rf.output,
		OutputDir:           rf.outputDir,
		Runner:              rf.runner,
		QualityTier:         rf.quality,
		Detector:            rf.detector,
		Restorer:            rf.restorer,
		DurationHintSeconds: rf.hint,
		Options:             opts,
	}
	if cmd.Flags().Changed("refiner") {
		req.Refiner = &rf.refiner
	}
	pp := serial.NewProgressPrinter(cmd.ErrOrStderr(), rf.interval)
	res, err := r.Run(cmd.Context(), req, pp.Update)
	pp.Done()
	if err != nil {
		return err
	}
	if rf.json {
		return printJSON(cmd.OutOrStdout(), res)
	}
	printRunHuman(cmd.OutOrStdout(), res)
	return nil
}

func printRunHuman(w io.Writer, res serial.Result) {
	refiner := res.RefinerModel
	if refiner == "" {
		refiner = "-"
	}
	fmt.Fprintln(w, "Run complete")
	fmt.Fprintf(w, "  input:   %s\n", res.InputPath)
	fmt.Fprintf(w, "  output:  %s\n", res.OutputPath)
	fmt.Fprintf(w, "  runner:  %s\n", res.Runner)
	fmt.Fprintf(w, "  quality: %s\n", res.QualityTier)
	fmt.Fprintf(w, "  models:  %s | %s | %s\n", res.DetectorModel, res.RestorerModel, refiner)
	fmt.Fprintf(w, "  elapsed: %s (%.2fs)\n", serial.FormatDuration(res.Elapsed), res.ElapsedSeconds)
	if res.AvgFPS > 0 {
		fmt.Fprintf(w, "  avg fps: %.2f\n", res.AvgFPS)
	}
	if res.TotalFrames > 0 {
		fmt.Fprintf(w, "  frames:  %d\n", res.TotalFrames)
	}
}
