package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/antioch-orontes/kneecontrol/internal/actuator"
	"github.com/antioch-orontes/kneecontrol/internal/config"
	"github.com/antioch-orontes/kneecontrol/internal/gait"
	"github.com/antioch-orontes/kneecontrol/internal/knee"
	"github.com/antioch-orontes/kneecontrol/internal/loop"
	"github.com/antioch-orontes/kneecontrol/internal/metrics"
	"github.com/antioch-orontes/kneecontrol/internal/storage"
	"github.com/antioch-orontes/kneecontrol/internal/telemetry"
	"github.com/antioch-orontes/kneecontrol/internal/viz"
)

var log = logrus.WithFields(logrus.Fields{
	"pkg": "kneectl",
})

var (
	dataDir    string
	verbose    bool
	configFile string
	period     float64
	duration   float64
	seed       int64
	noise      float64
	slew       float64
	save       bool
	streamPath string
	channel    string
	width      int
	stateName  string
	numRuns    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kneectl",
		Short: "knee prosthesis impedance controller bench",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".kneectl", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every gait transition")

	runCmd := &cobra.Command{
		Use:   "run [profile]",
		Short: "run the controller against a synthetic gait",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runController,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&save, "save", true, "store the run under the data directory")
	runCmd.Flags().StringVar(&streamPath, "stream", "", "stream bus-clamped frames as csv to this file")

	batchCmd := &cobra.Command{
		Use:   "batch [profile]",
		Short: "run several seeds in parallel and summarise the metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBatch,
	}
	addRunFlags(batchCmd)
	batchCmd.Flags().IntVar(&numRuns, "runs", 8, "number of seeded runs")

	liveCmd := &cobra.Command{
		Use:   "live [profile]",
		Short: "run the controller with a live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a channel of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&channel, "channel", "angle", "angle|velocity|torque|measured|percent|duty|diff|sum|state")
	plotCmd.Flags().IntVar(&width, "width", 80, "plot width")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write a run's frames as csv to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	paramsCmd := &cobra.Command{
		Use:   "params",
		Short: "show the state parameter table and thresholds",
		RunE:  showParams,
	}
	paramsCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list config presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Printf("%-10s profile=%-8s duration=%gs\n", name, cfg.Gait.Profile, cfg.Loop.Duration)
			}
		},
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the default config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(args[0], config.DefaultConfig())
		},
	}

	stepCmd := &cobra.Command{
		Use:   "step angle velocity lc1 lc2",
		Short: "run one controller cycle",
		Args:  cobra.ExactArgs(4),
		RunE:  stepOnce,
	}
	stepCmd.Flags().StringVar(&stateName, "state", "idle", "state to step from")
	stepCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")

	rootCmd.AddCommand(runCmd, batchCmd, liveCmd, listCmd, plotCmd, exportCmd, exportCSVCmd,
		paramsCmd, presetsCmd, initCmd, stepCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().Float64Var(&period, "period", config.DefaultPeriod, "control period (s)")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration (s)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "noise seed")
	cmd.Flags().Float64Var(&noise, "noise", 0, "angle noise stddev (deg); load noise scales by 10")
	cmd.Flags().Float64Var(&slew, "slew", knee.DefaultMaxSlew, "max percent change per cycle (0 disables)")
}

// loadConfig starts from the config file or the defaults, applies the named
// preset or gait profile, then any flags set explicitly.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
	}

	if len(args) > 0 {
		if apply, ok := config.Presets[args[0]]; ok {
			apply(cfg)
		} else if _, err := gait.Lookup(args[0]); err == nil {
			cfg.Gait.Profile = args[0]
		} else {
			return nil, fmt.Errorf("unknown profile or preset: %s", args[0])
		}
	}

	flags := cmd.Flags()
	if flags.Changed("period") {
		cfg.Loop.Period = period
	}
	if flags.Changed("time") {
		cfg.Loop.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Loop.Seed = seed
	}
	if flags.Changed("noise") {
		cfg.Gait.Noise = gait.Noise{Angle: noise, Load: 10 * noise}
	}
	if flags.Changed("slew") {
		cfg.Controller.MaxSlew = slew
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildRunner assembles trace, driver, controller and metrics for one seed.
func buildRunner(cfg *config.Config, seed int64) (*loop.Runner, error) {
	profile, err := cfg.Profile()
	if err != nil {
		return nil, err
	}
	trace, err := gait.NewTrace(profile, cfg.Gait.Noise, seed)
	if err != nil {
		return nil, err
	}

	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	drv := actuator.NewDriver(cfg.Controller.PeakCurrent)
	ctrl, err := knee.NewController(append(opts, knee.WithActuator(drv))...)
	if err != nil {
		return nil, err
	}

	r := loop.New(trace, ctrl, drv)
	r.AddMetric(metrics.NewControlEffort())
	r.AddMetric(metrics.NewOccupancy())
	r.AddMetric(metrics.NewTransitions())
	r.AddMetric(metrics.NewSlew())
	r.AddMetric(metrics.NewTorqueTracking())
	r.AddMetric(metrics.NewSaturation(ctrl.Table()))
	return r, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runController(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	r, err := buildRunner(cfg, cfg.Loop.Seed)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log.WithFields(logrus.Fields{
		"profile":  cfg.Gait.Profile,
		"period":   cfg.Loop.Period,
		"duration": cfg.Loop.Duration,
		"seed":     cfg.Loop.Seed,
	}).Info("starting run")

	if streamPath != "" {
		out, err := os.Create(streamPath)
		if err != nil {
			return err
		}
		defer out.Close()
		csvSink := telemetry.NewCSVSink(out)
		defer csvSink.Flush()
		r.AddSink(telemetry.NewBusSink(csvSink))
	}

	start := time.Now()
	lc := cfg.LoopConfig()
	lc.Record = lc.Record || save
	result, err := r.Run(ctx, lc)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("profile: %s\n", cfg.Gait.Profile)
	fmt.Printf("cycles: %d (%.1f us/cycle)\n", result.Cycles, float64(elapsed.Microseconds())/float64(max(result.Cycles, 1)))
	fmt.Printf("transitions: %d\n", len(result.Transitions))
	fmt.Printf("final state: %s\n\n", r.Controller().State())
	printMetrics(os.Stdout, result.Metrics)

	if !save {
		return nil
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunMetadata{
		Profile:    cfg.Gait.Profile,
		Seed:       cfg.Loop.Seed,
		Period:     cfg.Loop.Period,
		Duration:   cfg.Loop.Duration,
		MaxSlew:    cfg.Controller.MaxSlew,
		Thresholds: cfg.Controller.Thresholds,
	}, result)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	fmt.Printf("\nsaved: %s\n", runID)
	return nil
}

func printMetrics(w io.Writer, m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%.6f\n", name, m[name])
	}
	tw.Flush()
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if numRuns < 1 {
		return fmt.Errorf("runs must be at least 1")
	}

	ctx, cancel := signalContext()
	defer cancel()

	lc := cfg.LoopConfig()
	lc.Record = false
	ens := loop.NewEnsemble(func(s int64) (*loop.Runner, error) {
		return buildRunner(cfg, s)
	}, numRuns, cfg.Loop.Seed)

	results, err := ens.Run(ctx, lc)
	if err != nil {
		return err
	}

	sums := make(map[string]float64)
	worst := make(map[string]float64)
	for _, res := range results {
		for name, v := range res.Metrics {
			sums[name] += v
			worst[name] = max(worst[name], v)
		}
	}

	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("profile: %s, runs: %d, seeds %d..%d\n\n", cfg.Gait.Profile, numRuns, cfg.Loop.Seed, cfg.Loop.Seed+int64(numRuns)-1)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tMAX")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%.6f\t%.6f\n", name, sums[name]/float64(len(results)), worst[name])
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	r, err := buildRunner(cfg, cfg.Loop.Seed)
	if err != nil {
		return err
	}

	// Debug logs would tear the alt screen.
	logrus.SetOutput(io.Discard)

	lc := cfg.LoopConfig()
	lc.Record = false
	sess, err := r.Start(lc)
	if err != nil {
		return err
	}
	defer sess.Stop()

	p := tea.NewProgram(viz.NewLive(sess, lc.Period, cfg.Gait.Profile), tea.WithAltScreen())
	_, err = p.Run()
	return err
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
	fmt.Fprintln(w, "ID\tPROFILE\tTIME\tDURATION\tPERIOD\tSEED\tTRANSITIONS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
			run.ID,
			run.Profile,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Period,
			run.Seed,
			len(run.Transitions),
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
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("profile: %s\n", meta.Profile)
	fmt.Printf("frames: %d\n\n", len(frames))

	var graph string
	if channel == "state" {
		graph, err = viz.PlotStates(frames, width)
	} else {
		graph, err = viz.Plot(frames, channel, width, 10)
	}
	if err != nil {
		return err
	}
	fmt.Println(graph)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if _, err := st.Load(args[0]); err != nil {
		return err
	}

	f, err := os.Open(st.FramesPath(args[0]))
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(os.Stdout, f)
	return err
}

func showParams(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return err
		}
	}
	table, err := cfg.Table()
	if err != nil {
		return err
	}

	fmt.Println(viz.Header("STATE TABLE"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATE\tK\tB\tEQ\tBOUND\tEXIT\tNEXT")
	for _, s := range knee.States {
		row := table.Row(s)
		fmt.Fprintf(w, "%d\t%s\t%g\t%g\t%g\t%g\t%s\t%s\n",
			s, s, row.Stiffness, row.Damping, row.Equilibrium, row.SaturationBound, row.Exit, row.Next)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	dt := cfg.Drivetrain
	fmt.Println()
	fmt.Println(viz.Header("DRIVETRAIN"))
	fmt.Printf("gear %g:1, Kt %g mNm/A, efficiency %g => %.4f Nm/A, peak %g A\n",
		dt.GearRatio, dt.TorqueConstant, dt.Efficiency, dt.NmPerAmp(), cfg.Controller.PeakCurrent)

	th := cfg.Controller.Thresholds
	fmt.Println()
	fmt.Println(viz.Header("THRESHOLDS (not enforced)"))
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "heelstrike\tsum %g\tangle [%g, %g]\n", th.HeelstrikeSum, th.HeelstrikeWindow.Min, th.HeelstrikeWindow.Max)
	fmt.Fprintf(w, "stance flex\tsum %g\tdiff %g\n", th.StanceFlexSum, th.StanceFlexDiff)
	fmt.Fprintf(w, "toe-off\tsum %g\tangle [%g, %g]\n", th.ToeOffSum, th.ToeOffWindow.Min, th.ToeOffWindow.Max)
	fmt.Fprintf(w, "swing flex\tsum %g\tdiff %g\n", th.SwingFlexSum, th.SwingFlexDiff)
	fmt.Fprintf(w, "swing ext\tsum %g\tdiff %g\n", th.SwingExtSum, th.SwingExtDiff)
	return w.Flush()
}

func stepOnce(cmd *cobra.Command, args []string) error {
	var v [4]float64
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("argument %d: %w", i+1, err)
		}
		v[i] = f
	}

	s, err := knee.ParseState(stateName)
	if err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if configFile != "" {
		if cfg, err = config.Load(configFile); err != nil {
			return err
		}
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	rec := actuator.NewRecorder()
	ctrl, err := knee.NewController(append(opts, knee.WithActuator(rec), knee.WithInitialState(s))...)
	if err != nil {
		return err
	}

	out := ctrl.StepRaw(v[0], v[1], v[2], v[3])

	fmt.Printf("state: %s -> %s\n", s, out.State)
	fmt.Printf("transitioned: %t\n", out.Transitioned)
	fmt.Printf("impedance: %.6f Nm\n", out.Impedance)
	fmt.Printf("current: %.6f A\n", ctrl.DesiredCurrent())
	fmt.Printf("percent: %.6f\n", out.Percent)
	if c, ok := rec.Last(); ok {
		fmt.Printf("command: %s %.6f\n", c.Direction, c.Magnitude)
	} else {
		fmt.Println("command: none")
	}
	return nil
}
