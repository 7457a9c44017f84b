// Command covfuzz is the coverage-guided in-process fuzzer described in
// SPEC_FULL.md: a root command with `fuzz` and `show` subcommands,
// grounded on the teacher's cmd/fluxfuzzer/main.go cobra setup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/covfuzz/covfuzz/internal/config"
	"github.com/covfuzz/covfuzz/internal/crashdir"
	"github.com/covfuzz/covfuzz/internal/metrics"
	"github.com/covfuzz/covfuzz/internal/mutator"
	"github.com/covfuzz/covfuzz/internal/orchestrator"
	"github.com/covfuzz/covfuzz/internal/report"
	"github.com/covfuzz/covfuzz/internal/target"
	"github.com/covfuzz/covfuzz/internal/telemetry"
	"github.com/covfuzz/covfuzz/internal/tui"
	"github.com/covfuzz/covfuzz/internal/webui"
	"github.com/covfuzz/covfuzz/internal/worker"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	// A worker subprocess is this same binary, re-exec'd with a marker
	// environment variable (SPEC_FULL.md §9); intercept that before
	// cobra ever parses argv, since the child inherits the parent's
	// flags verbatim and is not meant to process them as a CLI.
	if os.Getenv(orchestrator.WorkerModeEnv) != "" {
		os.Exit(runWorker())
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitInternalError)
	}
}

const (
	exitNoCrash       = 0
	exitCrashFound    = 1
	exitBadInvocation = 2
	exitInternalError = 3
)

// runWorker is the entrypoint a re-exec'd worker subprocess jumps
// straight into, reading its init payload and broadcast stream off fd
// 3 and writing reports to fd 4 (the two ExtraFiles a spawning
// orchestrator.pool passes to exec.Cmd).
func runWorker() int {
	broadcastIn := os.NewFile(3, "covfuzz-broadcast")
	reportOut := os.NewFile(4, "covfuzz-report")
	if broadcastIn == nil || reportOut == nil {
		fmt.Fprintln(os.Stderr, "covfuzz: worker mode requires fds 3 and 4")
		return exitInternalError
	}

	log := telemetry.New(telemetry.Config{Format: telemetry.FormatText, Level: "info", Output: os.Stderr})
	if err := worker.Run(worker.Channels{BroadcastIn: broadcastIn, ReportOut: reportOut}, log); err != nil {
		log.Error().Err(err).Msg("worker exited")
		return exitInternalError
	}
	return exitNoCrash
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "covfuzz",
		Short:   "A coverage-guided, in-process fuzzer",
		Version: version,
	}

	root.AddCommand(newFuzzCmd(), newShowCmd())
	return root
}

// flagSet mirrors SPEC_FULL.md §6's fuzz-subcommand flag surface plus
// its supplemental flags, bound directly into config.Config by the
// cobra command's RunE.
type flagSet struct {
	crashDir string

	state              string
	numWorkers         int
	maxTime            time.Duration
	maxCrashes         int
	statFrequency      time.Duration
	closeStdout        bool
	closeStderr        bool
	regression         bool
	startMethod        string
	watchSeedDir       bool

	targetName    string
	targetPlugin  string
	configPath    string
	dictFile      string
	dictBuiltin   bool
	checkpointInt time.Duration
	webAddr       string
	tuiMode       bool
	metricsAddr   string
	logFormat     string
	logLevel      string
}

func newFuzzCmd() *cobra.Command {
	var f flagSet

	cmd := &cobra.Command{
		Use:   "fuzz SEED_DIR",
		Short: "Run the coverage-guided fuzzing loop against a registered target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFuzzWithCmd(args[0], f, cmd)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.StringVar(&f.crashDir, "crash-dir", "./crashes", "directory recorded crashing inputs are written to")
	flags.StringVar(&f.state, "state", "", "session state file; empty disables persistence")
	flags.IntVar(&f.numWorkers, "num-workers", 0, "number of worker subprocesses (default: CPU count)")
	flags.DurationVar(&f.maxTime, "max-time", 0, "optional global wall-clock timeout")
	flags.IntVar(&f.maxCrashes, "max-crashes", 0, "stop after this many distinct crashes (0 = unbounded)")
	flags.DurationVar(&f.statFrequency, "stat-frequency", 0, "progress reporting period (default 3s)")
	flags.BoolVar(&f.closeStdout, "close-stdout", false, "workers close stdout before invoking the target")
	flags.BoolVar(&f.closeStderr, "close-stderr", false, "workers close stderr before invoking the target")
	flags.BoolVar(&f.regression, "regression", false, "replay the crash directory against the current target build instead of fuzzing")
	flags.StringVar(&f.startMethod, "start-method", "", "spawn|forkserver (default: spawn)")
	flags.BoolVar(&f.watchSeedDir, "watch-seed-dir", false, "watch SEED_DIR for new files and absorb them mid-run")

	flags.StringVar(&f.targetName, "target", "", "registered target name (default: the sole registered target)")
	flags.StringVar(&f.targetPlugin, "target-plugin", "", "path to a Go plugin exposing Fuzz(data []byte) error")
	flags.StringVar(&f.configPath, "config", "", "YAML config file supplying defaults for any flag above")
	flags.StringVar(&f.dictFile, "dict-file", "", "newline-delimited dictionary file for the dictionary-insert mutation")
	flags.BoolVar(&f.dictBuiltin, "dict-builtin", false, "use the built-in injection-payload dictionary")
	flags.DurationVar(&f.checkpointInt, "checkpoint-interval", 0, "state checkpoint period (default 10s); meaningful only with --state")
	flags.StringVar(&f.webAddr, "web", "", "serve a live JSON/WebSocket dashboard on ADDR")
	flags.BoolVar(&f.tuiMode, "tui", false, "render a full-screen terminal dashboard")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus-format metrics on ADDR")
	flags.StringVar(&f.logFormat, "log-format", "", "text|json (default text)")
	flags.StringVar(&f.logLevel, "log-level", "", "debug|info|warn|error (default info)")

	return cmd
}

func newShowCmd() *cobra.Command {
	var crashDir string
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print each recorded crash's path and truncated payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(crashDir, format)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&crashDir, "crash-dir", "./crashes", "crash directory to read")
	cmd.Flags().StringVar(&format, "format", "text", "text|json")
	return cmd
}

// resolveConfig applies SPEC_FULL.md §10's precedence: defaults, then
// --config, then explicit CLI flags (cobra's Changed tracks which
// flags the user actually set, so an unset flag never clobbers a
// config-file value with its zero default).
func resolveConfig(seedDir string, f flagSet, flags *pflagLookup) (*config.Config, error) {
	cfg := config.Default()

	if f.configPath != "" {
		merged, err := config.LoadFile(f.configPath, cfg)
		if err != nil {
			return nil, err
		}
		cfg = merged
	}

	cfg.SeedDir = seedDir
	if flags.changed("crash-dir") {
		cfg.CrashDir = f.crashDir
	}
	if flags.changed("state") {
		cfg.State.Path = f.state
	}
	if flags.changed("checkpoint-interval") {
		cfg.State.CheckpointInterval = f.checkpointInt
	}
	if cfg.State.CheckpointInterval == 0 {
		cfg.State.CheckpointInterval = 10 * time.Second
	}
	if f.regression {
		cfg.State.LoadCrashesAsSeeds = true
	}

	if flags.changed("num-workers") {
		cfg.Engine.NumWorkers = f.numWorkers
	}
	if flags.changed("max-time") {
		cfg.Engine.MaxTime = f.maxTime
	}
	if flags.changed("max-crashes") {
		cfg.Engine.MaxCrashes = f.maxCrashes
	}
	if flags.changed("stat-frequency") {
		cfg.Engine.StatFrequency = f.statFrequency
	}
	if cfg.Engine.StatFrequency == 0 {
		cfg.Engine.StatFrequency = 3 * time.Second
	}
	if flags.changed("close-stdout") {
		cfg.Engine.CloseStdout = f.closeStdout
	}
	if flags.changed("close-stderr") {
		cfg.Engine.CloseStderr = f.closeStderr
	}
	if flags.changed("start-method") {
		cfg.Engine.StartMethod = f.startMethod
	}
	if cfg.Engine.StartMethod == "" {
		cfg.Engine.StartMethod = "spawn"
	}
	if flags.changed("watch-seed-dir") {
		cfg.Engine.WatchSeedDir = f.watchSeedDir
	}

	if flags.changed("target") {
		cfg.Target.Name = f.targetName
	}
	if flags.changed("dict-file") {
		cfg.Target.DictFile = f.dictFile
	}
	if flags.changed("dict-builtin") {
		cfg.Target.DictBuiltin = f.dictBuiltin
	}
	if flags.changed("target-plugin") {
		cfg.Target.PluginPath = f.targetPlugin
	}

	if flags.changed("web") {
		cfg.Output.WebAddr = f.webAddr
	}
	if flags.changed("tui") {
		cfg.Output.TUI = f.tuiMode
	}
	if flags.changed("metrics-addr") {
		cfg.Output.MetricsAddr = f.metricsAddr
	}

	if flags.changed("log-format") {
		cfg.Logging.Format = f.logFormat
	}
	if flags.changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// pflagLookup wraps cobra's flag-changed tracking so resolveConfig
// above reads cleanly without threading *cobra.Command through it.
type pflagLookup struct {
	cmd *cobra.Command
}

func (p *pflagLookup) changed(name string) bool {
	fl := p.cmd.Flags().Lookup(name)
	return fl != nil && fl.Changed
}

func runFuzzWithCmd(seedDir string, f flagSet, cmd *cobra.Command) error {
	cfg, err := resolveConfig(seedDir, f, &pflagLookup{cmd: cmd})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitBadInvocation)
	}

	log := telemetry.New(telemetry.Config{
		Format: telemetry.Format(cfg.Logging.Format),
		Level:  cfg.Logging.Level,
		Output: os.Stderr,
	})

	if cfg.Target.PluginPath != "" {
		name := cfg.Target.Name
		if name == "" {
			name = "plugin"
		}
		if err := target.LoadPlugin(name, cfg.Target.PluginPath); err != nil {
			return err
		}
		cfg.Target.Name = name
	}

	targetName := cfg.Target.Name
	if targetName == "" {
		name, _, err := target.Default()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitBadInvocation)
		}
		targetName = name
	} else if _, ok := target.Get(targetName); !ok {
		fmt.Fprintf(os.Stderr, "covfuzz: unknown target %q (registered: %v)\n", targetName, target.Names())
		os.Exit(exitBadInvocation)
	}

	if f.regression {
		return runRegression(cfg, targetName, log)
	}

	dictTokens, err := loadDictionary(cfg)
	if err != nil {
		return err
	}

	orchCfg := orchestrator.Config{
		SeedDir:            cfg.SeedDir,
		StatePath:          cfg.State.Path,
		CrashDirPath:       cfg.CrashDir,
		NumWorkers:         cfg.Engine.NumWorkers,
		MaxTime:            cfg.Engine.MaxTime,
		MaxCrashes:         cfg.Engine.MaxCrashes,
		StatFrequency:      cfg.Engine.StatFrequency,
		CheckpointInterval: cfg.State.CheckpointInterval,
		CloseStdout:        cfg.Engine.CloseStdout,
		CloseStderr:        cfg.Engine.CloseStderr,
		StartMethod:        orchestrator.StartMethod(cfg.Engine.StartMethod),
		TargetName:         targetName,
		DictTokens:         dictTokens,
		LoadCrashesAsSeeds: cfg.State.LoadCrashesAsSeeds,
		WatchSeedDir:       cfg.Engine.WatchSeedDir,
	}

	orch, err := orchestrator.New(orchCfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitBadInvocation)
	}

	stop := wireFrontends(orch, cfg, log)
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("received shutdown signal, draining")
		orch.Stop()
	}()

	crashFound, err := orch.Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitInternalError)
	}
	if crashFound {
		os.Exit(exitCrashFound)
	}
	return nil
}

func loadDictionary(cfg *config.Config) ([][]byte, error) {
	var tokens [][]byte
	if cfg.Target.DictBuiltin {
		tokens = append(tokens, mutator.BuiltinDictionary()...)
	}
	if cfg.Target.DictFile != "" {
		data, err := os.ReadFile(cfg.Target.DictFile)
		if err != nil {
			return nil, fmt.Errorf("read dictionary file: %w", err)
		}
		for _, line := range splitLines(data) {
			if len(line) > 0 {
				tokens = append(tokens, line)
			}
		}
	}
	return tokens, nil
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			line := data[start:i]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			lines = append(lines, line)
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}

// wireFrontends starts whichever of the optional web dashboard, TUI,
// and Prometheus metrics endpoint the config requests, registering
// orch.OnStats to feed all of them from one callback. It returns a
// cleanup func to call once the run completes.
func wireFrontends(orch *orchestrator.Orchestrator, cfg *config.Config, log zerolog.Logger) func() {
	var cleanups []func()

	var webSrv *webui.Server
	if cfg.Output.WebAddr != "" {
		dir, err := crashdir.Open(cfg.CrashDir)
		if err != nil {
			log.Warn().Err(err).Msg("webui: failed to open crash directory, dashboard crash list will be empty")
		}
		webSrv = webui.NewServer(dir, log)
		go func() {
			if err := webSrv.Start(cfg.Output.WebAddr); err != nil {
				log.Error().Err(err).Msg("webui: server stopped")
			}
		}()
		cleanups = append(cleanups, func() { webSrv.Stop() })
	}

	var collector *metrics.Collector
	var tracker = metrics.NewDeltaTracker()
	if cfg.Output.MetricsAddr != "" {
		collector = metrics.New()
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			if err := collector.Serve(ctx, cfg.Output.MetricsAddr); err != nil {
				log.Error().Err(err).Msg("metrics: server stopped")
			}
		}()
		cleanups = append(cleanups, cancel)
	}

	var dash *tui.Dashboard
	var statsCh chan report.Stats
	var logCh chan tui.LogEntry
	if cfg.Output.TUI {
		statsCh = make(chan report.Stats, 8)
		logCh = make(chan tui.LogEntry, 8)
		dash = tui.New(cfg.Target.Name, cfg.Engine.MaxTime, statsCh, logCh)
		go func() {
			if err := tui.Run(dash); err != nil {
				log.Error().Err(err).Msg("tui: dashboard exited")
			}
		}()
	}

	orch.OnStats(func(s orchestrator.Stats) {
		rs := report.Stats{
			Executions:    uint64(s.Executions),
			UniqueEdges:   s.EdgesKnown,
			CorpusSize:    s.CorpusSize,
			CrashCount:    uint64(s.CrashesFound),
			ActiveWorkers: s.WorkersAlive,
			Uptime:        time.Since(s.StartedAt),
		}
		if webSrv != nil {
			webSrv.PushStats(rs)
		}
		if collector != nil {
			collector.Update(metrics.Sample{
				Executions:    rs.Executions,
				UniqueEdges:   rs.UniqueEdges,
				CorpusSize:    rs.CorpusSize,
				CrashCount:    rs.CrashCount,
				ActiveWorkers: rs.ActiveWorkers,
			}, tracker)
		}
		if statsCh != nil {
			select {
			case statsCh <- rs:
			default:
			}
		}
	})

	if webSrv != nil {
		orch.OnCrash(func(hash, errorText string) {
			webSrv.PushCrash(hash, errorText)
		})
	}

	return func() {
		for _, c := range cleanups {
			c()
		}
	}
}

func runRegression(cfg *config.Config, targetName string, log zerolog.Logger) error {
	results, err := orchestrator.Regression(cfg.CrashDir, targetName, cfg.Engine.NumWorkers, log)
	if err != nil {
		return err
	}

	stillFailing := 0
	for _, r := range results {
		if r.StillFails {
			stillFailing++
			fmt.Printf("%s  STILL FAILS  %s\n", r.Hash, r.ErrorText)
		} else {
			fmt.Printf("%s  fixed\n", r.Hash)
		}
	}
	fmt.Printf("regression: %d/%d crashes still reproduce\n", stillFailing, len(results))
	if stillFailing > 0 {
		os.Exit(exitCrashFound)
	}
	return nil
}

func runShow(crashDirPath, format string) error {
	dir, err := crashdir.Open(crashDirPath)
	if err != nil {
		return err
	}
	entries, err := dir.List()
	if err != nil {
		return err
	}

	rep := report.NewReport(crashDirPath)
	rep.Stats.CrashCount = uint64(len(entries))
	for _, e := range entries {
		rep.Crashes = append(rep.Crashes, report.CrashSummary{
			Hash:        e.Hash,
			Size:        len(e.Sample),
			ErrorText:   e.ErrorText,
			PayloadPeek: report.Peek(e.Sample),
		})
	}

	mgr := report.NewManager(os.TempDir())
	return mgr.WriteToWriter(rep, format, os.Stdout)
}
