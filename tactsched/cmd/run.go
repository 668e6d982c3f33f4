package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/tactsched/config"
	"github.com/sarchlab/tactsched/datarecording"
	"github.com/sarchlab/tactsched/input"
	"github.com/sarchlab/tactsched/logging"
	"github.com/sarchlab/tactsched/monitoring"
	"github.com/sarchlab/tactsched/render"
	"github.com/sarchlab/tactsched/sim/hooking"
	"github.com/sarchlab/tactsched/sim/scheduler"
	"github.com/sarchlab/tactsched/sim/task"
	"github.com/sarchlab/tactsched/tracing"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler until every task has finished",
	Long: `Run reads tasks from a file, generates them, or asks for them ` +
		`interactively, then prints the board after every tact.`,
	Args: cobra.NoArgs,
	RunE: runSimulation,
}

func init() {
	f := runCmd.Flags()
	f.String("tasks", "", `task file, one "id duration" per line ("-" for stdin)`)
	f.Int("generate", 0, "generate this many random tasks")
	f.Bool("interactive", false, "ask for tasks and settings")
	f.Int("stack-capacity", config.AsManyAsTasks, "stack capacity (-1: number of tasks)")
	f.Int("queue-capacity", config.AsManyAsTasks, "queue capacity (-1: number of tasks)")
	f.Bool("step", false, "wait for Enter after every tact")
	f.Uint64("max-tacts", 0, "give up after this many tacts (0: no limit)")
	f.Int64("seed", 1, "random seed for generated tasks")
	f.Bool("record", false, "record every tact into a SQLite database")
	f.String("record-path", "", "database name without the .sqlite3 suffix")
	f.Bool("monitor", false, "serve the board over HTTP")
	f.Int("monitor-port", 0, "monitor port (0: any free port)")
	f.Bool("open-browser", false, "open the monitor in a browser")
	f.String("otel-trace", "", "write one OpenTelemetry span per task to this file")

	runCmd.MarkFlagsMutuallyExclusive("tasks", "generate", "interactive")

	rootCmd.AddCommand(runCmd)
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)

	prompter := input.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

	tasks, err := loadTasks(cmd, prompter, &cfg)
	if err != nil {
		return err
	}

	s := scheduler.New(cfg.Capacities(len(tasks)))
	s.Submit(tasks...)

	logger.Info("starting",
		"tasks", len(tasks),
		"stack_capacity", s.Stack().Capacity(),
		"queue_capacity", s.Queue().Capacity())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	r := &runner{
		scheduler:   s,
		out:         cmd.OutOrStdout(),
		board:       render.NewBoard(cmd.OutOrStdout()),
		utilization: tracing.NewUtilizationTracer(),
		maxTacts:    cfg.MaxTacts,
	}

	hooks := []hooking.Hook{tracing.NewLogTracer(logger), r.utilization}

	if cfg.Record.Enabled {
		rec, err := datarecording.New(cfg.Record.Path)
		if err != nil {
			return err
		}
		defer closeRecorder(rec, logger)

		hooks = append(hooks, rec)
	}

	if cfg.Trace.OTelFile != "" {
		ot, shutdown, err := openOTelTracer(cfg.Trace.OTelFile)
		if err != nil {
			return err
		}
		defer shutdown(logger)

		hooks = append(hooks, ot)
	}

	var mon *monitoring.Monitor
	if cfg.Monitor.Enabled {
		mon = monitoring.NewMonitor().
			WithPortNumber(cfg.Monitor.Port).
			WithLogger(logger)
		mon.Publish(s.Report())

		hooks = append(hooks, mon)
	}

	tracing.Attach(s, hooks...)

	if cfg.StepMode {
		r.waitForNext = stdinTrigger(prompter)
		if mon != nil {
			r.waitForNext = mon.WaitForContinue
		}
	}

	return serve(ctx, r, mon, cfg.Monitor.OpenBrowser, logger)
}

// serve runs the simulation loop and, when given, the monitor. The monitor
// stops once the loop has returned.
func serve(
	ctx context.Context,
	r *runner,
	mon *monitoring.Monitor,
	openBrowser bool,
	logger *slog.Logger,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if mon != nil {
		url, wait, err := mon.StartServer(ctx)
		if err != nil {
			return err
		}

		g.Go(wait)

		if openBrowser {
			if err := browser.OpenURL(url); err != nil {
				logger.Warn("cannot open browser", "url", url, "error", err)
			}
		}
	}

	g.Go(func() error {
		defer cancel()
		return r.run(ctx)
	})

	return g.Wait()
}

func loadConfig(flags *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()

	path, err := flags.GetString("config")
	if err != nil {
		return cfg, err
	}

	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return cfg, err
		}
	}

	if err := cfg.LoadEnv(".env"); err != nil {
		return cfg, err
	}

	if err := applyFlags(flags, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// applyFlags overrides cfg with the flags given on the command line.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var err error

	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}

		switch f.Name {
		case "stack-capacity":
			cfg.StackCapacity, err = flags.GetInt(f.Name)
		case "queue-capacity":
			cfg.QueueCapacity, err = flags.GetInt(f.Name)
		case "step":
			cfg.StepMode, err = flags.GetBool(f.Name)
		case "max-tacts":
			cfg.MaxTacts, err = flags.GetUint64(f.Name)
		case "seed":
			cfg.Seed, err = flags.GetInt64(f.Name)
		case "log-level":
			cfg.Log.Level = f.Value.String()
		case "log-format":
			cfg.Log.Format = f.Value.String()
		case "record":
			cfg.Record.Enabled, err = flags.GetBool(f.Name)
		case "record-path":
			cfg.Record.Path = f.Value.String()
			cfg.Record.Enabled = true
		case "monitor":
			cfg.Monitor.Enabled, err = flags.GetBool(f.Name)
		case "monitor-port":
			cfg.Monitor.Port, err = flags.GetInt(f.Name)
		case "open-browser":
			cfg.Monitor.OpenBrowser, err = flags.GetBool(f.Name)
			cfg.Monitor.Enabled = cfg.Monitor.Enabled || cfg.Monitor.OpenBrowser
		case "otel-trace":
			cfg.Trace.OTelFile = f.Value.String()
		}
	})

	return err
}

// loadTasks picks the task source. An interactive session also decides the
// capacities and the step mode.
func loadTasks(
	cmd *cobra.Command,
	prompter *input.Prompter,
	cfg *config.Config,
) ([]task.Task, error) {
	flags := cmd.Flags()
	gen := task.NewGenerator(cfg.Seed)

	if interactive, _ := flags.GetBool("interactive"); interactive {
		session, err := prompter.Interactive(gen)
		if err != nil {
			return nil, err
		}

		cfg.StackCapacity = session.StackCapacity
		cfg.QueueCapacity = session.QueueCapacity
		cfg.StepMode = session.StepMode

		return session.Tasks, nil
	}

	if n, _ := flags.GetInt("generate"); n > 0 {
		return gen.Generate(n), nil
	}

	path, _ := flags.GetString("tasks")

	switch path {
	case "":
		return nil, fmt.Errorf("no tasks: use --tasks, --generate or --interactive")
	case "-":
		return input.ParseTasks(prompter)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tasks, err := input.ParseTasks(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return tasks, nil
}

// stdinTrigger waits for a line on the prompter's input. Once the input is
// exhausted the run continues without pausing.
func stdinTrigger(prompter *input.Prompter) func(context.Context) error {
	exhausted := false

	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil || exhausted {
			return err
		}

		_, err := prompter.ReadLine()
		if errors.Is(err, io.EOF) {
			exhausted = true
			return nil
		}

		return err
	}
}

func closeRecorder(rec *datarecording.Recorder, logger *slog.Logger) {
	if err := rec.Close(); err != nil {
		logger.Error("closing recording", "error", err)
		return
	}

	logger.Info("recording written", "path", rec.Path())
}

func openOTelTracer(path string) (*tracing.OTelTracer, func(*slog.Logger), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}

	tp, err := tracing.NewStdoutTracerProvider(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	ot := tracing.NewOTelTracer(tp)

	shutdown := func(logger *slog.Logger) {
		if open := ot.Open(); open > 0 {
			logger.Warn("closing unfinished task spans", "count", open)
		}

		ot.Close()

		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error("shutting down tracer provider", "error", err)
		}

		if err := f.Close(); err != nil {
			logger.Error("closing trace file", "error", err)
		}
	}

	return ot, shutdown, nil
}
