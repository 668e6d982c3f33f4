package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"

	"github.com/sarchlab/tactsched/config"
	"github.com/sarchlab/tactsched/input"
	"github.com/sarchlab/tactsched/render"
	"github.com/sarchlab/tactsched/sim/scheduler"
	"github.com/sarchlab/tactsched/sim/task"
	"github.com/sarchlab/tactsched/tracing"
)

func newRunner(s *scheduler.Scheduler, out *bytes.Buffer) *runner {
	r := &runner{
		scheduler:   s,
		out:         out,
		board:       render.NewBoard(out),
		utilization: tracing.NewUtilizationTracer(),
	}

	tracing.Attach(s, r.utilization)

	return r
}

func mustTask(id string, duration uint64) task.Task {
	t, err := task.New(id, duration)
	Expect(err).NotTo(HaveOccurred())

	return t
}

var _ = Describe("runner", func() {
	var (
		out *bytes.Buffer
		s   *scheduler.Scheduler
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		s = scheduler.New(1, 1)
	})

	It("should print every tact and a summary", func() {
		s.Submit(mustTask("A", 1), mustTask("B", 1))

		err := newRunner(s, out).run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("Tact 0\n"))
		Expect(out.String()).To(ContainSubstring("Tact 7\n"))
		Expect(out.String()).NotTo(ContainSubstring("Tact 8\n"))
		Expect(out.String()).To(ContainSubstring("All 2 tasks finished after 7 tacts"))
		Expect(out.String()).To(ContainSubstring("P1: busy"))
	})

	It("should wait between tacts but not after the last one", func() {
		s.Submit(mustTask("A", 1), mustTask("B", 1))
		waits := 0

		r := newRunner(s, out)
		r.waitForNext = func(context.Context) error {
			waits++
			return nil
		}

		Expect(r.run(context.Background())).To(Succeed())
		Expect(waits).To(Equal(6))
	})

	It("should stop at the tact limit", func() {
		s = scheduler.New(0, 1)
		s.Submit(mustTask("A", 1))

		r := newRunner(s, out)
		r.maxTacts = 5

		err := r.run(context.Background())

		Expect(err).To(MatchError(ErrTactLimit))
		Expect(err.Error()).To(ContainSubstring("after 5 tacts"))
		Expect(err.Error()).To(ContainSubstring("backlog [{A, 1}]"))
		Expect(s.Tact()).To(Equal(uint64(5)))
	})

	It("should stop when the context is cancelled", func() {
		s.Submit(mustTask("A", 1))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := newRunner(s, out).run(ctx)

		Expect(err).To(MatchError(context.Canceled))
		Expect(s.Tact()).To(BeZero())
	})
})

var _ = Describe("stdinTrigger", func() {
	It("should consume one line per wait and stop pausing at EOF", func() {
		in := strings.NewReader("\n\n")
		wait := stdinTrigger(input.NewPrompter(in, &bytes.Buffer{}))

		Expect(wait(context.Background())).To(Succeed())
		Expect(wait(context.Background())).To(Succeed())
		Expect(in.Len()).To(BeZero())
		Expect(wait(context.Background())).To(Succeed())
		Expect(wait(context.Background())).To(Succeed())
	})

	It("should return the context error", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		wait := stdinTrigger(input.NewPrompter(strings.NewReader("\n"), &bytes.Buffer{}))

		Expect(wait(ctx)).To(MatchError(context.Canceled))
	})
})

var _ = Describe("loadConfig", func() {
	var flags *pflag.FlagSet

	BeforeEach(func() {
		flags = pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("config", "", "")
		flags.Int("stack-capacity", config.AsManyAsTasks, "")
		flags.Int("queue-capacity", config.AsManyAsTasks, "")
		flags.Bool("step", false, "")
		flags.String("record-path", "", "")
		flags.Bool("open-browser", false, "")
		flags.String("log-format", "", "")
	})

	It("should use the defaults when no flag is given", func() {
		Expect(flags.Parse(nil)).To(Succeed())

		cfg, err := loadConfig(flags)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.StackCapacity).To(Equal(config.AsManyAsTasks))
		Expect(cfg.StepMode).To(BeFalse())
	})

	It("should let flags override the config file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "run.yaml")
		Expect(os.WriteFile(path,
			[]byte("stack_capacity: 4\nqueue_capacity: 6\n"), 0o600)).To(Succeed())

		Expect(flags.Parse([]string{
			"--config", path,
			"--queue-capacity", "2",
			"--step",
			"--record-path", "run1",
			"--open-browser",
		})).To(Succeed())

		cfg, err := loadConfig(flags)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.StackCapacity).To(Equal(4))
		Expect(cfg.QueueCapacity).To(Equal(2))
		Expect(cfg.StepMode).To(BeTrue())
		Expect(cfg.Record.Enabled).To(BeTrue())
		Expect(cfg.Record.Path).To(Equal("run1"))
		Expect(cfg.Monitor.Enabled).To(BeTrue())
		Expect(cfg.Monitor.OpenBrowser).To(BeTrue())
	})

	It("should reject invalid settings", func() {
		Expect(flags.Parse([]string{"--log-format", "xml"})).To(Succeed())

		_, err := loadConfig(flags)

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("commands", func() {
	var out *bytes.Buffer

	BeforeEach(func() {
		out = &bytes.Buffer{}
		rootCmd.SetOut(out)
		rootCmd.SetErr(&bytes.Buffer{})
		DeferCleanup(func() {
			rootCmd.SetOut(nil)
			rootCmd.SetErr(nil)
			rootCmd.SetArgs(nil)
		})
	})

	It("should generate a task file that run can read", func() {
		rootCmd.SetArgs([]string{"generate", "4", "--seed", "7"})
		Expect(rootCmd.Execute()).To(Succeed())

		tasks, err := input.ParseTasks(strings.NewReader(out.String()))
		Expect(err).NotTo(HaveOccurred())
		Expect(tasks).To(HaveLen(4))

		path := filepath.Join(GinkgoT().TempDir(), "tasks.txt")
		Expect(os.WriteFile(path, out.Bytes(), 0o600)).To(Succeed())
		out.Reset()

		rootCmd.SetArgs([]string{"run", "--tasks", path,
			"--stack-capacity", "1", "--queue-capacity", "1",
			"--log-level", "error"})
		Expect(rootCmd.Execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("All 4 tasks finished"))
	})
})
