package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"git.sr.ht/~mariusor/lw"
	"github.com/go-ap/errors"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli"
	"golang.org/x/sync/semaphore"
)

var ScheduleCmd = cli.Command{
	Name:  "schedule",
	Usage: "Runs sync passes on a cron schedule; SIGHUP triggers an immediate pass",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "cron",
			Usage: "Cron spec for passes (default: */15 * * * *)",
		},
		&cli.BoolFlag{
			Name:  "now",
			Usage: "Run a pass immediately on start",
		},
	},
	Action: runSchedule,
}

// scheduler runs passes one at a time. A trigger arriving while a pass is
// in progress is dropped.
type scheduler struct {
	sem    *semaphore.Weighted
	run    func(context.Context) error
	logger logger
}

func newScheduler(run func(context.Context) error, logger logger) *scheduler {
	return &scheduler{sem: semaphore.NewWeighted(1), run: run, logger: logger}
}

// trigger runs a pass unless one is already running. It reports whether a
// pass was started.
func (s *scheduler) trigger(ctx context.Context) bool {
	if !s.sem.TryAcquire(1) {
		s.logger.Warnf("Previous pass still running, skipping this one")
		return false
	}
	defer s.sem.Release(1)
	if err := s.run(ctx); err != nil {
		s.logger.Errorf("%s", err)
	}
	return true
}

// wait blocks until no pass is running.
func (s *scheduler) wait(ctx context.Context) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	s.sem.Release(1)
	return nil
}

func runSchedule(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	spec := cfg.Schedule
	if v := c.String("cron"); v != "" {
		spec = v
	}
	logger := newLogger(c, lw.Ctx{"guild": cfg.DiscordGuildID})

	// Passes are not canceled mid-way; shutdown waits for the running one.
	ctx := context.Background()
	p, err := newPass(ctx, cfg, c.GlobalBool("dry-run"), logger)
	if err != nil {
		return err
	}
	s := newScheduler(p.run, logger)

	cr := cron.New()
	if _, err := cr.AddFunc(spec, func() { s.trigger(ctx) }); err != nil {
		return errors.Annotatef(err, "invalid schedule %q", spec)
	}
	cr.Start()
	logger.Infof("Scheduled sync passes: %s", spec)

	if c.Bool("now") {
		go s.trigger(ctx)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	for sig := range sigs {
		if sig == syscall.SIGHUP {
			logger.Infof("SIGHUP received, starting a pass")
			go s.trigger(ctx)
			continue
		}
		logger.Infof("%s received, waiting for the running pass to finish", sig)
		<-cr.Stop().Done()
		return s.wait(ctx)
	}
	return nil
}
