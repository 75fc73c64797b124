package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "outagebot/pkg/logx"
)

// Job is one triggered run. Its context is canceled when the scheduler stops.
type Job func(ctx context.Context)

type Service struct {
	log    logx.Logger
	parser cron.Parser
	job    Job

	mu      sync.Mutex
	loc     *time.Location
	spec    ParsedSpec
	c       *cron.Cron
	entry   cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// New validates schedule and returns a stopped service.
func New(schedule string, loc *time.Location, job Job, log logx.Logger) (*Service, error) {
	if job == nil {
		return nil, errors.New("scheduler: job is required")
	}
	if loc == nil {
		loc = time.Local
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		log: log.With(logx.String("comp", "scheduler")),
		// SecondOptional accepts both 5-field and 6-field cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		job:    job,
		loc:    loc,
	}
	spec, err := s.check(schedule)
	if err != nil {
		return nil, err
	}
	s.spec = spec
	return s, nil
}

func (s *Service) check(schedule string) (ParsedSpec, error) {
	spec, err := ParseSchedule(schedule)
	if err != nil {
		return ParsedSpec{}, err
	}
	if _, err := s.parser.Parse(spec.CronSpec()); err != nil {
		return ParsedSpec{}, err
	}
	return spec, nil
}

// Start begins triggering. Calling Start twice is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.c = cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(s.loc),
		cron.WithChain(cron.Recover(cronLogger{s.log}), cron.SkipIfStillRunning(cronLogger{s.log})),
	)
	if err := s.addLocked(); err != nil {
		s.cancel()
		s.c = nil
		return err
	}
	s.c.Start()
	s.log.Info("scheduler started",
		logx.String("schedule", s.spec.CronSpec()),
		logx.String("tz", s.loc.String()),
		logx.Time("next", s.c.Entry(s.entry).Next),
	)
	return nil
}

func (s *Service) addLocked() error {
	id, err := s.c.AddFunc(s.spec.CronSpec(), func() {
		s.running.Add(1)
		defer s.running.Done()
		s.job(s.ctx)
	})
	if err != nil {
		return err
	}
	s.entry = id
	return nil
}

// Reschedule swaps the schedule; a running job is not interrupted.
func (s *Service) Reschedule(schedule string) error {
	spec, err := s.check(schedule)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if spec == s.spec {
		return nil
	}
	s.spec = spec
	if s.c == nil {
		return nil
	}
	s.c.Remove(s.entry)
	if err := s.addLocked(); err != nil {
		return err
	}
	s.log.Info("schedule changed", logx.String("schedule", spec.CronSpec()))
	return nil
}

// Next is the next trigger time, zero when stopped.
func (s *Service) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return time.Time{}
	}
	return s.c.Entry(s.entry).Next
}

// Stop stops triggering, cancels the running job and waits for it (bounded
// by ctx).
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.c, s.cancel
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	stopped := c.Stop()
	cancel()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.running.Wait()
	s.log.Info("scheduler stopped")
	return nil
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}
