package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/markovbot/internal/metrics"
)

// DefaultTick is how often the supervisor checks on its tasks.
const DefaultTick = 5 * time.Second

// WorkerSelfExam names the status reporter task.
const WorkerSelfExam = "selfexaminer"

// Task is a long-running function restarted whenever it returns or panics
// before shutdown.
type Task struct {
	Name string
	Run  func(ctx context.Context)
}

// Supervisor runs a fixed set of tasks and revives dead ones every tick.
type Supervisor struct {
	tasks   []Task
	tick    time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu   sync.Mutex
	done map[string]chan struct{}
	wg   sync.WaitGroup
}

// NewSupervisor returns a supervisor for tasks. A non-positive tick uses DefaultTick.
func NewSupervisor(tick time.Duration, logger *zap.Logger, m *metrics.Metrics, tasks ...Task) *Supervisor {
	if tick <= 0 {
		tick = DefaultTick
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Supervisor{
		tasks:   tasks,
		tick:    tick,
		logger:  logger,
		metrics: m,
		done:    make(map[string]chan struct{}, len(tasks)),
	}
}

// Run starts every task and blocks until ctx is done and all tasks returned.
func (s *Supervisor) Run(ctx context.Context) error {
	for _, t := range s.tasks {
		s.start(ctx, t)
	}
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return nil
		case <-ticker.C:
			s.revive(ctx)
		}
	}
}

// Alive reports whether the named task is currently running.
func (s *Supervisor) Alive(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	done, ok := s.done[name]
	if !ok {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

func (s *Supervisor) revive(ctx context.Context) {
	for _, t := range s.tasks {
		if ctx.Err() != nil {
			return
		}
		if s.Alive(t.Name) {
			continue
		}
		s.logger.Warn("task died, restarting", zap.String("worker", t.Name))
		s.metrics.WorkerRestarts.WithLabelValues(t.Name).Inc()
		s.start(ctx, t)
		s.logger.Info("task restarted", zap.String("worker", t.Name))
	}
}

func (s *Supervisor) start(ctx context.Context, t Task) {
	done := make(chan struct{})
	s.mu.Lock()
	s.done[t.Name] = done
	s.mu.Unlock()

	alive := s.metrics.WorkersAlive.WithLabelValues(t.Name)
	alive.Set(1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		defer alive.Set(0)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("task panicked", zap.String("worker", t.Name), zap.String("panic", fmt.Sprint(r)))
			}
		}()
		t.Run(ctx)
		if ctx.Err() == nil {
			s.logger.Warn("task returned early", zap.String("worker", t.Name))
		}
	}()
}

// Tasks returns the bot's supervised workers.
func (b *Bot) Tasks(tick time.Duration) []Task {
	return []Task{
		{Name: WorkerAutoReply, Run: b.autoReply},
		{Name: WorkerAutoPost, Run: b.autoPost},
		{Name: WorkerAutoReshare, Run: b.autoReshare},
		{Name: WorkerSelfExam, Run: func(ctx context.Context) { b.selfExamine(ctx, tick) }},
	}
}

// Run supervises the workers until ctx is done.
func (b *Bot) Run(ctx context.Context, tick time.Duration) error {
	if tick <= 0 {
		tick = DefaultTick
	}
	return NewSupervisor(tick, b.logger, b.metrics, b.Tasks(tick)...).Run(ctx)
}

// selfExamine reports bot status every tick.
func (b *Bot) selfExamine(ctx context.Context, tick time.Duration) {
	log := b.logger.With(zap.String("worker", WorkerSelfExam))
	for sleep(ctx, tick) {
		st := b.Status()
		b.metrics.ExcludedItems.Set(float64(st.Excluded))
		fields := []zap.Field{
			zap.Bool("logged_in", st.LoggedIn),
			zap.Bool("auto_reply", st.AutoReplying),
			zap.Bool("auto_post", st.AutoPosting),
			zap.Bool("resharing", st.Resharing),
			zap.Int("excluded", st.Excluded),
		}
		if st.LastIncoming != nil {
			fields = append(fields, zap.String("last_in", st.LastIncoming.ID))
		}
		if st.LastOutgoing != nil {
			fields = append(fields, zap.String("last_out", st.LastOutgoing.RemoteID))
		}
		log.Debug("status", fields...)
	}
}
