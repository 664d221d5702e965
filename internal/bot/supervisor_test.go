package bot

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/markovbot/internal/metrics"
)

func TestSupervisor_RestartsDeadTasks(t *testing.T) {
	m := metrics.New()
	var panicky, quitter atomic.Int32
	s := NewSupervisor(10*time.Millisecond, nil, m,
		Task{Name: "panicky", Run: func(ctx context.Context) {
			if panicky.Add(1) == 1 {
				panic("boom")
			}
			<-ctx.Done()
		}},
		Task{Name: "quitter", Run: func(ctx context.Context) {
			if quitter.Add(1) < 3 {
				return
			}
			<-ctx.Done()
		}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return panicky.Load() == 2 && quitter.Load() == 3 && s.Alive("panicky") && s.Alive("quitter")
	}, 5*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkerRestarts.WithLabelValues("panicky")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WorkerRestarts.WithLabelValues("quitter")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkersAlive.WithLabelValues("panicky")))

	cancel()
	require.NoError(t, <-errc)
	assert.False(t, s.Alive("panicky"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.WorkersAlive.WithLabelValues("quitter")))
}

func TestSupervisor_UnknownTaskIsNotAlive(t *testing.T) {
	s := NewSupervisor(0, nil, nil)
	assert.False(t, s.Alive("ghost"))
}

func TestBotTasks(t *testing.T) {
	h := newHarness(t, Options{})
	var names []string
	for _, task := range h.bot.Tasks(time.Second) {
		names = append(names, task.Name)
	}
	assert.Equal(t, []string{WorkerAutoReply, WorkerAutoPost, WorkerAutoReshare, WorkerSelfExam}, names)
}
