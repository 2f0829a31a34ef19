package signaling

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/LingByte/LingSignal/pkg/logger"
)

// Monitor probes every live connection once per interval. A connection
// moves alive -> awaiting when probed and back to alive on pong; one still
// awaiting at the next sweep is evicted.
type Monitor struct {
	hub      *Hub
	interval time.Duration
	cron     *cron.Cron
	logger   *zap.Logger

	startOnce sync.Once
}

func newMonitor(h *Hub, interval time.Duration, lg *zap.Logger) *Monitor {
	m := &Monitor{hub: h, interval: interval, logger: lg}
	cl := logger.NewCronLogger(lg)
	m.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	m.cron.Schedule(cron.Every(interval), cron.FuncJob(func() { m.Sweep() }))
	return m
}

// Start begins periodic sweeps. Subsequent calls do nothing.
func (m *Monitor) Start() {
	m.startOnce.Do(func() {
		m.logger.Info("liveness monitor started", zap.Duration("interval", m.interval))
		m.cron.Start()
	})
}

// Stop halts the schedule and waits for a running sweep to finish.
func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()
}

// Sweep runs one probe cycle and returns the number of evicted connections.
func (m *Monitor) Sweep() int {
	evicted := 0
	for _, c := range m.hub.Connections() {
		if !c.beginProbe() {
			m.hub.evict(c)
			evicted++
			continue
		}
		if err := c.ping(); err != nil {
			// left awaiting; the next sweep evicts it unless the read side
			// notices the failure first
			m.logger.Debug("ping failed", zap.String("client_id", c.id), zap.Error(err))
		}
	}
	if evicted > 0 {
		m.logger.Info("liveness sweep", zap.Int("evicted", evicted))
	}
	return evicted
}
