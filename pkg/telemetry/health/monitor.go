package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"estimategenie/edgerelay/pkg/relay"
)

// ReportProber runs one health probe over every upstream. *relay.Prober
// satisfies it.
type ReportProber interface {
	Probe(ctx context.Context) relay.HealthReport
}

// Monitor runs the relay's health probe on a cron schedule. Probe outcomes
// reach the metrics through the prober's observer; the monitor keeps the last
// report and logs per-upstream state transitions. It never affects request
// handling.
type Monitor struct {
	prober   ReportProber
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	last    *relay.HealthReport
	states  map[string]relay.State
}

// NewMonitor creates a monitor. An empty schedule disables it.
func NewMonitor(prober ReportProber, schedule string, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		prober:   prober,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "health.monitor"),
		states:   make(map[string]relay.State),
	}
}

// Start schedules the probe and returns immediately. The schedule accepts
// standard five-field cron expressions and descriptors:
//   - "*/1 * * * *" - Every minute
//   - "@every 30s"  - Every 30 seconds
//
// If the schedule is empty, the monitor does nothing. The monitor stops when
// ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.schedule == "" {
		m.logger.Info("background health schedule not configured, monitor disabled")
		return nil
	}
	if m.running {
		return nil
	}

	if _, err := cron.ParseStandard(m.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", m.schedule, err)
	}

	if _, err := m.cron.AddFunc(m.schedule, func() {
		m.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule health probe: %w", err)
	}

	m.cron.Start()
	m.running = true

	m.logger.Info("health monitor started", "schedule", m.schedule)

	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	return nil
}

// RunOnce probes every upstream, stores the report and logs transitions.
func (m *Monitor) RunOnce(ctx context.Context) relay.HealthReport {
	report := m.prober.Probe(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	for name, state := range report.Services {
		prev, seen := m.states[name]
		m.states[name] = state

		switch {
		case !seen:
			m.logger.Info("upstream health observed",
				"upstream", name,
				"state", state,
				"url", report.URLs[name],
			)
		case prev != state && state == relay.StateHealthy:
			m.logger.Info("upstream recovered",
				"upstream", name,
				"from", prev,
				"to", state,
			)
		case prev != state:
			m.logger.Warn("upstream health changed",
				"upstream", name,
				"from", prev,
				"to", state,
				"url", report.URLs[name],
			)
		}
	}

	m.last = &report
	return report
}

// Last returns the most recent report and whether one exists.
func (m *Monitor) Last() (relay.HealthReport, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.last == nil {
		return relay.HealthReport{}, false
	}
	return *m.last, true
}

// Stop stops the scheduler and waits for a running probe to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	// RunOnce takes m.mu, so wait for the job without holding it.
	<-m.cron.Stop().Done()
	m.logger.Info("health monitor stopped")
}

// IsRunning returns true if the monitor is scheduled.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.running
}

// NextRun returns the next scheduled probe time, or nil when not scheduled.
func (m *Monitor) NextRun() *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	entries := m.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}
