// Package connectivity tracks network reachability as a two-state observable.
package connectivity

import (
	"context"
	"net"
	"time"

	"github.com/gauravkale/ComicsLibrary/internal/observe"
)

// Status is the reachability signal consumers observe.
type Status int

const (
	// Available is the optimistic default: the monitor reports Available
	// until a probe proves otherwise, so losing the probe degrades UX,
	// not correctness.
	Available Status = iota
	// Unavailable means the last probe failed.
	Unavailable
)

// String returns the lowercase tag name, used in logs and API payloads.
func (s Status) String() string {
	if s == Unavailable {
		return "unavailable"
	}
	return "available"
}

// Prober reports whether the network is currently reachable.
type Prober func(ctx context.Context) bool

// DialProber probes reachability by opening a TCP connection to addr.
func DialProber(addr string, timeout time.Duration) Prober {
	return func(ctx context.Context) bool {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}
}

// Monitor periodically probes the network and publishes Status changes
// through a conflating observable: a late subscriber sees only the latest
// status, never a replay of intermediate flaps.
//
// It is constructed explicitly and owned by the process composition; there
// is no ambient singleton.
type Monitor struct {
	status   *observe.Value[Status]
	probe    Prober
	interval time.Duration

	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewMonitor creates and starts a monitor. A nil probe leaves the status
// pinned to Available (best effort when no platform signal exists).
// interval defaults to 5 seconds when non-positive.
func NewMonitor(probe Prober, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		status:   observe.NewValue(Available),
		probe:    probe,
		interval: interval,
		cancel:   cancel,
		stopped:  make(chan struct{}),
	}
	go m.run(ctx)
	return m
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.stopped)

	if m.probe == nil {
		<-ctx.Done()
		return
	}

	m.publish(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.publish(ctx)
		}
	}
}

func (m *Monitor) publish(ctx context.Context) {
	next := Unavailable
	if m.probe(ctx) {
		next = Available
	}
	m.status.Set(next)
}

// Status returns the observable reachability signal.
func (m *Monitor) Status() *observe.Value[Status] {
	return m.status
}

// Close stops the probe loop and closes subscriber channels.
func (m *Monitor) Close() {
	m.cancel()
	<-m.stopped
	m.status.Close()
}
