// Package observability counts what the client does and samples the
// process it runs in.
package observability

import (
	"chatty/contract"
	"context"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Stats is one sample of the counters and of the process.
type Stats struct {
	RemoteCalls    uint64
	RemoteFailures uint64
	SuccessToasts  uint64
	ErrorToasts    uint64
	Uptime         time.Duration

	Goroutines int
	AllocMemMb uint64
	NumGC      uint32
	RSSMb      uint64
	CPUPercent float64
}

type Monitor struct {
	log     *slog.Logger
	started time.Time

	remoteCalls    atomic.Uint64
	remoteFailures atomic.Uint64
	successToasts  atomic.Uint64
	errorToasts    atomic.Uint64
}

func NewMonitor(log *slog.Logger) *Monitor {
	return &Monitor{log: log, started: time.Now()}
}

// RoundTripper counts the HTTP exchanges going through next.
// Transport errors and 5xx answers are failures.
func (m *Monitor) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		resp, err := next.RoundTrip(req)
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		m.Observe(status, err)
		return resp, err
	})
}

// Observe counts one remote exchange made outside an http.Client, like a
// websocket handshake. status is 0 when no answer came back.
func (m *Monitor) Observe(status int, err error) {
	m.remoteCalls.Add(1)
	if err != nil || status >= http.StatusInternalServerError {
		m.remoteFailures.Add(1)
	}
}

// Notifier counts the notifications passed on to next.
func (m *Monitor) Notifier(next contract.INotifier) contract.INotifier {
	return &countingNotifier{next: next, monitor: m}
}

// Sample reads the counters and the current process metrics. Process
// metrics that cannot be read are left at zero.
func (m *Monitor) Sample(ctx context.Context) Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats := Stats{
		RemoteCalls:    m.remoteCalls.Load(),
		RemoteFailures: m.remoteFailures.Load(),
		SuccessToasts:  m.successToasts.Load(),
		ErrorToasts:    m.errorToasts.Load(),
		Uptime:         time.Since(m.started),
		Goroutines:     runtime.NumGoroutine(),
		AllocMemMb:     mem.Alloc / 1024 / 1024,
		NumGC:          mem.NumGC,
	}

	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		m.log.Debug("Process metrics unavailable", "error", err)
		return stats
	}
	if info, err := p.MemoryInfoWithContext(ctx); err == nil {
		stats.RSSMb = info.RSS / 1024 / 1024
	} else {
		m.log.Debug("Error while reading process memory", "error", err)
	}
	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		stats.CPUPercent = cpu
	} else {
		m.log.Debug("Error while reading process cpu usage", "error", err)
	}
	return stats
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

type countingNotifier struct {
	next    contract.INotifier
	monitor *Monitor
}

func (n *countingNotifier) Success(message string) {
	n.monitor.successToasts.Add(1)
	n.next.Success(message)
}

func (n *countingNotifier) Error(message string) {
	n.monitor.errorToasts.Add(1)
	n.next.Error(message)
}
