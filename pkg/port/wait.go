package port

import (
	"time"

	"github.com/nebari-dev/portkit/pkg/logger"
)

// DefaultMaxWait is the wait budget applied by DefaultWaitConfig.
const DefaultMaxWait = 10 * time.Second

// WaitConfig holds configuration for waiting on a port.
type WaitConfig struct {
	Host     string        // defaults to loopback
	Port     int           // port to wait on
	MaxWait  time.Duration // wait budget; zero allows one cycle, negative waits forever
	Protocol Protocol      // defaults to TCP
}

// DefaultWaitConfig returns the standard waiting configuration for a port:
// loopback, TCP, 10 second budget. MaxWait's zero value is a meaningful
// budget (give up after a single probe-and-sleep cycle), so defaults are
// applied here rather than fixed up from zero values later.
func DefaultWaitConfig(port int) WaitConfig {
	return WaitConfig{
		Host:     DefaultHost,
		Port:     port,
		MaxWait:  DefaultMaxWait,
		Protocol: TCP,
	}
}

// backoff is the doubling-sleep generator driving a single wait. It is
// owned by one Wait invocation and discarded with it. sleepFn exists so
// tests can substitute a fake clock.
type backoff struct {
	sleep   time.Duration
	elapsed time.Duration
	budget  time.Duration
	sleepFn func(time.Duration)
}

func newBackoff(budget time.Duration) *backoff {
	return &backoff{
		sleep:   time.Millisecond,
		budget:  budget,
		sleepFn: time.Sleep,
	}
}

// tick advances the generator by one step: it refuses once the budget is
// exceeded, otherwise sleeps for the current interval and doubles it.
// There is no cap on the interval. A negative budget never refuses.
func (b *backoff) tick() bool {
	if b.budget >= 0 && b.elapsed > b.budget {
		return false
	}
	b.sleepFn(b.sleep)
	b.elapsed += b.sleep
	b.sleep *= 2
	return true
}

// Waiter polls a port with exponential backoff until something is
// listening on it or the wait budget runs out.
type Waiter struct {
	cfg WaitConfig
	log *logger.Logger
}

// NewWaiter creates a waiter for the given configuration. A nil logger
// silences attempt logging.
func NewWaiter(cfg WaitConfig, log *logger.Logger) *Waiter {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Protocol == "" {
		cfg.Protocol = TCP
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Waiter{
		cfg: cfg,
		log: log.WithComponent("port-waiter"),
	}
}

// Wait blocks until the port answers as in-use, returning true, or the
// budget is exhausted, returning false. Sleeps start at 1ms and double
// each attempt. Budget exhaustion is an expected outcome, not an error;
// errors are reserved for probes that fail for reasons other than the
// port being free.
func (w *Waiter) Wait() (bool, error) {
	ep := Endpoint{Host: w.cfg.Host, Port: w.cfg.Port, Protocol: w.cfg.Protocol}
	w.log.Debug("waiting for port",
		"addr", ep.addr(),
		"protocol", ep.Protocol,
		"max_wait", w.cfg.MaxWait)

	b := newBackoff(w.cfg.MaxWait)
	attempt := 0
	for b.tick() {
		attempt++
		start := time.Now()
		used, err := InUse(ep)
		if err != nil {
			return false, err
		}
		w.log.WaitAttempt(attempt, ep.addr(), used, time.Since(start))
		if used {
			w.log.Info("port is up",
				"addr", ep.addr(),
				"attempts", attempt,
				"waited", b.elapsed)
			return true, nil
		}
	}
	w.log.Debug("wait budget exhausted",
		"addr", ep.addr(),
		"attempts", attempt,
		"waited", b.elapsed)
	return false, nil
}

// Wait polls until the configured port is in use or the budget runs out.
// It is the plain-function form of Waiter for callers that don't want
// attempt logging.
func Wait(cfg WaitConfig) (bool, error) {
	return NewWaiter(cfg, nil).Wait()
}

// WaitRetries is the legacy call shape taking a per-try sleep interval and
// a retry count. The two only set the total budget (interval times
// retries); the backoff itself still starts at 1ms and doubles.
func WaitRetries(port int, interval time.Duration, retries int, proto Protocol) (bool, error) {
	return Wait(WaitConfig{
		Port:     port,
		MaxWait:  interval * time.Duration(retries),
		Protocol: proto,
	})
}
