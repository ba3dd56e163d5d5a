package port

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"syscall"
)

const (
	// DynamicRangeStart is the floor of the IANA dynamic/private port
	// range, the default scan floor.
	DynamicRangeStart = 49152

	// ScanCeiling is the exclusive upper bound of the scan; ports at or
	// above it are never tried.
	ScanCeiling = 65000
)

// ErrNotFound is returned by FindFree when the scan range is exhausted
// without a bindable port.
var ErrNotFound = errors.New("no free port found")

// FindConfig holds the inputs to FindFree. All fields are optional.
type FindConfig struct {
	Host     string   // bind address to scan, defaults to loopback
	Port     int      // lower bound for the scan; 0 picks a randomized start
	Protocol Protocol // defaults to TCP
}

// FindFree scans upward for a port that can be bound on the configured
// host and returns the first one that works. The port is released before
// returning, so it is only a hint; the caller must bind it immediately.
//
// A caller-supplied lower bound below the dynamic range floor is used
// as-is; a bound at or above the floor is clamped down to 49152. With no
// bound, the scan starts at a pseudo-random offset into the dynamic range,
// perturbed by the process id so concurrent harnesses on the same machine
// tend to diverge. That is a collision-avoidance heuristic, not a
// guarantee.
func FindFree(cfg FindConfig) (int, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Protocol == "" {
		cfg.Protocol = TCP
	}

	start := startPort(cfg.Port)
	for candidate := start; candidate < ScanCeiling; candidate++ {
		ep := Endpoint{Host: cfg.Host, Port: candidate, Protocol: cfg.Protocol}

		if cfg.Protocol == TCP {
			// Remote check first: an active listener disqualifies the
			// candidate without a bind attempt. Meaningless for UDP.
			used, err := InUse(ep)
			if err != nil {
				return 0, err
			}
			if used {
				continue
			}
		}

		ok, err := confirmBind(ep)
		if err != nil {
			return 0, err
		}
		if ok {
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("no free %s port on %s in [%d, %d): %w",
		cfg.Protocol, cfg.Host, start, ScanCeiling, ErrNotFound)
}

// startPort resolves the scan's first candidate from an optional caller
// bound.
func startPort(bound int) int {
	if bound > 0 {
		if bound < DynamicRangeStart {
			return bound
		}
		return DynamicRangeStart
	}
	span := ScanCeiling - DynamicRangeStart
	return DynamicRangeStart + (rand.IntN(span)+os.Getpid())%span
}

// confirmBind attempts to actually bind the candidate, with address reuse
// where the platform allows it. Address-in-use means "keep scanning"; any
// other failure is surfaced.
func confirmBind(ep Endpoint) (bool, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}

	if ep.Protocol == UDP {
		pc, err := lc.ListenPacket(context.Background(), ep.network(), ep.addr())
		if err == nil {
			pc.Close()
			return true, nil
		}
		if errors.Is(err, syscall.EADDRINUSE) {
			return false, nil
		}
		return false, fmt.Errorf("binding %s %s: %w", ep.Protocol, ep.addr(), err)
	}

	l, err := lc.Listen(context.Background(), ep.network(), ep.addr())
	if err == nil {
		l.Close()
		return true, nil
	}
	if errors.Is(err, syscall.EADDRINUSE) {
		return false, nil
	}
	return false, fmt.Errorf("binding %s %s: %w", ep.Protocol, ep.addr(), err)
}
