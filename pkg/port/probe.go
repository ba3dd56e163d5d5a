// Package port provides free-port discovery, availability probing, and
// port-up waiting for test harnesses that spin up ephemeral servers.
//
// A port returned by FindFree is a hint, not a reservation: nothing is held
// between discovery and the caller's own bind, so another process may claim
// the port in between. Callers must bind the returned port immediately.
package port

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
	"time"
)

// Protocol selects the transport a probe speaks.
type Protocol string

const (
	TCP Protocol = "tcp"
	UDP Protocol = "udp"
)

const (
	// DefaultHost is the address probed when the caller supplies none.
	DefaultHost = "127.0.0.1"

	// probeTimeout bounds a single TCP connect attempt.
	probeTimeout = 1 * time.Second
)

// Endpoint identifies a single (host, port, protocol) triple to probe.
// The zero values of Host and Protocol mean loopback and TCP.
type Endpoint struct {
	Host     string
	Port     int
	Protocol Protocol
}

func (e Endpoint) withDefaults() Endpoint {
	if e.Host == "" {
		e.Host = DefaultHost
	}
	if e.Protocol == "" {
		e.Protocol = TCP
	}
	return e
}

func (e Endpoint) addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// network returns the family-strict network name for the endpoint.
// Probes must reflect exactly the requested host and protocol, so IPv4
// hosts use tcp4/udp4 and literal IPv6 hosts use tcp6/udp6 rather than
// letting the stack fall back to a v4-mapped-v6 socket.
func (e Endpoint) network() string {
	if ip := net.ParseIP(e.Host); ip != nil && ip.To4() == nil {
		return string(e.Protocol) + "6"
	}
	return string(e.Protocol) + "4"
}

func (e Endpoint) validate() error {
	if e.Port < 0 || e.Port > 65535 {
		return fmt.Errorf("port %d out of range (0-65535)", e.Port)
	}
	switch e.Protocol {
	case TCP, UDP:
		return nil
	default:
		return fmt.Errorf("unknown protocol %q", e.Protocol)
	}
}

// InUse reports whether something currently occupies the endpoint.
//
// TCP endpoints get a remote liveness check: an outbound connect. A
// completed connection means an active listener, a refused or timed-out
// connect means the port is free. UDP has no connection handshake, so the
// only meaningful check is local claimability: a bind that succeeds means
// the port is free, a bind that fails with address-in-use means occupied.
//
// Refusals, timeouts, and address-in-use are signal values, not errors.
// Anything else (permission denied, bad address) is returned as an error
// so it cannot masquerade as an availability answer.
func InUse(ep Endpoint) (bool, error) {
	ep = ep.withDefaults()
	if err := ep.validate(); err != nil {
		return false, err
	}
	switch ep.Protocol {
	case UDP:
		return inUseBind(ep)
	default:
		return inUseConnect(ep)
	}
}

// inUseConnect is the remote check for connection-oriented protocols.
func inUseConnect(ep Endpoint) (bool, error) {
	conn, err := net.DialTimeout(ep.network(), ep.addr(), probeTimeout)
	if err == nil {
		conn.Close()
		return true, nil
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return false, nil
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return false, nil
	}
	return false, fmt.Errorf("probing %s %s: %w", ep.Protocol, ep.addr(), err)
}

// inUseBind is the local check for connectionless protocols.
func inUseBind(ep Endpoint) (bool, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	pc, err := lc.ListenPacket(context.Background(), ep.network(), ep.addr())
	if err == nil {
		pc.Close()
		return false, nil
	}
	if errors.Is(err, syscall.EADDRINUSE) {
		return true, nil
	}
	return false, fmt.Errorf("probing %s %s: %w", ep.Protocol, ep.addr(), err)
}
