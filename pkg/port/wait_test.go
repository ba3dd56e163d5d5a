package port

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock records requested sleeps without actually sleeping, so backoff
// behavior can be asserted deterministically.
type fakeClock struct {
	slept []time.Duration
}

func (c *fakeClock) sleep(d time.Duration) {
	c.slept = append(c.slept, d)
}

func TestBackoff_DoublingSeries(t *testing.T) {
	clock := &fakeClock{}
	b := newBackoff(10 * time.Millisecond)
	b.sleepFn = clock.sleep

	ticks := 0
	for b.tick() {
		ticks++
	}

	// 1+2+4+8 = 15ms > 10ms budget, so the fifth tick refuses.
	assert.Equal(t, 4, ticks)
	assert.Equal(t, []time.Duration{
		1 * time.Millisecond,
		2 * time.Millisecond,
		4 * time.Millisecond,
		8 * time.Millisecond,
	}, clock.slept)
	assert.Equal(t, 15*time.Millisecond, b.elapsed)
}

func TestBackoff_ZeroBudget(t *testing.T) {
	clock := &fakeClock{}
	b := newBackoff(0)
	b.sleepFn = clock.sleep

	// Zero budget still allows exactly one probe-and-sleep cycle.
	assert.True(t, b.tick())
	assert.False(t, b.tick())
	assert.Equal(t, []time.Duration{1 * time.Millisecond}, clock.slept)
}

func TestBackoff_NegativeBudgetNeverStops(t *testing.T) {
	clock := &fakeClock{}
	b := newBackoff(-1)
	b.sleepFn = clock.sleep

	for i := 0; i < 20; i++ {
		require.True(t, b.tick(), "unbounded backoff must not stop on its own")
	}
	// Growth is uncapped.
	assert.Equal(t, 1*time.Millisecond<<20, b.sleep)
}

func TestWait_PortAlreadyUp(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	up, err := Wait(DefaultWaitConfig(port))
	require.NoError(t, err)
	assert.True(t, up)
}

func TestWait_ZeroBudgetOnDeadPort(t *testing.T) {
	p, err := FindFree(FindConfig{})
	require.NoError(t, err)

	start := time.Now()
	up, err := Wait(WaitConfig{Port: p, MaxWait: 0})
	require.NoError(t, err)
	assert.False(t, up, "nothing ever listens on %d", p)
	assert.Less(t, time.Since(start), 1*time.Second,
		"zero budget allows at most one probe-and-sleep cycle")
}

func TestWait_BudgetExhausted(t *testing.T) {
	p, err := FindFree(FindConfig{})
	require.NoError(t, err)

	up, err := Wait(WaitConfig{Port: p, MaxWait: 20 * time.Millisecond})
	require.NoError(t, err)
	assert.False(t, up)
}

func TestWait_UnboundedReturnsOnlyAfterListenerUp(t *testing.T) {
	p, err := FindFree(FindConfig{})
	require.NoError(t, err)

	ready := make(chan net.Listener, 1)
	go func() {
		time.Sleep(50 * time.Millisecond)
		l, lerr := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(p)))
		if lerr != nil {
			close(ready)
			return
		}
		ready <- l
	}()

	start := time.Now()
	up, err := Wait(WaitConfig{Host: "127.0.0.1", Port: p, MaxWait: -1})
	waited := time.Since(start)
	require.NoError(t, err)

	l, ok := <-ready
	require.True(t, ok, "test listener failed to start")
	defer l.Close()

	assert.True(t, up)
	assert.GreaterOrEqual(t, waited, 40*time.Millisecond,
		"wait must not report success before the listener exists")
}

func TestWait_UDP(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()
	port := pc.LocalAddr().(*net.UDPAddr).Port

	up, err := Wait(WaitConfig{Port: port, MaxWait: time.Second, Protocol: UDP})
	require.NoError(t, err)
	assert.True(t, up)
}

func TestWaitRetries_BudgetDerivation(t *testing.T) {
	p, err := FindFree(FindConfig{})
	require.NoError(t, err)

	// interval x retries = 6ms budget; 1+2+4 = 7ms of sleeping exceeds it.
	start := time.Now()
	up, err := WaitRetries(p, 2*time.Millisecond, 3, TCP)
	require.NoError(t, err)
	assert.False(t, up)
	assert.Less(t, time.Since(start), 1*time.Second)
}

func TestWaitRetries_Success(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	up, err := WaitRetries(port, 100*time.Millisecond, 10, TCP)
	require.NoError(t, err)
	assert.True(t, up)
}
