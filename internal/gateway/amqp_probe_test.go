package gateway_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ottermq/otterconf/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closedPort returns a local address nothing listens on.
func closedPort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestAMQPProbe_Unreachable(t *testing.T) {
	probe := &gateway.AMQPProbe{URL: "amqp://guest:guest@" + closedPort(t) + "/", DialTimeout: 200 * time.Millisecond}

	assert.False(t, probe.Ping(context.Background()))
}

func TestAMQPProbe_SilentServer(t *testing.T) {
	// accepts TCP but never speaks AMQP
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	probe := &gateway.AMQPProbe{URL: "amqp://guest:guest@" + l.Addr().String() + "/", DialTimeout: 200 * time.Millisecond}

	start := time.Now()
	assert.False(t, probe.Ping(context.Background()))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestAMQPProbe_InvalidURL(t *testing.T) {
	probe := &gateway.AMQPProbe{URL: "http://not-amqp"}

	assert.False(t, probe.Ping(context.Background()))
}

type staticPinger bool

func (p staticPinger) Ping(context.Context) bool { return bool(p) }

func TestAllPingers(t *testing.T) {
	ctx := context.Background()

	assert.True(t, gateway.AllPingers{}.Ping(ctx))
	assert.True(t, gateway.AllPingers{staticPinger(true), staticPinger(true)}.Ping(ctx))
	assert.False(t, gateway.AllPingers{staticPinger(true), staticPinger(false)}.Ping(ctx))
}
