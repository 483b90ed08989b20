package gateway

import (
	"context"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// AMQPProbe checks that the broker accepts AMQP 0-9-1 connections, which the
// management API alone does not prove.
type AMQPProbe struct {
	URL         string
	DialTimeout time.Duration
}

func (p *AMQPProbe) Ping(ctx context.Context) bool {
	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Dial: func(network, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			// the client clears the deadline once the handshake completes
			if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
				return nil, err
			}
			return conn, nil
		},
	})
	if err != nil {
		log.Debug().Err(err).Msg("AMQP listener not reachable")
		return false
	}
	if err := conn.Close(); err != nil {
		log.Debug().Err(err).Msg("Failed to close AMQP probe connection")
	}
	return true
}

// AllPingers is live only when every member is.
type AllPingers []Pinger

func (ps AllPingers) Ping(ctx context.Context) bool {
	for _, p := range ps {
		if !p.Ping(ctx) {
			return false
		}
	}
	return true
}
