package udp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"nmeafix/internal/gps"
)

type udpConn interface {
	io.Writer
	io.Closer
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)
type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

// Broadcaster sends fix reports as JSON datagrams to one destination, which
// may be a broadcast address.
type Broadcaster struct {
	dest string
	conn udpConn
}

func NewBroadcaster(dest string) (*Broadcaster, error) {
	return newBroadcaster(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newBroadcaster(dest string, resolve resolveFunc, dial dialFunc) (*Broadcaster, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	return &Broadcaster{dest: dest, conn: conn}, nil
}

func (b *Broadcaster) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	_, err := b.conn.Write(payload)
	return err
}

// SendFix writes fix as one newline-terminated JSON datagram.
func (b *Broadcaster) SendFix(fix gps.Fix) error {
	payload, err := json.Marshal(fix)
	if err != nil {
		return err
	}
	return b.Send(append(payload, '\n'))
}

func (b *Broadcaster) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}

// Run sends the current fix every interval until ctx is done. Nothing is sent
// before the receiver has produced a fix time.
func (b *Broadcaster) Run(ctx context.Context, interval time.Duration, current func() gps.Fix) {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	failing := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		fix := current()
		if fix.Time == "" {
			continue
		}
		if err := b.SendFix(fix); err != nil {
			if !failing {
				log.Printf("udp send failed dest=%s: %v", b.dest, err)
			}
			failing = true
			continue
		}
		if failing {
			log.Printf("udp send recovered dest=%s", b.dest)
		}
		failing = false
	}
}
