package gps

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"time"
)

const gpsdDefaultAddr = "127.0.0.1:2947"

// dialGPSD connects to gpsd over TCP.
func dialGPSD(ctx context.Context, addr string) (net.Conn, error) {
	if strings.TrimSpace(addr) == "" {
		addr = gpsdDefaultAddr
	}
	d := &net.Dialer{Timeout: 2 * time.Second}
	if ctx == nil {
		return d.Dial("tcp", addr)
	}
	return d.DialContext(ctx, "tcp", addr)
}

// gpsdWatch asks gpsd to relay the receiver's raw NMEA sentences.
func gpsdWatch(w io.Writer) error {
	_, err := w.Write([]byte("?WATCH={\"enable\":true,\"nmea\":true}\n"))
	return err
}

type gpsdMsgBase struct {
	Class   string `json:"class"`
	Release string `json:"release"`
	Path    string `json:"path"`
	Devices []struct {
		Path string `json:"path"`
	} `json:"devices"`
}

// gpsdFilter strips gpsd's own JSON reports from the stream so only NMEA
// sentences reach the parser.
type gpsdFilter struct {
	br      *bufio.Reader
	pending []byte

	// onReport is called with each JSON report line, if set.
	onReport func(msg gpsdMsgBase)
}

func newGPSDFilter(r io.Reader, onReport func(gpsdMsgBase)) *gpsdFilter {
	return &gpsdFilter{br: bufio.NewReaderSize(r, 4096), onReport: onReport}
}

func (f *gpsdFilter) Read(p []byte) (int, error) {
	for len(f.pending) == 0 {
		line, err := f.br.ReadBytes('\n')
		if len(line) > 0 && line[0] == '{' {
			f.report(line)
			line = nil
		}
		f.pending = line
		if err != nil {
			if len(f.pending) > 0 {
				break
			}
			return 0, err
		}
	}
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func (f *gpsdFilter) report(line []byte) {
	if f.onReport == nil {
		return
	}
	var msg gpsdMsgBase
	if err := json.Unmarshal(line, &msg); err != nil {
		return
	}
	f.onReport(msg)
}

type gpsdConn struct {
	io.Reader
	conn net.Conn
}

func (c *gpsdConn) Close() error { return c.conn.Close() }

func (s *Service) gpsdSource() source {
	addr := strings.TrimSpace(s.cfg.GPSDAddr)
	if addr == "" {
		addr = gpsdDefaultAddr
	}
	return source{
		device: "gpsd:" + addr,
		retry:  true,
		open: func(ctx context.Context) (io.ReadCloser, error) {
			conn, err := dialGPSD(ctx, addr)
			if err != nil {
				return nil, fmt.Errorf("gpsd dial failed addr=%s: %w", addr, err)
			}
			if err := gpsdWatch(conn); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("gpsd watch failed addr=%s: %w", addr, err)
			}
			log.Printf("gps enabled source=gpsd addr=%s", addr)
			return &gpsdConn{Reader: newGPSDFilter(conn, s.gpsdReport), conn: conn}, nil
		},
	}
}

func (s *Service) gpsdReport(msg gpsdMsgBase) {
	switch msg.Class {
	case "VERSION":
		log.Printf("gpsd version=%s", msg.Release)
	case "DEVICES":
		if len(msg.Devices) == 0 {
			return
		}
		s.mu.Lock()
		cur := s.Snapshot()
		cur.Device = msg.Devices[0].Path
		s.last.Store(cur)
		s.mu.Unlock()
	}
}
