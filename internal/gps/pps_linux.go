//go:build linux

package gps

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// watchPPS requests the BCM line gpio for rising edges and calls mark on each
// pulse.
func watchPPS(gpio int, mark func(time.Time)) (io.Closer, error) {
	if gpio <= 0 {
		return nil, fmt.Errorf("gps: invalid pps gpio %d", gpio)
	}
	lineName := fmt.Sprintf("GPIO%d", gpio)

	chipCandidates := []string{"/dev/gpiochip0", "/dev/gpiochip4"}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "gpiochip") {
			chipCandidates = append(chipCandidates, filepath.Join("/dev", e.Name()))
		}
	}

	handler := func(evt gpiocdev.LineEvent) {
		if evt.Type == gpiocdev.LineEventRisingEdge {
			mark(time.Now().UTC())
		}
	}
	for _, chipPath := range chipCandidates {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset,
			gpiocdev.AsInput,
			gpiocdev.WithRisingEdge,
			gpiocdev.WithEventHandler(handler),
			gpiocdev.WithConsumer("nmeafix-pps"))
		if err != nil {
			_ = chip.Close()
			continue
		}
		return &ppsLine{chip: chip, line: line}, nil
	}
	return nil, fmt.Errorf("gps: gpio line %q not found (or busy)", lineName)
}

type ppsLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (p *ppsLine) Close() error {
	err := p.line.Close()
	if cerr := p.chip.Close(); err == nil {
		err = cerr
	}
	return err
}
