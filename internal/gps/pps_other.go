//go:build !linux

package gps

import (
	"fmt"
	"io"
	"time"
)

func watchPPS(gpio int, mark func(time.Time)) (io.Closer, error) {
	return nil, fmt.Errorf("gps: pps unsupported on this platform")
}
