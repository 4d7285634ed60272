package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"nmeafix/internal/nmea"
	"nmeafix/internal/replay"
)

type noSleep struct{}

func (noSleep) Sleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newReplayCmd() *cobra.Command {
	var (
		speed     float64
		fast      bool
		sentences bool
	)
	cmd := &cobra.Command{
		Use:   "replay <capture>",
		Short: "Replay a capture through the decoder with its recorded timing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := replay.Open(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			var sleeper replay.Sleeper
			if fast {
				sleeper = noSleep{}
			}
			return replayCapture(ctx, recs, speed, sleeper, cmd.OutOrStdout(), sentences)
		},
	}
	cmd.Flags().Float64Var(&speed, "speed", 1, "playback speed multiplier")
	cmd.Flags().BoolVar(&fast, "fast", false, "ignore recorded timing")
	cmd.Flags().BoolVar(&sentences, "sentences", false, "print each decoded sentence")
	return cmd
}

func replayCapture(ctx context.Context, recs []replay.Record, speed float64, sleeper replay.Sleeper, w io.Writer, verbose bool) error {
	p, err := nmea.NewParser(nmea.Options{})
	if err != nil {
		return err
	}
	defer p.Close()
	info := nmea.NewInfo()

	err = replay.Play(ctx, recs, speed, false, sleeper, func(chunk []byte) error {
		return feedChunk(p, &info, chunk, w, verbose)
	})
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(decodeResult{Info: info, Stats: p.Stats()})
}
