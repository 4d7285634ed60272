package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"nmeafix/internal/nmea"
)

type decodeResult struct {
	Info  nmea.Info  `json:"info"`
	Stats nmea.Stats `json:"stats"`
}

type decodeOptions struct {
	chunk      int
	bufferSize int
	sentences  bool
	logRejects bool
}

func newDecodeCmd() *cobra.Command {
	var opts decodeOptions
	cmd := &cobra.Command{
		Use:   "decode [file|-]",
		Short: "Decode raw NMEA bytes and print the merged fix as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return decodeStream(in, cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.chunk, "chunk", 256, "bytes per read fed to the parser")
	cmd.Flags().IntVar(&opts.bufferSize, "buffer-size", nmea.DefaultBufferSize, "parser buffer size")
	cmd.Flags().BoolVar(&opts.sentences, "sentences", false, "print each decoded sentence")
	cmd.Flags().BoolVar(&opts.logRejects, "log-rejects", false, "log sentences that fail to decode")
	return cmd
}

func decodeStream(r io.Reader, w io.Writer, opts decodeOptions) error {
	if opts.chunk <= 0 {
		return fmt.Errorf("chunk must be > 0")
	}
	po := nmea.Options{BufferSize: opts.bufferSize}
	if opts.logRejects {
		po.Logger = log.Default()
	}
	p, err := nmea.NewParser(po)
	if err != nil {
		return err
	}
	defer p.Close()
	info := nmea.NewInfo()

	buf := make([]byte, opts.chunk)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if err := feedChunk(p, &info, buf[:n], w, opts.sentences); err != nil {
				return err
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(decodeResult{Info: info, Stats: p.Stats()})
}

// feedChunk ingests one read and drains the queue into info, optionally
// printing each sentence as it is merged.
func feedChunk(p *nmea.Parser, info *nmea.Info, chunk []byte, w io.Writer, verbose bool) error {
	drain := func() {
		for s := p.PeekSentence(); s != nil; s = p.PeekSentence() {
			if verbose {
				fmt.Fprintf(w, "%s %+v\n", s.Kind(), s)
			}
			p.DrainOne(info)
		}
	}
	_, err := p.Ingest(chunk)
	drain()
	for errors.Is(err, nmea.ErrQueueFull) {
		_, err = p.Ingest(nil)
		drain()
	}
	return err
}
