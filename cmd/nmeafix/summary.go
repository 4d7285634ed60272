package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nmeafix/internal/nmea"
	"nmeafix/internal/replay"
)

type captureSummary struct {
	Segments    int
	Chunks      int
	Bytes       int
	MaxDuration time.Duration
	KindCounts  map[nmea.Kind]int
	Stats       nmea.Stats
}

// summarizeCapture runs every chunk through a fresh parser. Each segment
// starts with an empty buffer, as it did when it was recorded.
func summarizeCapture(records []replay.Record) (captureSummary, error) {
	s := captureSummary{KindCounts: map[nmea.Kind]int{}}
	var p *nmea.Parser
	var total nmea.Stats
	info := nmea.NewInfo()

	flush := func() {
		if p == nil {
			return
		}
		st := p.Stats()
		total.Bytes += st.Bytes
		total.Sentences += st.Sentences
		total.Discarded += st.Discarded
		total.DecodeErrors += st.DecodeErrors
		total.Unknown += st.Unknown
		total.Overflows += st.Overflows
		p.Close()
		p = nil
	}
	defer flush()

	for _, r := range records {
		if r.IsStart() {
			flush()
			s.Segments++
			continue
		}
		if p == nil {
			var err error
			if p, err = nmea.NewParser(nmea.Options{}); err != nil {
				return s, err
			}
			if s.Segments == 0 {
				s.Segments = 1
			}
		}
		s.Chunks++
		s.Bytes += len(r.Chunk)
		if r.At > s.MaxDuration {
			s.MaxDuration = r.At
		}
		if _, err := p.Ingest(r.Chunk); err != nil {
			return s, err
		}
		for k := p.DrainOne(&info); k != nmea.KindNone; k = p.DrainOne(&info) {
			s.KindCounts[k]++
		}
	}
	flush()
	s.Stats = total
	return s, nil
}

func printCaptureSummary(w io.Writer, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	recs, err := replay.Open(path)
	if err != nil {
		return err
	}
	s, err := summarizeCapture(recs)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "chunks: %d\n", s.Chunks)
	fmt.Fprintf(w, "bytes: %d\n", s.Bytes)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)
	fmt.Fprintf(w, "checksum_errors: %d\n", s.Stats.Discarded)
	fmt.Fprintf(w, "decode_errors: %d\n", s.Stats.DecodeErrors)
	fmt.Fprintf(w, "unknown: %d\n", s.Stats.Unknown)
	fmt.Fprintf(w, "overflows: %d\n", s.Stats.Overflows)
	fmt.Fprintf(w, "sentence_counts:\n")
	for _, k := range nmea.Kinds {
		fmt.Fprintf(w, "  %s: %d\n", k, s.KindCounts[k])
	}
	return nil
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <capture>",
		Short: "Print statistics for a capture log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCaptureSummary(cmd.OutOrStdout(), args[0])
		},
	}
}
