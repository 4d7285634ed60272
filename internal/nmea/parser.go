package nmea

import (
	"errors"
	"fmt"
	"log"
)

const (
	DefaultBufferSize = 1024
	MinBufferSize     = 256
)

var (
	ErrQueueFull = errors.New("nmea: sentence queue full")
	ErrClosed    = errors.New("nmea: parser closed")
)

// Options configures a Parser. The zero value is usable.
type Options struct {
	// BufferSize is the capacity of the byte buffer. Zero selects
	// DefaultBufferSize; smaller values are raised to MinBufferSize.
	BufferSize int
	// MaxQueue bounds the number of decoded sentences waiting to be drained.
	// Zero means unbounded.
	MaxQueue int
	// Logger receives one line per rejected sentence. Nil disables it.
	Logger *log.Logger
}

// Stats counts what a Parser has seen since it was created.
type Stats struct {
	Bytes        uint64 `json:"bytes"`
	Sentences    uint64 `json:"sentences"`
	Discarded    uint64 `json:"discarded"`
	DecodeErrors uint64 `json:"decode_errors"`
	Unknown      uint64 `json:"unknown"`
	Overflows    uint64 `json:"overflows"`
}

// Parser frames and decodes NMEA sentences from a byte stream delivered in
// arbitrary chunks. Decoded sentences wait in a FIFO queue until drained.
//
// A Parser is not safe for concurrent use; callers serialize all calls.
type Parser struct {
	buf      []byte
	size     int
	queue    []Sentence
	maxQueue int
	logger   *log.Logger
	stats    Stats
	closed   bool
}

func NewParser(opts Options) (*Parser, error) {
	if opts.BufferSize < 0 {
		return nil, fmt.Errorf("nmea: buffer size %d is negative", opts.BufferSize)
	}
	if opts.MaxQueue < 0 {
		return nil, fmt.Errorf("nmea: max queue %d is negative", opts.MaxQueue)
	}
	size := opts.BufferSize
	if size == 0 {
		size = DefaultBufferSize
	}
	if size < MinBufferSize {
		size = MinBufferSize
	}
	return &Parser{
		buf:      make([]byte, 0, size),
		size:     size,
		maxQueue: opts.MaxQueue,
		logger:   opts.Logger,
	}, nil
}

// Close discards every queued sentence and releases the buffer.
func (p *Parser) Close() {
	if p == nil || p.closed {
		return
	}
	for p.Drop() != KindNone {
	}
	p.queue = nil
	p.buf = nil
	p.closed = true
}

// BufferSize returns the capacity of the byte buffer.
func (p *Parser) BufferSize() int { return p.size }

// Buffered returns the number of bytes waiting for a sentence tail.
func (p *Parser) Buffered() int { return len(p.buf) }

// Len returns the number of queued sentences.
func (p *Parser) Len() int { return len(p.queue) }

func (p *Parser) Stats() Stats { return p.stats }

// Ingest appends data to the buffer and queues every complete sentence that
// passes its checksum and decodes. Data larger than the buffer is processed in
// buffer-sized slices. It returns the number of sentences queued by the call.
//
// If appending would fill the buffer, the unconsumed bytes are dropped first.
// When the queue is full Ingest stops with ErrQueueFull; the sentence that did
// not fit stays buffered and is retried by the next call, but slices of data
// after it were not buffered. Sentences queued before the error stay valid.
func (p *Parser) Ingest(data []byte) (int, error) {
	if p.closed {
		return 0, ErrClosed
	}
	total := 0
	for {
		n := len(data)
		if n > p.size {
			n = p.size
		}
		queued, err := p.push(data[:n])
		total += queued
		if err != nil {
			return total, err
		}
		data = data[n:]
		if len(data) == 0 {
			return total, nil
		}
	}
}

func (p *Parser) push(data []byte) (int, error) {
	if len(p.buf)+len(data) >= p.size {
		if len(p.buf) > 0 {
			p.stats.Overflows++
			p.logf("nmea: buffer overflow, dropped %d bytes", len(p.buf))
		}
		p.buf = p.buf[:0]
	}
	p.buf = append(p.buf, data...)
	p.stats.Bytes += uint64(len(data))

	parsed, queued := 0, 0
	for {
		n, crc := FindTail(p.buf[parsed:])
		if n == 0 {
			break
		}
		if crc < 0 {
			p.stats.Discarded++
			parsed += n
			continue
		}

		sent := p.buf[parsed : parsed+n]
		kind := Classify(sent[1:])
		if kind == KindNone {
			p.stats.Unknown++
			parsed += n
			continue
		}
		s, err := Decode(kind, sent)
		if err != nil {
			p.stats.DecodeErrors++
			p.logf("nmea: drop %q: %v", sent, err)
			parsed += n
			continue
		}
		if p.maxQueue > 0 && len(p.queue) >= p.maxQueue {
			p.compact(parsed)
			return queued, ErrQueueFull
		}
		p.queue = append(p.queue, s)
		p.stats.Sentences++
		queued++
		parsed += n
	}

	p.compact(parsed)
	return queued, nil
}

// compact moves the bytes after off to the front of the buffer.
func (p *Parser) compact(off int) {
	if off == 0 {
		return
	}
	n := copy(p.buf, p.buf[off:])
	p.buf = p.buf[:n]
}

func (p *Parser) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}

// Peek returns the kind of the oldest queued sentence without removing it.
func (p *Parser) Peek() Kind {
	if len(p.queue) == 0 {
		return KindNone
	}
	return p.queue[0].Kind()
}

// PeekSentence returns the oldest queued sentence without removing it, or nil.
func (p *Parser) PeekSentence() Sentence {
	if len(p.queue) == 0 {
		return nil
	}
	return p.queue[0]
}

func (p *Parser) pop() Sentence {
	if len(p.queue) == 0 {
		return nil
	}
	s := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	if len(p.queue) == 0 {
		p.queue = nil
	}
	return s
}

// Drop removes the oldest queued sentence without merging it and returns its
// kind.
func (p *Parser) Drop() Kind {
	s := p.pop()
	if s == nil {
		return KindNone
	}
	return s.Kind()
}

// DrainOne removes the oldest queued sentence, merges it into info and
// returns its kind. It returns KindNone when the queue is empty.
func (p *Parser) DrainOne(info *Info) Kind {
	s := p.pop()
	if s == nil {
		return KindNone
	}
	info.Apply(s)
	return s.Kind()
}

// Parse ingests data and drains the whole queue into info. It returns the
// number of sentences merged.
func (p *Parser) Parse(data []byte, info *Info) (int, error) {
	_, err := p.Ingest(data)
	n := 0
	for p.DrainOne(info) != KindNone {
		n++
	}
	return n, err
}
