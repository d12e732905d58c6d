package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Rana718/seedbench/internal/model"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultChunkSize = 256
	// MinQueueSize is the smallest line queue; larger chunks get a queue of
	// one chunk.
	MinQueueSize = 1024
)

// ErrStalled is returned when the input or the consumer makes no progress
// within the configured timeout.
var ErrStalled = errors.New("ingest stalled")

// ChunkProcessor receives the header once, then chunks of split rows.
// ProcessChunk returns the number of rows applied.
type ChunkProcessor interface {
	ProcessHeader(ctx context.Context, header []string) error
	ProcessChunk(ctx context.Context, chunk [][]string) (int, error)
}

// Result summarises one Read.
type Result struct {
	// Produced counts data lines read from the input, excluding the header
	// and blank lines.
	Produced int64
	// Consumed counts rows handed to ProcessChunk.
	Consumed int64
	// Applied sums the counts returned by ProcessChunk.
	Applied int64
	Chunks  int
	Elapsed time.Duration
}

// Reader splits line-delimited input into chunks. A producer goroutine reads
// lines into a bounded queue and a consumer goroutine drains it into chunks,
// so the producer never runs more than one queue ahead of the processor.
type Reader struct {
	ChunkSize int
	Delimiter string
	// Quote, when set, marks quoted fields: the quotes are removed, a doubled
	// quote inside stands for one and delimiters inside are kept.
	Quote     string
	QueueSize int
	// HeaderTimeout bounds the read of the first line; zero waits forever.
	HeaderTimeout time.Duration
	// StallTimeout bounds every queue wait; zero waits forever.
	StallTimeout time.Duration
	Logger       *slog.Logger
}

func (r *Reader) chunkSize() int {
	if r.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return r.ChunkSize
}

func (r *Reader) queueSize() int {
	return max(r.QueueSize, MinQueueSize, r.chunkSize())
}

func (r *Reader) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

func (r *Reader) split(line string) []string {
	delim := r.Delimiter
	if delim == "" {
		delim = ","
	}
	if r.Quote == "" {
		fields := strings.Split(line, delim)
		for i, f := range fields {
			fields[i] = strings.TrimSpace(f)
		}
		return fields
	}

	var fields []string
	for {
		s := strings.TrimLeft(line, " \t")
		if !strings.HasPrefix(s, r.Quote) {
			field, rest, found := strings.Cut(s, delim)
			fields = append(fields, strings.TrimSpace(field))
			if !found {
				return fields
			}
			line = rest
			continue
		}
		field, rest := unquote(s[len(r.Quote):], r.Quote)
		fields = append(fields, field)
		_, rest, found := strings.Cut(rest, delim)
		if !found {
			return fields
		}
		line = rest
	}
}

// unquote reads a quoted field up to its closing quote and returns the
// field and the text after the quote. An unterminated field runs to the end
// of s.
func unquote(s, quote string) (string, string) {
	var b strings.Builder
	for {
		i := strings.Index(s, quote)
		if i < 0 {
			b.WriteString(s)
			return b.String(), ""
		}
		b.WriteString(s[:i])
		s = s[i+len(quote):]
		if !strings.HasPrefix(s, quote) {
			return b.String(), s
		}
		b.WriteString(quote)
		s = s[len(quote):]
	}
}

// Read consumes in until end of input, a processor failure or ctx
// cancellation. The input is closed on failure when it is an io.Closer so a
// blocked read returns.
func (r *Reader) Read(ctx context.Context, in io.Reader, p ChunkProcessor) (Result, error) {
	start := time.Now()
	var res Result
	closeInput := sync.OnceFunc(func() {
		if c, ok := in.(io.Closer); ok {
			_ = c.Close()
		}
	})
	stop := context.AfterFunc(ctx, closeInput)
	defer stop()

	br := bufio.NewReaderSize(in, 64*1024)
	header, err := r.readHeader(ctx, br, closeInput)
	if err != nil {
		return res, err
	}
	if err := p.ProcessHeader(ctx, r.split(header)); err != nil {
		closeInput()
		return res, err
	}

	lines := make(chan string, r.queueSize())
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(lines)
		return r.produce(gctx, br, lines, &res.Produced)
	})
	g.Go(func() error {
		err := r.consume(gctx, lines, p, &res)
		if err != nil {
			closeInput()
		}
		return err
	})

	err = g.Wait()
	res.Elapsed = time.Since(start)
	if err != nil {
		return res, err
	}
	if res.Produced != res.Consumed {
		r.logger().Warn("row count mismatch", "produced", res.Produced, "consumed", res.Consumed)
	}
	r.logger().Info("ingest finished", "rows", res.Consumed, "applied", res.Applied,
		"chunks", res.Chunks, "elapsed", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

type lineResult struct {
	line string
	err  error
}

func (r *Reader) readHeader(ctx context.Context, br *bufio.Reader, closeInput func()) (string, error) {
	done := make(chan lineResult, 1)
	go func() {
		line, err := br.ReadString('\n')
		done <- lineResult{line, err}
	}()

	var timeout <-chan time.Time
	if r.HeaderTimeout > 0 {
		t := time.NewTimer(r.HeaderTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case res := <-done:
		line := strings.TrimRight(res.line, "\r\n")
		if res.err != nil && !errors.Is(res.err, io.EOF) {
			return "", &model.IOError{Err: fmt.Errorf("failed to read header: %w", res.err)}
		}
		if strings.TrimSpace(line) == "" {
			return "", model.ErrConfiguration("input has no header line")
		}
		return line, nil
	case <-timeout:
		closeInput()
		return "", &model.IOError{Err: fmt.Errorf("%w: no header line within %s", ErrStalled, r.HeaderTimeout)}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *Reader) produce(ctx context.Context, br *bufio.Reader, lines chan<- string, produced *int64) error {
	for {
		line, err := br.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) != "" {
			if err := r.send(ctx, lines, line); err != nil {
				return err
			}
			*produced++
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &model.IOError{Row: *produced, Err: err}
		}
	}
}

func (r *Reader) send(ctx context.Context, lines chan<- string, line string) error {
	select {
	case lines <- line:
		return nil
	default:
	}
	var timeout <-chan time.Time
	if r.StallTimeout > 0 {
		t := time.NewTimer(r.StallTimeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case lines <- line:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return fmt.Errorf("%w: queue full for %s", ErrStalled, r.StallTimeout)
	}
}

func (r *Reader) consume(ctx context.Context, lines <-chan string, p ChunkProcessor, res *Result) error {
	size := r.chunkSize()
	chunk := make([][]string, 0, size)
	logger := r.logger()

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		start := time.Now()
		n, err := p.ProcessChunk(ctx, chunk)
		res.Consumed += int64(len(chunk))
		res.Applied += int64(n)
		res.Chunks++
		elapsed := time.Since(start)
		logger.Debug("chunk processed", "chunk", res.Chunks, "rows", len(chunk), "applied", n,
			"elapsed", elapsed, "rows_per_sec", int64(float64(len(chunk))/max(elapsed.Seconds(), 1e-9)))
		chunk = make([][]string, 0, size)
		return err
	}

	var timeout <-chan time.Time
	var timer *time.Timer
	if r.StallTimeout > 0 {
		timer = time.NewTimer(r.StallTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("%w: no input for %s", ErrStalled, r.StallTimeout)
		case line, ok := <-lines:
			if !ok {
				return flush()
			}
			chunk = append(chunk, r.split(line))
			if len(chunk) >= size {
				if err := flush(); err != nil {
					return err
				}
			}
			if timer != nil {
				timer.Reset(r.StallTimeout)
			}
		}
	}
}
