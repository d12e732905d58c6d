package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Rana718/seedbench/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	header   []string
	chunks   [][][]string
	failAt   int
	err      error
	columns  int
	blockFor time.Duration
}

func (r *recorder) ProcessHeader(_ context.Context, header []string) error {
	r.header = header
	if r.columns > 0 && len(header) != r.columns {
		return &model.SchemaMismatchError{Table: model.NewQualifiedName("public", "t"), Expected: r.columns, Actual: len(header)}
	}
	return nil
}

func (r *recorder) ProcessChunk(ctx context.Context, chunk [][]string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.blockFor > 0 {
		time.Sleep(r.blockFor)
	}
	r.chunks = append(r.chunks, chunk)
	if r.failAt > 0 && len(r.chunks) == r.failAt {
		return 0, r.err
	}
	return len(chunk), nil
}

func csvInput(rows int) string {
	var sb strings.Builder
	sb.WriteString("id, name ,qty\n")
	for i := 1; i <= rows; i++ {
		fmt.Fprintf(&sb, "%d, name%d ,%d\n", i, i, i%7)
	}
	return sb.String()
}

func TestReadChunks(t *testing.T) {
	rec := &recorder{}
	r := &Reader{ChunkSize: 16}
	res, err := r.Read(context.Background(), strings.NewReader(csvInput(97)), rec)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "qty"}, rec.header)
	require.Len(t, rec.chunks, 7)
	for _, c := range rec.chunks[:6] {
		assert.Len(t, c, 16)
	}
	assert.Len(t, rec.chunks[6], 1)
	assert.Equal(t, []string{"97", "name97", "6"}, rec.chunks[6][0])
	assert.Equal(t, int64(97), res.Consumed)
	assert.Equal(t, int64(97), res.Produced)
	assert.Equal(t, int64(97), res.Applied)
	assert.Equal(t, 7, res.Chunks)
}

func TestReadSkipsBlankLinesAndKeepsEmptyFields(t *testing.T) {
	input := "a;b\r\n\r\n;x\n  \n1;\n2;y"
	rec := &recorder{}
	res, err := (&Reader{ChunkSize: 2, Delimiter: ";"}).Read(context.Background(), strings.NewReader(input), rec)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Consumed)
	assert.Equal(t, [][][]string{
		{{"", "x"}, {"1", ""}},
		{{"2", "y"}},
	}, rec.chunks)
}

func TestReadQuotedFields(t *testing.T) {
	input := "id,note,qty\n" +
		`"1","a, b","3"` + "\n" +
		`"2", "say ""hi""" ,` + "\n" +
		`3,plain,""` + "\n"
	rec := &recorder{}
	res, err := (&Reader{Quote: `"`}).Read(context.Background(), strings.NewReader(input), rec)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Consumed)
	assert.Equal(t, []string{"id", "note", "qty"}, rec.header)
	require.Len(t, rec.chunks, 1)
	assert.Equal(t, [][]string{
		{"1", "a, b", "3"},
		{"2", `say "hi"`, ""},
		{"3", "plain", ""},
	}, rec.chunks[0])
}

func TestSplitMultiCharacterQuote(t *testing.T) {
	r := &Reader{Delimiter: "|", Quote: "''"}
	assert.Equal(t, []string{"a|b", "c", "x''y"}, r.split("''a|b''|c|''x''''y''"))
	assert.Equal(t, []string{"open"}, r.split("''open"))
}

func TestReadHeaderOnly(t *testing.T) {
	rec := &recorder{}
	res, err := (&Reader{}).Read(context.Background(), strings.NewReader("a,b\n"), rec)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Chunks)
	assert.Empty(t, rec.chunks)
}

func TestReadEmptyInput(t *testing.T) {
	_, err := (&Reader{}).Read(context.Background(), strings.NewReader(""), &recorder{})
	var cfg *model.ConfigurationError
	assert.True(t, errors.As(err, &cfg))
}

func TestReadHeaderMismatchStops(t *testing.T) {
	rec := &recorder{columns: 4}
	_, err := (&Reader{ChunkSize: 8}).Read(context.Background(), strings.NewReader(csvInput(10)), rec)
	var mismatch *model.SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 3, mismatch.Actual)
	assert.Empty(t, rec.chunks)
}

// endless yields data lines forever.
type endless struct {
	n int
}

func (e *endless) Read(p []byte) (int, error) {
	line := fmt.Sprintf("%d,x\n", e.n)
	if e.n == 0 {
		line = "id,v\n"
	}
	e.n++
	return copy(p, line), nil
}

func TestProcessorErrorCancelsProducer(t *testing.T) {
	boom := errors.New("boom")
	rec := &recorder{failAt: 2, err: boom}
	done := make(chan error, 1)
	go func() {
		_, err := (&Reader{ChunkSize: 32}).Read(context.Background(), &endless{}, rec)
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop after processor failure")
	}
	assert.Len(t, rec.chunks, 2)
}

func TestProcessorErrorClosesBlockedInput(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		_, _ = io.WriteString(pw, csvInput(20))
		// keep the writer open so the producer blocks on read
	}()
	boom := errors.New("boom")
	rec := &recorder{failAt: 1, err: boom}

	done := make(chan error, 1)
	go func() {
		_, err := (&Reader{ChunkSize: 16}).Read(context.Background(), pr, rec)
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop while producer was blocked on read")
	}
}

func TestHeaderTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	start := time.Now()
	_, err := (&Reader{HeaderTimeout: 50 * time.Millisecond}).Read(context.Background(), pr, &recorder{})
	assert.ErrorIs(t, err, ErrStalled)
	var ioErr *model.IOError
	assert.True(t, errors.As(err, &ioErr))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestStallTimeoutOnIdleInput(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		_, _ = io.WriteString(pw, "a,b\n1,2\n")
	}()
	_, err := (&Reader{ChunkSize: 4, StallTimeout: 50 * time.Millisecond}).Read(context.Background(), pr, &recorder{})
	assert.ErrorIs(t, err, ErrStalled)
}

func TestContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{blockFor: 10 * time.Millisecond}
	time.AfterFunc(50*time.Millisecond, cancel)
	_, err := (&Reader{ChunkSize: 8}).Read(ctx, &endless{}, rec)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueueSize(t *testing.T) {
	assert.Equal(t, MinQueueSize, (&Reader{ChunkSize: 16}).queueSize())
	assert.Equal(t, 5000, (&Reader{ChunkSize: 5000}).queueSize())
	assert.Equal(t, 2048, (&Reader{ChunkSize: 16, QueueSize: 2048}).queueSize())
}
