package proxy

import (
	"bytes"
	"context"
	"io"
)

// drainBufferSize is the read window during a drain. Each Read call's
// bytes become one captured chunk.
const drainBufferSize = 32 * 1024

// DrainBody reads a response body to completion and returns the
// ordered chunk sequence, one chunk per Read call. The context is
// checked between reads; cancellation aborts the drain and returns the
// chunks captured so far with the context's error. A read error
// likewise returns the partial sequence alongside the error.
//
// Draining happens before the caller sees any byte, so time-to-first-
// byte grows to the full upstream duration. That cost is accepted:
// replaying captured chunks is the only way to observe a stream while
// guaranteeing the client receives identical bytes.
func DrainBody(ctx context.Context, body io.Reader) ([][]byte, error) {
	var chunks [][]byte
	buf := make([]byte, drainBufferSize)

	for {
		select {
		case <-ctx.Done():
			return chunks, ctx.Err()
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			chunks = append(chunks, chunk)
		}
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}
	}
}

// ReplayBody builds a body that yields the captured chunks in order,
// at most one chunk per Read call. Replaying a fully drained body is
// byte-identical to the original.
func ReplayBody(chunks [][]byte) io.ReadCloser {
	return &replayReader{chunks: chunks}
}

// FailSafeBody hands a partially drained body back to the caller: the
// already-captured prefix followed by the original reader, so the
// client sees the same bytes and then the same error it would have
// seen without observation. Closing closes the original body.
func FailSafeBody(prefix [][]byte, rest io.ReadCloser) io.ReadCloser {
	return &bodyWithCloser{
		Reader: io.MultiReader(bytes.NewReader(bytes.Join(prefix, nil)), rest),
		closer: rest,
	}
}

// replayReader yields one captured chunk per Read call. A caller
// buffer smaller than the current chunk receives the remainder on
// subsequent calls.
type replayReader struct {
	chunks [][]byte
	index  int
	offset int
}

func (r *replayReader) Read(p []byte) (int, error) {
	if r.index >= len(r.chunks) {
		return 0, io.EOF
	}

	n := copy(p, r.chunks[r.index][r.offset:])
	r.offset += n
	if r.offset >= len(r.chunks[r.index]) {
		r.index++
		r.offset = 0
	}

	return n, nil
}

func (r *replayReader) Close() error {
	return nil
}

// bodyWithCloser pairs a composite reader with the closer of the
// underlying body.
type bodyWithCloser struct {
	io.Reader
	closer io.Closer
}

func (b *bodyWithCloser) Close() error {
	return b.closer.Close()
}
