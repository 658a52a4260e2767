package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

// scriptedBody yields one scripted chunk per Read call, then EOF or a
// configured final error.
type scriptedBody struct {
	chunks [][]byte
	index  int
	err    error           // returned after the chunks run out; nil means EOF
	onRead func(index int) // called at the top of every Read
	closed bool
}

func (r *scriptedBody) Read(p []byte) (int, error) {
	if r.onRead != nil {
		r.onRead(r.index)
	}
	if r.index >= len(r.chunks) {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}

	chunk := r.chunks[r.index]
	r.index++
	return copy(p, chunk), nil
}

func (r *scriptedBody) Close() error {
	r.closed = true
	return nil
}

func byteChunks(parts ...string) [][]byte {
	chunks := make([][]byte, len(parts))
	for i, part := range parts {
		chunks[i] = []byte(part)
	}
	return chunks
}

func TestDrainBody_CapturesChunksInOrder(t *testing.T) {
	script := byteChunks("alpha", "beta", "gamma")
	body := &scriptedBody{chunks: script}

	chunks, err := DrainBody(context.Background(), body)
	if err != nil {
		t.Fatalf("DrainBody() error = %v", err)
	}

	if len(chunks) != len(script) {
		t.Fatalf("DrainBody() captured %d chunks, want %d", len(chunks), len(script))
	}
	for i, want := range script {
		if !bytes.Equal(chunks[i], want) {
			t.Errorf("chunk[%d] = %q, want %q", i, chunks[i], want)
		}
	}
}

func TestDrainBody_EmptyBody(t *testing.T) {
	chunks, err := DrainBody(context.Background(), &scriptedBody{})
	if err != nil {
		t.Fatalf("DrainBody() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("DrainBody() captured %d chunks, want 0", len(chunks))
	}
}

func TestDrainBody_ReadError(t *testing.T) {
	boom := errors.New("connection reset")
	body := &scriptedBody{chunks: byteChunks("first", "second"), err: boom}

	chunks, err := DrainBody(context.Background(), body)

	if !errors.Is(err, boom) {
		t.Fatalf("DrainBody() error = %v, want %v", err, boom)
	}
	if len(chunks) != 2 {
		t.Fatalf("DrainBody() captured %d chunks before the error, want 2", len(chunks))
	}
	if !bytes.Equal(chunks[0], []byte("first")) || !bytes.Equal(chunks[1], []byte("second")) {
		t.Errorf("partial chunks = %q, %q", chunks[0], chunks[1])
	}
}

func TestDrainBody_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	body := &scriptedBody{chunks: byteChunks("first", "second", "third")}
	body.onRead = func(index int) {
		if index == 0 {
			cancel()
		}
	}

	chunks, err := DrainBody(ctx, body)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("DrainBody() error = %v, want context.Canceled", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("DrainBody() captured %d chunks after cancellation, want 1", len(chunks))
	}
}

func TestReplayBody_OneChunkPerRead(t *testing.T) {
	replay := ReplayBody(byteChunks("alpha", "b", "gamma"))
	buf := make([]byte, 1024)

	want := []string{"alpha", "b", "gamma"}
	for i, chunk := range want {
		n, err := replay.Read(buf)
		if err != nil {
			t.Fatalf("Read %d error = %v", i, err)
		}
		if string(buf[:n]) != chunk {
			t.Errorf("Read %d = %q, want %q", i, buf[:n], chunk)
		}
	}

	if _, err := replay.Read(buf); err != io.EOF {
		t.Errorf("final Read error = %v, want io.EOF", err)
	}
}

func TestReplayBody_SmallBuffer(t *testing.T) {
	replay := ReplayBody(byteChunks("alpha", "beta"))

	var got bytes.Buffer
	buf := make([]byte, 2)
	for {
		n, err := replay.Read(buf)
		got.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read error = %v", err)
		}
	}

	if got.String() != "alphabeta" {
		t.Errorf("replayed bytes = %q, want %q", got.String(), "alphabeta")
	}
}

func TestReplayBody_Empty(t *testing.T) {
	replay := ReplayBody(nil)

	if _, err := replay.Read(make([]byte, 8)); err != io.EOF {
		t.Errorf("Read error = %v, want io.EOF", err)
	}
	if err := replay.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

// Drained chunk sequences replay exactly: same chunk boundaries, same
// bytes, same order.
func TestDrainReplay_RoundTrip(t *testing.T) {
	scripts := [][][]byte{
		byteChunks("data: {\"id\":1}\n\n", "data: {\"usage\":{\"prompt_tokens\":2}}\n\n", "data: [DONE]\n\n"),
		byteChunks("single"),
		byteChunks("a", "b", "c", "d", "e"),
		byteChunks("unicode ✓ chunk", "binary\x00chunk"),
	}

	for _, script := range scripts {
		drained, err := DrainBody(context.Background(), &scriptedBody{chunks: script})
		if err != nil {
			t.Fatalf("DrainBody() error = %v", err)
		}

		replay := ReplayBody(drained)
		buf := make([]byte, drainBufferSize)
		for i, want := range script {
			n, err := replay.Read(buf)
			if err != nil {
				t.Fatalf("Read %d error = %v", i, err)
			}
			if !bytes.Equal(buf[:n], want) {
				t.Errorf("replayed chunk[%d] = %q, want %q", i, buf[:n], want)
			}
		}
		if _, err := replay.Read(buf); err != io.EOF {
			t.Errorf("trailing Read error = %v, want io.EOF", err)
		}
	}
}

func TestFailSafeBody_DeliversPrefixThenOriginal(t *testing.T) {
	boom := errors.New("stream interrupted")
	rest := &scriptedBody{chunks: byteChunks(" and the tail"), err: boom}

	body := FailSafeBody(byteChunks("the ", "prefix"), rest)

	got, err := io.ReadAll(body)
	if !errors.Is(err, boom) {
		t.Fatalf("ReadAll() error = %v, want the original %v", err, boom)
	}
	if string(got) != "the prefix and the tail" {
		t.Errorf("ReadAll() = %q, want %q", got, "the prefix and the tail")
	}
}

func TestFailSafeBody_CloseClosesOriginal(t *testing.T) {
	rest := &scriptedBody{}
	body := FailSafeBody(byteChunks("prefix"), rest)

	if err := body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !rest.closed {
		t.Error("Close() did not reach the original body")
	}
}

func BenchmarkDrainReplay(b *testing.B) {
	frame := []byte("data: {\"choices\":[{\"delta\":{\"content\":\"hello world\"}}]}\n\n")
	script := make([][]byte, 64)
	for i := range script {
		script[i] = frame
	}

	buf := make([]byte, drainBufferSize)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		chunks, err := DrainBody(context.Background(), &scriptedBody{chunks: script})
		if err != nil {
			b.Fatal(err)
		}
		replay := ReplayBody(chunks)
		for {
			_, err := replay.Read(buf)
			if err == io.EOF {
				break
			}
			if err != nil {
				b.Fatal(err)
			}
		}
	}
}
