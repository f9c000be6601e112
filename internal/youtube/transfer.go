package youtube

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// DefaultChunkSize is the chunk size used unless SetChunkSize overrides it.
// The protocol requires every chunk except the last to be a multiple of
// 256 KiB.
const DefaultChunkSize = 256 * 1024

// StatusResumeIncomplete is the 308 the server sends after a partial
// write. Its Range header reports the bytes persisted so far.
const StatusResumeIncomplete = http.StatusPermanentRedirect

// Phase is the position of a transfer in its state machine.
type Phase int

// Transfer phases. Streaming is the only non-terminal one.
const (
	Streaming Phase = iota
	Done
	Failed
)

func (p Phase) String() string {
	switch p {
	case Streaming:
		return "streaming"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the progress of one transfer: the next byte offset to send and
// the last response observed. It lives only as long as one Transfer call.
type State struct {
	Phase  Phase
	Offset int64
	Status int
	Body   string
}

// Terminal reports whether no further chunk may be sent.
func (s State) Terminal() bool {
	return s.Phase != Streaming
}

// Chunk is an inclusive byte range [Start, End] of a payload of Total bytes.
type Chunk struct {
	Start int64
	End   int64
	Total int64
}

// Len returns the number of bytes in the chunk.
func (c Chunk) Len() int64 {
	return c.End - c.Start + 1
}

// ContentRange renders the Content-Range request header value.
func (c Chunk) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", c.Start, c.End, c.Total)
}

// ChunkAt returns the chunk starting at offset: min(size, total-offset)
// bytes, never past total. The caller guarantees offset < total.
func ChunkAt(offset, size, total int64) Chunk {
	n := min(size, total-offset)

	return Chunk{Start: offset, End: offset + n - 1, Total: total}
}

// PlanChunks partitions [0, total) into consecutive chunks of at most size
// bytes, which is the sequence Transfer sends when every chunk is
// acknowledged in full.
func PlanChunks(total, size int64) []Chunk {
	if total <= 0 || size <= 0 {
		return nil
	}

	chunks := make([]Chunk, 0, (total+size-1)/size)
	for off := int64(0); off < total; {
		c := ChunkAt(off, size, total)
		chunks = append(chunks, c)
		off = c.End + 1
	}

	return chunks
}

// ChunkResponse is the part of a chunk PUT response the state machine
// looks at.
type ChunkResponse struct {
	Status int
	Range  string
	Body   string
}

// Next is the transition function of the transfer state machine. It maps
// the current state, the chunk just sent and the server's response to the
// following state. It performs no I/O.
//
// On 308 the next offset comes from the server's Range header, not from
// what was sent: the server may have kept fewer bytes. Without a usable
// header the offset advances to sent.End+1.
func Next(st State, sent Chunk, resp ChunkResponse) State {
	switch resp.Status {
	case StatusResumeIncomplete:
		return State{
			Phase:  Streaming,
			Offset: nextOffset(resp.Range, sent.End+1),
			Status: resp.Status,
			Body:   resp.Body,
		}
	case http.StatusOK, http.StatusCreated:
		return State{Phase: Done, Offset: sent.End + 1, Status: resp.Status, Body: resp.Body}
	default:
		return State{Phase: Failed, Offset: st.Offset, Status: resp.Status, Body: resp.Body}
	}
}

// nextOffset parses a "bytes=0-N" Range header into N+1. Missing or
// malformed headers yield fallback.
func nextOffset(header string, fallback int64) int64 {
	unit, spec, ok := strings.Cut(strings.TrimSpace(header), "=")
	if !ok || strings.TrimSpace(unit) != "bytes" {
		return fallback
	}

	parts := strings.Split(spec, "-")
	if len(parts) != 2 {
		return fallback
	}

	last, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil || last < 0 {
		return fallback
	}

	return last + 1
}
