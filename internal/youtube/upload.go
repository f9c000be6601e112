package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// maxResponseBody caps how much of a chunk response body is retained. The
// final response is the created video resource, well under this.
const maxResponseBody = 4 * 1024 * 1024

// maxStalledChunks is how many consecutive 308 answers may leave the resume
// offset where it was before Transfer gives up.
const maxStalledChunks = 5

// ProgressFunc is called after each acknowledged chunk with the number of
// bytes the server has persisted and the total length.
type ProgressFunc func(acknowledged, total int64)

// Transfer streams payload to a session's upload URL in chunks of at most
// ChunkSize bytes, one request at a time, until the server answers 200/201
// or the payload is exhausted. It returns the final state; its Status and
// Body are the last response observed.
//
// A payload that implements io.ReaderAt can be resumed from any offset the
// server acknowledges. Other readers are consumed sequentially and keep the
// last chunk in memory, so the server may roll back at most into that chunk.
//
// Errors: *ChunkUploadError for any status other than 200/201/308,
// *StreamExhaustionError when payload ends early, *RangeError when the
// acknowledged offset cannot be served or fails to advance for
// maxStalledChunks answers in a row. Network errors are not retried.
// The caller owns payload and closes it.
func (c *Client) Transfer(
	ctx context.Context, uploadURL, contentType string,
	payload io.Reader, total int64, progress ProgressFunc,
) (State, error) {
	if contentType == "" {
		contentType = defaultContentType
	}

	src := newChunkSource(payload)
	st := State{Phase: Streaming}
	stalled := 0

	c.logger.Debug("starting transfer",
		slog.Int64("total", total),
		slog.Int64("chunk_size", c.chunkSize),
	)

	for !st.Terminal() && st.Offset < total {
		if err := ctx.Err(); err != nil {
			return st, fmt.Errorf("youtube: transfer canceled at offset %d: %w", st.Offset, err)
		}

		want := ChunkAt(st.Offset, c.chunkSize, total)

		data, err := src.chunkAt(st.Offset, want.Len())
		if err != nil {
			return st, err
		}

		if len(data) == 0 {
			return st, &StreamExhaustionError{Offset: st.Offset, Declared: total}
		}

		sent := Chunk{Start: st.Offset, End: st.Offset + int64(len(data)) - 1, Total: total}

		resp, err := c.putChunk(ctx, uploadURL, contentType, sent, data)
		if err != nil {
			return st, err
		}

		next := Next(st, sent, resp)

		switch next.Phase {
		case Failed:
			c.logger.Error("chunk upload failed",
				slog.Int("status", resp.Status),
				slog.Int64("offset", sent.Start),
			)

			return next, &ChunkUploadError{StatusCode: resp.Status, Body: resp.Body, Offset: sent.Start}

		case Streaming:
			if next.Offset > total {
				return next, &RangeError{Offset: next.Offset, Low: 0, High: total}
			}

			if next.Offset > st.Offset {
				stalled = 0
			} else if stalled++; stalled >= maxStalledChunks {
				c.logger.Error("server stopped advancing the upload",
					slog.Int64("offset", next.Offset),
					slog.Int("answers", stalled),
				)

				return next, &RangeError{Offset: next.Offset, Low: st.Offset + 1, High: total}
			}

			if next.Offset != sent.End+1 {
				c.logger.Info("server acknowledged a different offset than sent",
					slog.Int64("sent_end", sent.End),
					slog.Int64("resume_at", next.Offset),
				)
			}

			if progress != nil {
				progress(next.Offset, total)
			}

		case Done:
			if progress != nil {
				progress(total, total)
			}

			c.logger.Debug("transfer complete", slog.Int("status", next.Status))
		}

		st = next
	}

	return st, nil
}

// putChunk sends one chunk. The body length is always set so the
// transport never switches to chunked encoding.
func (c *Client) putChunk(
	ctx context.Context, uploadURL, contentType string, chunk Chunk, data []byte,
) (ChunkResponse, error) {
	c.logger.Debug("uploading chunk",
		slog.Int64("start", chunk.Start),
		slog.Int64("end", chunk.End),
		slog.Int64("total", chunk.Total),
	)

	var body io.Reader = bytes.NewReader(data)
	if c.wrapBody != nil {
		body = c.wrapBody(ctx, body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return ChunkResponse{}, fmt.Errorf("youtube: creating chunk request: %w", err)
	}

	if err := c.authorize(req); err != nil {
		return ChunkResponse{}, fmt.Errorf("youtube: %w", err)
	}

	req.ContentLength = int64(len(data))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Range", chunk.ContentRange())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("chunk request failed",
			slog.Int64("offset", chunk.Start),
			slog.String("error", err.Error()),
		)

		return ChunkResponse{}, fmt.Errorf("youtube: chunk request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return ChunkResponse{}, fmt.Errorf("youtube: reading chunk response: %w", err)
	}

	return ChunkResponse{
		Status: resp.StatusCode,
		Range:  resp.Header.Get("Range"),
		Body:   string(respBody),
	}, nil
}

// chunkSource hands out payload bytes by absolute offset.
type chunkSource interface {
	chunkAt(offset, n int64) ([]byte, error)
}

func newChunkSource(r io.Reader) chunkSource {
	if ra, ok := r.(io.ReaderAt); ok {
		return &readerAtSource{r: ra}
	}

	return &streamSource{r: r}
}

// readerAtSource reads any offset directly. Each chunk gets a fresh buffer
// because the transport may still hold the previous request body.
type readerAtSource struct {
	r io.ReaderAt
}

func (s *readerAtSource) chunkAt(offset, n int64) ([]byte, error) {
	buf := make([]byte, n)

	read, err := s.r.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("youtube: reading payload at %d: %w", offset, err)
	}

	return buf[:read], nil
}

// streamSource reads a plain io.Reader front to back. It retains the last
// chunk so a 308 that acknowledges part of it can be served again.
type streamSource struct {
	r      io.Reader
	window []byte
	start  int64 // payload offset of window[0]
}

func (s *streamSource) chunkAt(offset, n int64) ([]byte, error) {
	pos := s.start + int64(len(s.window)) // bytes consumed from r so far

	if offset < s.start || offset > pos {
		return nil, &RangeError{Offset: offset, Low: s.start, High: pos}
	}

	out := make([]byte, n)
	kept := copy(out, s.window[offset-s.start:])

	read, err := io.ReadFull(s.r, out[kept:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("youtube: reading payload at %d: %w", pos, err)
	}

	out = out[:kept+read]
	s.window = out
	s.start = offset

	return out, nil
}
