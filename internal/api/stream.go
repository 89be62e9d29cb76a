// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

// STREAMING: Robust SSE parsing with error handling

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// MaxRecordSize is the maximum allowed size for a single SSE record (64KB).
const MaxRecordSize = 64 * 1024

// readChunkSize is the read buffer granularity. Deliberately small relative
// to records so chunk boundaries land anywhere, including inside multi-byte
// runes; the reader only works on bytes until a record is complete.
const readChunkSize = 4096

// recordChanBuffer sizes the event channel so fast producers don't stall on
// a slow UI frame.
const recordChanBuffer = 64

// =============================================================================
// EVENT READER
// =============================================================================

// EventReader splits an SSE byte stream into complete records. Records are
// delimited by a blank line; both \n\n and \r\n\r\n delimiters are accepted.
//
// UNICODE: accumulation is byte-level. A network chunk boundary can fall in
// the middle of a multi-byte UTF-8 sequence; nothing here converts to text,
// so split points never corrupt content. Callers decode complete records.
type EventReader struct {
	r   io.Reader
	buf []byte
	eof bool
}

// NewEventReader creates a reader over an SSE response body.
func NewEventReader(r io.Reader) *EventReader {
	return &EventReader{r: r}
}

// Next returns the next complete record, in arrival order. It returns io.EOF
// once the stream is exhausted. When the stream ends with buffered bytes and
// no trailing delimiter, the remainder is flushed as a final record.
func (er *EventReader) Next() ([]byte, error) {
	for {
		if rec, ok := er.extract(); ok {
			if len(bytes.TrimSpace(rec)) == 0 {
				continue // consecutive blank lines produce empty records
			}
			return rec, nil
		}

		if er.eof {
			// EOF flush: hand any trailing partial record through the
			// same path the delimited records took.
			if len(er.buf) > 0 {
				rec := er.buf
				er.buf = nil
				if len(bytes.TrimSpace(rec)) > 0 {
					return rec, nil
				}
			}
			return nil, io.EOF
		}

		if err := er.fill(); err != nil {
			return nil, err
		}
	}
}

// extract pops one complete record off the front of the buffer.
func (er *EventReader) extract() ([]byte, bool) {
	idx, delim := findDelimiter(er.buf)
	if idx < 0 {
		return nil, false
	}
	rec := er.buf[:idx]
	er.buf = er.buf[idx+delim:]
	return rec, true
}

// fill reads more bytes into the buffer, flagging EOF for the flush path.
func (er *EventReader) fill() error {
	if len(er.buf) > MaxRecordSize {
		return &APIError{Message: "SSE record too large", Status: 0}
	}
	chunk := make([]byte, readChunkSize)
	n, err := er.r.Read(chunk)
	if n > 0 {
		er.buf = append(er.buf, chunk[:n]...)
	}
	if err == io.EOF {
		er.eof = true
		return nil
	}
	return err
}

// findDelimiter locates the earliest record delimiter, preferring the one
// that starts first so mixed streams stay ordered.
func findDelimiter(buf []byte) (idx, length int) {
	lf := bytes.Index(buf, []byte("\n\n"))
	crlf := bytes.Index(buf, []byte("\r\n\r\n"))

	switch {
	case lf < 0 && crlf < 0:
		return -1, 0
	case crlf < 0:
		return lf, 2
	case lf < 0:
		return crlf, 4
	case crlf < lf:
		return crlf, 4
	default:
		// The two patterns cannot overlap, so plain index order decides.
		return lf, 2
	}
}

// =============================================================================
// STREAMING SEND
// =============================================================================

// sendMessageRequest is the body of a streaming message send.
type sendMessageRequest struct {
	Content       string `json:"content"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// SendMessage posts a user message to a session and returns the event stream
// for the resulting reading turn. Events arrive on the returned channel in
// server order; it is closed when the turn completes or fails. A terminal
// stream error, if any, is delivered on the error channel.
//
// The returned channels are lazy: nothing is read from the network faster
// than the consumer drains events. Cancel ctx to abandon the turn.
func (c *Client) SendMessage(ctx context.Context, sessionID, content, correlationID string) (<-chan Event, <-chan error, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	resp, err := c.openStream(ctx, sessionID, content, correlationID)
	if err != nil {
		return nil, nil, err
	}

	events := make(chan Event, recordChanBuffer)
	errc := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errc)
		defer resp.Body.Close()

		reader := NewEventReader(resp.Body)
		for {
			select {
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			default:
			}

			rec, err := reader.Next()
			if err != nil {
				if err == io.EOF {
					return
				}
				errc <- err
				return
			}

			ev, err := ParseEvent(rec)
			if err != nil {
				// Malformed payloads are a local skip; the stream
				// carries on and later events still apply.
				log.Printf("skipping malformed stream record: %v", err)
				continue
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()

	return events, errc, nil
}

// openStream performs the streaming POST with the same one-refresh-and-replay
// interceptor as REST calls. The response body is left open for the caller.
func (c *Client) openStream(ctx context.Context, sessionID, content, correlationID string) (*http.Response, error) {
	path := "/chat/sessions/" + sessionID + "/messages/"
	body := sendMessageRequest{Content: content, CorrelationID: correlationID}

	resp, err := c.openStreamOnce(ctx, path, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if refreshErr := c.refreshTokens(ctx); refreshErr != nil {
			c.expireSession()
			return nil, ErrUnauthorized
		}
		resp, err = c.openStreamOnce(ctx, path, body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			c.expireSession()
			return nil, ErrUnauthorized
		}
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrSessionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()
		return nil, handleErrorResponse(resp.StatusCode, respBody)
	}
	return resp, nil
}

func (c *Client) openStreamOnce(ctx context.Context, path string, body sendMessageRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, payload, true)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")

	logRequest(http.MethodPost, path)
	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
