// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package teereader

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
)

const (
	// MaxBufferSize is the number of trailing raw bytes retained for Bytes().
	MaxBufferSize = 8 * 1024 * 1024
	// MaxLineLength is the longest partial line held before it is emitted as a line.
	MaxLineLength = 64 * 1024
	ellipsis      = "..."
)

// LineTeeReader wraps an io.Reader, calls OnLine for every complete line and keeps a copy of
// the last MaxBufferSize bytes read. Lines are delivered in stream order with the trailing "\n" or "\r\n" removed.
// The final unterminated line is delivered when the underlying reader returns io.EOF or
// when Flush is called.
//
// Reads must come from a single goroutine. The accessors are safe for concurrent use.
type LineTeeReader struct {
	reader    io.Reader
	onLine    func(string)
	buf       bytes.Buffer
	partial   []byte
	lastLine  string
	truncated bool
	mu        sync.RWMutex
}

// New creates a LineTeeReader. onLine may be nil.
func New(r io.Reader, onLine func(string)) *LineTeeReader {
	return &LineTeeReader{
		reader: r,
		onLine: onLine,
	}
}

// Read implements io.Reader.
// The callback is invoked after the internal lock is released so it may call the accessors.
func (lt *LineTeeReader) Read(p []byte) (int, error) {
	n, err := lt.reader.Read(p)

	var lines []string

	if n > 0 {
		lt.mu.Lock()
		lt.store(p[:n])
		lines = lt.split(p[:n])
		lt.mu.Unlock()
	}

	if errors.Is(err, io.EOF) {
		if l, ok := lt.takePartial(); ok {
			lines = append(lines, l)
		}
	}

	lt.emit(lines)

	return n, err //nolint:wrapcheck
}

// Drain reads until EOF or error, returning nil on EOF.
func (lt *LineTeeReader) Drain() error {
	_, err := io.Copy(io.Discard, lt)

	return err //nolint:wrapcheck
}

// Flush delivers any buffered partial line.
func (lt *LineTeeReader) Flush() {
	if l, ok := lt.takePartial(); ok {
		lt.emit([]string{l})
	}
}

// LastLine returns the last complete line seen.
// If maxLength > 3 and the line is longer, it is cut and "..." appended.
func (lt *LineTeeReader) LastLine(maxLength int) string {
	lt.mu.RLock()
	defer lt.mu.RUnlock()

	l := lt.lastLine
	if maxLength > len(ellipsis) && len(l) > maxLength {
		l = l[:maxLength-len(ellipsis)] + ellipsis
	}

	return l
}

// Bytes returns a copy of the retained output.
func (lt *LineTeeReader) Bytes() []byte {
	lt.mu.RLock()
	defer lt.mu.RUnlock()

	return bytes.Clone(lt.buf.Bytes())
}

// String returns the retained output with surrounding whitespace trimmed.
func (lt *LineTeeReader) String() string {
	return strings.TrimSpace(string(lt.Bytes()))
}

// Truncated reports whether the start of the output was discarded because MaxBufferSize was reached.
func (lt *LineTeeReader) Truncated() bool {
	lt.mu.RLock()
	defer lt.mu.RUnlock()

	return lt.truncated
}

// store must be called with the write lock held.
// Once the buffer is full the oldest bytes are dropped, up to the end of the line they cut.
func (lt *LineTeeReader) store(b []byte) {
	lt.buf.Write(b)

	over := lt.buf.Len() - MaxBufferSize
	if over <= 0 {
		return
	}

	lt.buf.Next(over)
	lt.truncated = true

	if i := bytes.IndexByte(lt.buf.Bytes(), '\n'); i >= 0 && i < MaxLineLength {
		lt.buf.Next(i + 1)
	}
}

// split must be called with the write lock held.
func (lt *LineTeeReader) split(b []byte) []string {
	var lines []string

	for len(b) > 0 {
		i := bytes.IndexByte(b, '\n')
		if i < 0 {
			lt.partial = append(lt.partial, b...)
			if len(lt.partial) >= MaxLineLength {
				lines = append(lines, lt.complete())
			}

			break
		}

		lt.partial = append(lt.partial, b[:i]...)
		lines = append(lines, lt.complete())
		b = b[i+1:]
	}

	return lines
}

// complete must be called with the write lock held.
func (lt *LineTeeReader) complete() string {
	l := string(bytes.TrimSuffix(lt.partial, []byte{'\r'}))
	lt.partial = lt.partial[:0]
	lt.lastLine = l

	return l
}

func (lt *LineTeeReader) takePartial() (string, bool) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if len(lt.partial) == 0 {
		return "", false
	}

	return lt.complete(), true
}

func (lt *LineTeeReader) emit(lines []string) {
	if lt.onLine == nil {
		return
	}

	for _, l := range lines {
		lt.onLine(l)
	}
}
