package session

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// tailState is the read position for one file
type tailState struct {
	lines  int   // complete lines consumed so far, never decreases
	offset int64 // byte offset of the first unconsumed byte
}

// Tailer hands out only the lines appended to a file since the previous call.
// Only newline-terminated lines are consumed; a partially written last line
// stays on disk until its newline arrives.
type Tailer struct {
	mu    sync.Mutex
	files map[string]*tailState
}

// NewTailer creates an empty tailer. Unknown paths start at line zero.
func NewTailer() *Tailer {
	return &Tailer{files: make(map[string]*tailState)}
}

// ReadNewLines returns the complete lines written to path since the last
// successful call and advances the stored position past them.
// On any I/O failure it returns the error and leaves the position untouched,
// so the next successful read picks up everything since the last advance.
func (t *Tailer) ReadNewLines(path string) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.files[path]
	if st == nil {
		st = &tailState{}
	}

	lines, offset, err := readFrom(path, st.offset)
	if err != nil {
		return nil, err
	}

	if offset < st.offset {
		// File shrank: re-baseline at the new end without replaying anything.
		t.files[path] = &tailState{lines: st.lines, offset: offset}
		return nil, nil
	}

	t.files[path] = &tailState{lines: st.lines + len(lines), offset: offset}
	return lines, nil
}

// Prime marks every complete line currently in path as consumed without
// returning it, so only later growth is reported.
func (t *Tailer) Prime(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	lines, offset, err := readFrom(path, 0)
	if err != nil {
		return err
	}

	if st := t.files[path]; st != nil && st.lines > len(lines) {
		t.files[path] = &tailState{lines: st.lines, offset: offset}
		return nil
	}
	t.files[path] = &tailState{lines: len(lines), offset: offset}
	return nil
}

// Consumed returns how many lines of path have been handed out (or primed)
func (t *Tailer) Consumed(path string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st := t.files[path]; st != nil {
		return st.lines
	}
	return 0
}

// readFrom reads complete lines starting at offset and returns them with the
// offset just past the last newline. If the file is now shorter than offset,
// it returns no lines and the current size.
func readFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path) //nolint:gosec // path comes from the watched directory
	if err != nil {
		return nil, offset, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() < offset {
		return nil, info.Size(), nil
	}

	if offset > 0 {
		if _, err := file.Seek(offset, io.SeekStart); err != nil {
			return nil, offset, fmt.Errorf("seek %s to %d: %w", path, offset, err)
		}
	}

	var lines []string
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Whatever is left has no newline yet.
				break
			}
			return nil, offset, fmt.Errorf("read %s: %w", path, err)
		}

		offset += int64(len(line))
		line = bytes.TrimRight(line, "\r\n")
		lines = append(lines, string(line))
	}

	return lines, offset, nil
}
