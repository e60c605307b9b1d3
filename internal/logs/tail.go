package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	maxLineSize  = 1024 * 1024
	followTicker = 250 * time.Millisecond
)

// TailOptions selects what Tail reads. A negative Offset returns the last
// Limit lines; otherwise lines after Offset are returned. With Follow, Tail
// waits up to Wait for new lines when none are available yet.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads path according to opts. A missing file yields no lines.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}
	wait := max(opts.Wait, 0)

	var result TailResult
	if opts.Offset < 0 {
		result.Lines, result.Offset, err = lastLines(path, opts.Limit)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// Truncated or replaced; start over from the current end.
			offset = info.Size()
		}
		result.Lines, result.Offset, err = linesFrom(path, offset)
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, err
	}
	if opts.Follow && wait > 0 && len(result.Lines) == 0 {
		return awaitLines(ctx, path, result.Offset, wait)
	}
	return result, nil
}

func lastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	var lines []string
	scanner := newScanner(file)
	for scanner.Scan() {
		if len(lines) == limit {
			lines = lines[1:]
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}
	return lines, end, nil
}

// linesFrom returns the complete lines after offset. A trailing partial
// line is left for the next call.
func linesFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		lines = append(lines, line[:len(line)-1])
	}
	return lines, offset, nil
}

func awaitLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(followTicker)
	defer ticker.Stop()

	for {
		lines, next, err := linesFrom(path, offset)
		if err != nil {
			return TailResult{Offset: offset}, err
		}
		if len(lines) > 0 || time.Now().After(deadline) {
			return TailResult{Lines: lines, Offset: next}, nil
		}
		select {
		case <-ctx.Done():
			return TailResult{Offset: next}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return scanner
}
