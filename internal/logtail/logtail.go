package logtail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// chunkSize is how much Read pulls from the end of the file per step.
const chunkSize = 32 * 1024

// Read returns at most maxLines from the end of the file at path. A
// maxLines of zero or less returns every line. A missing file yields no
// lines and no error.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	if maxLines <= 0 {
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return splitLines(data), nil
	}

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log: %w", err)
	}
	data, err := tailBytes(file, info.Size(), maxLines)
	if err != nil {
		return nil, err
	}

	lines := splitLines(data)
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines, nil
}

// tailBytes reads backwards from size in chunks until the buffer holds more
// than maxLines line breaks or the start of the file is reached. The first
// line of the result may be partial; it is dropped by the caller's trim.
func tailBytes(r io.ReaderAt, size int64, maxLines int) ([]byte, error) {
	var buf []byte
	off := size
	for off > 0 {
		n := int64(chunkSize)
		if off < n {
			n = off
		}
		off -= n

		chunk := make([]byte, n)
		if _, err := r.ReadAt(chunk, off); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read log: %w", err)
		}
		buf = append(chunk, buf...)

		if bytes.Count(buf, []byte{'\n'}) > maxLines {
			break
		}
	}
	return buf, nil
}

func splitLines(data []byte) []string {
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
