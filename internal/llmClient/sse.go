package llmclient

import (
	"bufio"
	"bytes"
	"io"
)

// sseReader yields the data payload of each server-sent event.
type sseReader struct {
	r *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next event's data. Multiple data lines are joined with
// "\n". It returns io.EOF once the body is exhausted with no pending data.
func (s *sseReader) Next() ([]byte, error) {
	var data [][]byte
	for {
		line, err := s.r.ReadBytes('\n')
		line = bytes.TrimRight(line, "\r\n")
		if err != nil {
			if len(line) > 0 {
				data = appendData(data, line)
			}
			if len(data) > 0 {
				return bytes.Join(data, []byte("\n")), nil
			}
			return nil, err
		}
		if len(line) == 0 {
			if len(data) == 0 {
				continue
			}
			return bytes.Join(data, []byte("\n")), nil
		}
		if line[0] == ':' {
			continue
		}
		data = appendData(data, line)
	}
}

func appendData(dst [][]byte, line []byte) [][]byte {
	if !bytes.HasPrefix(line, []byte("data:")) {
		return dst
	}
	v := bytes.TrimPrefix(line[len("data:"):], []byte(" "))
	return append(dst, append([]byte(nil), v...))
}
