package api

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// openStream issues a GET against an event-stream endpoint and returns the
// response body. The caller owns the body and must close it.
func openStream(ctx context.Context, client HTTPClient, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream error %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// readEvents scans SSE data lines from body and hands each payload to emit,
// in delivery order. Comment and event-name lines are skipped. Returns the
// scanner error on abnormal closure, nil on clean EOF.
func readEvents(body io.Reader, emit func(data string)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, ":") || strings.HasPrefix(line, "event:") {
			continue
		}
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			emit(data)
		} else if data, ok := strings.CutPrefix(line, "data:"); ok {
			emit(data)
		}
	}
	return scanner.Err()
}
