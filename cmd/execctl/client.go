package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// apiClient is a minimal HTTP client over the execd surface (pkg/httpapi).
// It carries no retry/backoff logic: execctl is an interactive operator
// tool, not a long-running integration, so a failed request just surfaces
// as a command error.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(addr string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(addr, "/"),
		http:    &http.Client{},
	}
}

// do performs a JSON request/response round trip. A nil body sends no
// request body; a nil out skips decoding the response (the caller only
// cares about success/failure).
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("execctl: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("execctl: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execctl: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("execctl: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return apiError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// apiError renders the {"error", "detail"} body every handleXxx in
// pkg/httpapi writes via errJSON.
func apiError(status int, raw []byte) error {
	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return fmt.Errorf("execctl: server returned %d: %s", status, strings.TrimSpace(string(raw)))
	}
	return fmt.Errorf("execctl: server returned %d %s: %s", status, body.Error, body.Detail)
}

// streamEvents follows pkg/httpapi's SSE framing: a "ready" frame, then one
// "data: <json>" frame per normalized event, with ":heartbeat" comment
// frames interleaved. It writes only the JSON payload of each data frame,
// one per line, so the output is valid JSONL.
func (c *apiClient) streamEvents(ctx context.Context, w io.Writer, sessionID string, afterSeq int64) error {
	q := url.Values{"stream": {"1"}}
	if afterSeq > 0 {
		q.Set("after_seq", fmt.Sprintf("%d", afterSeq))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions/"+sessionID+"/events?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("execctl: build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execctl: tail events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return apiError(resp.StatusCode, raw)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		if _, err := fmt.Fprintln(w, data); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (c *apiClient) downloadFile(ctx context.Context, path, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("execctl: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execctl: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return apiError(resp.StatusCode, raw)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("execctl: create %s: %w", destPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("execctl: write %s: %w", destPath, err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
