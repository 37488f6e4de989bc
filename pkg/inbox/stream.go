package inbox

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Stream consumes the server's SSE push channel and feeds events into an
// Inbox. It reconnects with capped exponential backoff and triggers a full
// refresh after every (re)connect, because the server does not replay events
// missed while disconnected.
type Stream struct {
	baseURL    string
	token      string
	httpClient *http.Client
	inbox      *Inbox
}

// NewStream creates a stream for the same API base URL as the client. The
// HTTP client must not have a global timeout; the stream response stays open
// for the lifetime of the connection.
func NewStream(baseURL, token string, inbox *Inbox) *Stream {
	return &Stream{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{},
		inbox:      inbox,
	}
}

// Run connects and processes events until the context is cancelled. It only
// returns the context's error; connection failures are retried internally.
func (s *Stream) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := s.connectOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_ = err

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (s *Stream) connectOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/notifications/stream", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "text/event-stream")

	res, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("inbox: stream returned status %d", res.StatusCode)
	}

	var eventName string
	var dataBuf strings.Builder

	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if eventName != "" {
				s.dispatch(ctx, eventName, dataBuf.String())
			}
			eventName = ""
			dataBuf.Reset()
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
		// Comment lines (":heartbeat") and unknown fields are ignored.
	}
	return scanner.Err()
}

func (s *Stream) dispatch(ctx context.Context, name, data string) {
	switch name {
	case "connected":
		// Gap recovery: the push channel carries no history, so the cache
		// re-baselines from the store on every connect.
		go func() {
			_ = s.inbox.Refresh(ctx)
		}()
	case "heartbeat":
		// Keep-alive only.
	default:
		s.inbox.HandleEvent(name, json.RawMessage(data))
	}
}
