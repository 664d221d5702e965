package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/rcliao/markovbot/internal/model"
	"github.com/rcliao/markovbot/internal/session"
)

// Stream frame types.
const (
	FrameItem      = "item"
	FrameHeartbeat = "heartbeat"
)

// frame is one message on the filtered stream.
type frame struct {
	Type string    `json:"type"`
	Item *wireItem `json:"item,omitempty"`
}

type streamResult struct {
	item model.Item
	err  error
}

type wsStream struct {
	conn    *websocket.Conn
	results chan streamResult
	done    chan struct{}
	once    sync.Once
}

// OpenFilteredStream dials the websocket stream tracking phrase.
func (c *Client) OpenFilteredStream(ctx context.Context, phrase string) (session.Stream, error) {
	if c.cfg.StreamURL == "" {
		return nil, fmt.Errorf("%w: feed stream_url is not set", model.ErrConfiguration)
	}
	u, err := url.Parse(c.cfg.StreamURL)
	if err != nil {
		return nil, fmt.Errorf("%w: stream_url: %v", model.ErrConfiguration, err)
	}
	q := u.Query()
	q.Set("track", phrase)
	u.RawQuery = q.Encode()

	header := http.Header{}
	c.authorize(header)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: stream rejected with %d", model.ErrAuth, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: dial stream: %v", model.ErrTransient, err)
	}

	s := &wsStream{
		conn:    conn,
		results: make(chan streamResult),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *wsStream) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.send(streamResult{err: fmt.Errorf("%w: %v", model.ErrStreamInterrupted, err)})
			return
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		switch f.Type {
		case FrameHeartbeat:
			if !s.send(streamResult{item: model.Item{Heartbeat: true}}) {
				return
			}
		case FrameItem:
			if f.Item == nil {
				continue
			}
			if !s.send(streamResult{item: f.Item.toModel()}) {
				return
			}
		}
	}
}

func (s *wsStream) send(r streamResult) bool {
	select {
	case s.results <- r:
		return true
	case <-s.done:
		return false
	}
}

// Next blocks until the next item, the end of the stream, or ctx is done.
func (s *wsStream) Next(ctx context.Context) (model.Item, error) {
	select {
	case <-ctx.Done():
		return model.Item{}, ctx.Err()
	case <-s.done:
		return model.Item{}, model.ErrStreamInterrupted
	case r := <-s.results:
		return r.item, r.err
	}
}

func (s *wsStream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.conn.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	return err
}
