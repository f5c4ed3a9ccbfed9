package hume

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

// Stream is the incremental analysis mode: base64 audio frames go out over
// one websocket, prediction events come back as they are computed.
type Stream struct {
	conn   *ws.Conn
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

type streamFrame struct {
	Data   string              `json:"data"`
	Models map[string]struct{} `json:"models"`
}

type streamEvent struct {
	Prosody struct {
		Predictions []struct {
			Emotions []rawEmotion `json:"emotions"`
		} `json:"predictions"`
	} `json:"prosody"`
}

// OpenStream dials the streaming endpoint. The caller owns the returned
// stream and must Close it.
func (c *Client) OpenStream(onEmotions func([]EmotionScore)) (*Stream, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("streaming requires a hume api key")
	}

	url := wsBaseURL(c.cfg.BaseURL) + "/v0/stream/models?api_key=" + c.cfg.APIKey
	dialer := ws.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial hume stream: %w", err)
	}

	s := &Stream{conn: conn, logger: c.logger}
	go s.readLoop(onEmotions)
	return s, nil
}

func (s *Stream) readLoop(onEmotions func([]EmotionScore)) {
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) && !s.isClosed() {
				s.logger.Warn("hume stream read failed", "error", err)
			}
			return
		}

		var event streamEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			s.logger.Debug("unparseable stream event", "error", err)
			continue
		}
		if len(event.Prosody.Predictions) == 0 {
			continue
		}
		if onEmotions != nil {
			onEmotions(ExtractEmotions(event.Prosody.Predictions[0].Emotions))
		}
	}
}

// SendAudio ships one raw audio chunk as a base64 frame.
func (s *Stream) SendAudio(chunk []byte) error {
	frame := streamFrame{
		Data:   base64.StdEncoding.EncodeToString(chunk),
		Models: map[string]struct{}{"prosody": {}, "language": {}},
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal stream frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stream closed")
	}
	return s.conn.WriteMessage(ws.TextMessage, payload)
}

func (s *Stream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	return s.conn.Close()
}

func wsBaseURL(httpURL string) string {
	switch {
	case len(httpURL) > 8 && httpURL[:8] == "https://":
		return "wss://" + httpURL[8:]
	case len(httpURL) > 7 && httpURL[:7] == "http://":
		return "ws://" + httpURL[7:]
	}
	return httpURL
}
