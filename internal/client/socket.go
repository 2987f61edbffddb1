package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pusherProtocol         = 7
	socketIOTimeout        = 10 * time.Second
	defaultActivityTimeout = 120 * time.Second
	pongTimeout            = 30 * time.Second

	eventConnectionEstablished = "pusher:connection_established"
	eventSubscribe             = "pusher:subscribe"
	eventSubscriptionSucceeded = "pusher_internal:subscription_succeeded"
	eventSubscriptionError     = "pusher:subscription_error"
	eventPing                  = "pusher:ping"
	eventPong                  = "pusher:pong"
	eventError                 = "pusher:error"
)

// PusherURL arma la URL de websocket de Pusher Channels para un cluster.
func PusherURL(key, cluster string) string {
	return fmt.Sprintf("wss://ws-%s.pusher.com:443/app/%s?protocol=%d&client=chat-relay-go&version=1.0",
		strings.TrimSpace(cluster), strings.TrimSpace(key), pusherProtocol)
}

type pusherFrame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ChannelEvent es un evento recibido en un canal suscripto. Data ya viene
// desempaquetado del string JSON con el que Pusher lo transporta.
type ChannelEvent struct {
	Channel string
	Event   string
	Data    []byte
}

// PusherError es un pusher:error o pusher:subscription_error.
type PusherError struct {
	Event   string
	Code    int
	Message string
}

func (e *PusherError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s %d: %s", e.Event, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Event, e.Message)
}

// PusherSocket es un cliente minimo del protocolo 7 de Pusher: handshake,
// suscripcion a canales privados, ping/pong y entrega de eventos.
type PusherSocket struct {
	url string

	mu              sync.RWMutex
	writeMu         sync.Mutex
	conn            *websocket.Conn
	closed          bool
	socketID        string
	activityTimeout time.Duration
	pending         map[string]chan error

	events chan ChannelEvent
	errs   chan error
	done   chan struct{}
}

func NewPusherSocket(url string) *PusherSocket {
	return &PusherSocket{
		url:     url,
		pending: make(map[string]chan error),
		events:  make(chan ChannelEvent, 64),
		errs:    make(chan error, 16),
		done:    make(chan struct{}),
	}
}

func (s *PusherSocket) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return nil
	}
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("socket is closed")
	}
	s.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: socketIOTimeout}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial pusher websocket: %w", err)
	}

	socketID, activity, err := readConnectionEstablished(conn)
	if err != nil {
		_ = conn.Close()
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.socketID = socketID
	s.activityTimeout = activity
	s.mu.Unlock()

	go s.readLoop()
	go s.keepalive(activity)
	return nil
}

func (s *PusherSocket) SocketID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.socketID
}

func (s *PusherSocket) Events() <-chan ChannelEvent {
	return s.events
}

func (s *PusherSocket) Errors() <-chan error {
	return s.errs
}

func (s *PusherSocket) Done() <-chan struct{} {
	return s.done
}

// Subscribe envia pusher:subscribe y espera la confirmacion del servidor.
func (s *PusherSocket) Subscribe(ctx context.Context, channel, auth string) error {
	result := make(chan error, 1)
	s.mu.Lock()
	if s.conn == nil || s.closed {
		s.mu.Unlock()
		return fmt.Errorf("socket is not connected")
	}
	s.pending[channel] = result
	s.mu.Unlock()

	data, err := json.Marshal(map[string]string{"channel": channel, "auth": auth})
	if err != nil {
		return fmt.Errorf("marshal subscribe: %w", err)
	}
	if err := s.writeFrame(ctx, pusherFrame{Event: eventSubscribe, Data: data}); err != nil {
		s.clearPending(channel)
		return err
	}

	timer := time.NewTimer(socketIOTimeout)
	defer timer.Stop()
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		s.clearPending(channel)
		return ctx.Err()
	case <-timer.C:
		s.clearPending(channel)
		return fmt.Errorf("subscribe %s: timed out waiting for confirmation", channel)
	case <-s.done:
		return fmt.Errorf("subscribe %s: socket closed", channel)
	}
}

func (s *PusherSocket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		s.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(500*time.Millisecond))
		s.writeMu.Unlock()
		_ = conn.Close()
	}
	close(s.done)
	return nil
}

func (s *PusherSocket) writeFrame(ctx context.Context, frame pusherFrame) error {
	s.mu.RLock()
	conn := s.conn
	closed := s.closed
	s.mu.RUnlock()
	if conn == nil || closed {
		return fmt.Errorf("socket is not connected")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	deadline := time.Now().Add(socketIOTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("write %s: %w", frame.Event, err)
	}
	return nil
}

func (s *PusherSocket) readLoop() {
	defer s.Close()
	for {
		s.mu.RLock()
		conn := s.conn
		closed := s.closed
		activity := s.activityTimeout
		s.mu.RUnlock()
		if conn == nil || closed {
			return
		}

		if err := conn.SetReadDeadline(time.Now().Add(activity + pongTimeout)); err != nil {
			s.pushErr(fmt.Errorf("set read deadline: %w", err))
			return
		}
		var frame pusherFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			s.pushErr(fmt.Errorf("read pusher frame: %w", err))
			return
		}
		s.handleFrame(frame)
	}
}

func (s *PusherSocket) handleFrame(frame pusherFrame) {
	switch frame.Event {
	case eventPing:
		if err := s.writeFrame(context.Background(), pusherFrame{Event: eventPong, Data: json.RawMessage(`{}`)}); err != nil {
			s.pushErr(err)
		}
	case eventPong:
	case eventSubscriptionSucceeded:
		s.resolvePending(frame.Channel, nil)
	case eventSubscriptionError:
		err := decodePusherError(eventSubscriptionError, frame.Data)
		if !s.resolvePending(frame.Channel, err) {
			s.pushErr(err)
		}
	case eventError:
		s.pushErr(decodePusherError(eventError, frame.Data))
	default:
		if frame.Channel == "" {
			return
		}
		ev := ChannelEvent{Channel: frame.Channel, Event: frame.Event, Data: unwrapData(frame.Data)}
		select {
		case s.events <- ev:
		default:
			s.pushErr(fmt.Errorf("dropping %s on %s because the event channel is full", ev.Event, ev.Channel))
		}
	}
}

// keepalive manda pusher:ping si no hubo actividad, como pide el protocolo.
func (s *PusherSocket) keepalive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.writeFrame(context.Background(), pusherFrame{Event: eventPing, Data: json.RawMessage(`{}`)}); err != nil {
				s.pushErr(err)
				return
			}
		}
	}
}

func (s *PusherSocket) resolvePending(channel string, err error) bool {
	s.mu.Lock()
	ch, ok := s.pending[channel]
	delete(s.pending, channel)
	s.mu.Unlock()
	if !ok {
		return false
	}
	ch <- err
	return true
}

func (s *PusherSocket) clearPending(channel string) {
	s.mu.Lock()
	delete(s.pending, channel)
	s.mu.Unlock()
}

func (s *PusherSocket) pushErr(err error) {
	if err == nil {
		return
	}
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return
	}
	select {
	case s.errs <- err:
	default:
	}
}

func readConnectionEstablished(conn *websocket.Conn) (string, time.Duration, error) {
	if err := conn.SetReadDeadline(time.Now().Add(socketIOTimeout)); err != nil {
		return "", 0, fmt.Errorf("set read deadline: %w", err)
	}
	var frame pusherFrame
	if err := conn.ReadJSON(&frame); err != nil {
		return "", 0, fmt.Errorf("read connection_established: %w", err)
	}
	if frame.Event == eventError {
		return "", 0, decodePusherError(eventError, frame.Data)
	}
	if frame.Event != eventConnectionEstablished {
		return "", 0, fmt.Errorf("unexpected first event %q", frame.Event)
	}
	var established struct {
		SocketID        string `json:"socket_id"`
		ActivityTimeout int    `json:"activity_timeout"`
	}
	if err := json.Unmarshal(unwrapData(frame.Data), &established); err != nil {
		return "", 0, fmt.Errorf("decode connection_established: %w", err)
	}
	if established.SocketID == "" {
		return "", 0, fmt.Errorf("connection_established without socket_id")
	}
	activity := defaultActivityTimeout
	if established.ActivityTimeout > 0 {
		activity = time.Duration(established.ActivityTimeout) * time.Second
	}
	return established.SocketID, activity, nil
}

func decodePusherError(event string, raw json.RawMessage) error {
	var payload struct {
		Code    int    `json:"code"`
		Status  int    `json:"status"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(unwrapData(raw), &payload)
	code := payload.Code
	if code == 0 {
		code = payload.Status
	}
	msg := payload.Message
	if msg == "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = string(unwrapData(raw))
	}
	return &PusherError{Event: event, Code: code, Message: msg}
}

// unwrapData devuelve el JSON interno cuando data viene como string.
func unwrapData(raw json.RawMessage) []byte {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return []byte(s)
		}
	}
	return raw
}
