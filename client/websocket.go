package client

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// DefaultRelayPort of the relay hub.
const DefaultRelayPort = 40701

// HelloTimeout is the duration to wait for the relay to assign a handle.
var HelloTimeout = 2 * time.Second

type clientConn interface {
	RemoteAddr() net.Addr
	Close() error
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
}

// WebsocketTransport connects to a relay hub. Notification types travel as their registered names,
// so every peer of a relay agrees on them.
type WebsocketTransport struct {
	url       string
	dialer    *websocket.Dialer
	queueSize int

	mu       sync.Mutex
	messages map[string]MessageType
	names    map[MessageType]string
}

// NewWebsocketTransport returns a transport that opens its endpoints on the relay at the given url.
func NewWebsocketTransport(url string) *WebsocketTransport {
	return &WebsocketTransport{
		url:       url,
		dialer:    websocket.DefaultDialer,
		queueSize: DefaultQueueSize,
		messages:  make(map[string]MessageType),
		names:     make(map[MessageType]string),
	}
}

// RegisterMessage implements Transport.
func (t *WebsocketTransport) RegisterMessage(name string) (MessageType, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.registerLocked(name), nil
}

func (t *WebsocketTransport) registerLocked(name string) MessageType {
	if id, ok := t.messages[name]; ok {
		return id
	}
	id := firstRegisteredMessage + MessageType(len(t.messages))
	t.messages[name] = id
	t.names[id] = name
	return id
}

func (t *WebsocketTransport) nameOf(id MessageType) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	name, ok := t.names[id]
	if !ok {
		return "", fmt.Errorf("%w: 0x%04X", ErrUnknownMessage, uint32(id))
	}
	return name, nil
}

// typeOf resolves a name received from the relay. Names unknown so far are registered on the fly.
func (t *WebsocketTransport) typeOf(name string) MessageType {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.registerLocked(name)
}

// Open implements Transport. It dials the relay and waits for the hello message.
func (t *WebsocketTransport) Open() (Endpoint, error) {
	conn, _, err := t.dialer.Dial(t.url, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot open websocket connection: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(HelloTimeout))
	handle, err := readHello(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Time{})
	log.Debug().Str("relay", conn.RemoteAddr().String()).Uint32("handle", uint32(handle)).Msg("connected to relay")

	result := &wsEndpoint{
		transport: t,
		handle:    handle,
		queue:     make(chan Notification, t.queueSize),
		writeChan: make(chan outgoingFrame, t.queueSize),
		closed:    make(chan struct{}),
	}
	go result.readLoop(conn)
	go result.writeLoop(conn)
	return result, nil
}

func readHello(conn clientConn) (Handle, error) {
	msgType, msg, err := conn.ReadMessage()
	if err != nil {
		return 0, fmt.Errorf("cannot read hello message: %w", err)
	}
	if msgType != websocket.TextMessage {
		return 0, fmt.Errorf("unexpected first message type: %d", msgType)
	}
	hello, err := ParseTextMessage(string(msg))
	if err != nil {
		return 0, err
	}
	if hello.Name() != HelloMessageName {
		return 0, fmt.Errorf("expected hello message, got %q", hello)
	}
	handle, err := hello.ToUint32(0)
	if err != nil {
		return 0, fmt.Errorf("invalid hello message %q: %w", hello, err)
	}
	return Handle(handle), nil
}

type outgoingFrame struct {
	messageType int
	data        []byte
}

type wsEndpoint struct {
	transport *WebsocketTransport
	handle    Handle
	queue     chan Notification
	writeChan chan outgoingFrame
	closed    chan struct{}
	closeOnce sync.Once
}

func (e *wsEndpoint) Handle() Handle {
	return e.handle
}

func (e *wsEndpoint) readLoop(conn clientConn) {
	defer conn.Close()
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-e.closed:
			default:
				log.Error().Err(err).Msg("cannot read next message from relay")
			}
			e.Close()
			return
		}

		var n Notification
		switch msgType {
		case websocket.TextMessage:
			n, err = e.textNotification(string(msg))
		case websocket.BinaryMessage:
			n, err = e.binaryNotification(msg)
		default:
			err = fmt.Errorf("unknown message type: %d", msgType)
		}
		if err != nil {
			log.Warn().Err(err).Msg("cannot parse incoming message")
			continue
		}
		if err := e.enqueue(n); err != nil {
			log.Warn().Err(err).Stringer("notification", n).Msg("incoming notification dropped")
		}
	}
}

func (e *wsEndpoint) textNotification(s string) (Notification, error) {
	msg, err := ParseTextMessage(s)
	if err != nil {
		return Notification{}, err
	}
	from, _, param, err := msg.Control()
	if err != nil {
		return Notification{}, err
	}
	return Notification{
		Type:  e.transport.typeOf(msg.Name()),
		From:  from,
		Param: param,
	}, nil
}

func (e *wsEndpoint) binaryNotification(b []byte) (Notification, error) {
	msg, err := ParseBinaryMessage(b)
	if err != nil {
		return Notification{}, err
	}
	return Notification{
		Type: MessageCopyData,
		From: msg.From,
		Tag:  e.transport.typeOf(msg.Tag),
		Data: msg.Data,
	}, nil
}

func (e *wsEndpoint) writeLoop(conn clientConn) {
	defer conn.Close()
	for {
		select {
		case <-e.closed:
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-e.writeChan:
			err := conn.WriteMessage(frame.messageType, frame.data)
			if err != nil {
				log.Error().Err(err).Msg("cannot write message to relay")
				e.Close()
				return
			}
		}
	}
}

func (e *wsEndpoint) Broadcast(n Notification) error {
	return e.Send(BroadcastHandle, n)
}

func (e *wsEndpoint) Send(to Handle, n Notification) error {
	if e.isClosed() {
		return ErrEndpointClosed
	}

	var frame outgoingFrame
	if n.Type == MessageCopyData {
		tag, err := e.transport.nameOf(n.Tag)
		if err != nil {
			return err
		}
		frame = outgoingFrame{
			messageType: websocket.BinaryMessage,
			data:        BinaryMessage{From: e.handle, To: to, Tag: tag, Data: n.Data}.Bytes(),
		}
	} else {
		name, err := e.transport.nameOf(n.Type)
		if err != nil {
			return err
		}
		frame = outgoingFrame{
			messageType: websocket.TextMessage,
			data:        []byte(NewControlMessage(name, e.handle, to, n.Param).String()),
		}
	}

	select {
	case e.writeChan <- frame:
		return nil
	case <-e.closed:
		return ErrEndpointClosed
	default:
		return ErrQueueFull
	}
}

// Post never leaves the process.
func (e *wsEndpoint) Post(n Notification) error {
	n.From = e.handle
	return e.enqueue(n)
}

func (e *wsEndpoint) enqueue(n Notification) error {
	if e.isClosed() {
		return ErrEndpointClosed
	}
	select {
	case e.queue <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

func (e *wsEndpoint) Receive(ctx context.Context) (Notification, error) {
	select {
	case n := <-e.queue:
		return n, nil
	case <-e.closed:
		return Notification{}, ErrEndpointClosed
	case <-ctx.Done():
		return Notification{}, ctx.Err()
	}
}

func (e *wsEndpoint) Close() error {
	e.closeOnce.Do(func() {
		close(e.closed)
	})
	return nil
}

func (e *wsEndpoint) isClosed() bool {
	select {
	case <-e.closed:
		return true
	default:
		return false
	}
}
