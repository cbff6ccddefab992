// Package relay provides a websocket hub that connects telegraph peers in different processes.
// It assigns each connection a handle and routes notifications between them, the way a
// desktop's window messaging routes them between programs.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/wavesurfer/mctg/client"
	"github.com/wavesurfer/mctg/internal/metrics"
)

// DefaultAddress on which the relay listens.
var DefaultAddress = fmt.Sprintf("localhost:%d", client.DefaultRelayPort)

const peerQueueSize = 256

type frame struct {
	messageType int
	data        []byte
}

type peer struct {
	handle client.Handle
	send   chan frame
}

// Server is the relay hub.
type Server struct {
	upgrader websocket.Upgrader

	mu         sync.Mutex
	peers      map[client.Handle]*peer
	nextHandle client.Handle
}

// NewServer returns a relay without peers.
func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		peers:      make(map[client.Handle]*peer),
		nextHandle: 1,
	}
}

// Peers returns the number of connected peers.
func (s *Server) Peers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// Router serves peers on / next to /health and /metrics.
func (s *Server) Router() *gin.Engine {
	r := metrics.NewRouter(log.Logger)
	r.GET("/", gin.WrapH(s))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"peers":   s.Peers(),
			"version": client.Version,
		})
	})
	return r
}

// ListenAndServe runs the relay on the given address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{Addr: addr, Handler: s.Router()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("address", addr).Msg("relay listening")
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ServeHTTP upgrades the request and serves the peer until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("cannot upgrade relay connection")
		return
	}

	p := s.attach()
	log.Info().Str("remote", conn.RemoteAddr().String()).Uint32("handle", uint32(p.handle)).Msg("peer connected")
	defer func() {
		s.detach(p)
		log.Info().Uint32("handle", uint32(p.handle)).Msg("peer disconnected")
	}()

	hello := client.NewMessage(client.HelloMessageName, uint32(p.handle)).String()
	err = conn.WriteMessage(websocket.TextMessage, []byte(hello))
	if err != nil {
		log.Error().Err(err).Msg("cannot greet peer")
		conn.Close()
		return
	}

	go s.writeLoop(conn, p)
	s.readLoop(conn, p)
}

func (s *Server) attach() *peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle := s.nextHandle
	s.nextHandle++
	if s.nextHandle == client.BroadcastHandle {
		s.nextHandle++
	}
	result := &peer{handle: handle, send: make(chan frame, peerQueueSize)}
	s.peers[handle] = result
	metrics.SetRelayPeers(len(s.peers))
	return result
}

func (s *Server) detach(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.peers[p.handle]; ok {
		delete(s.peers, p.handle)
		close(p.send)
		metrics.SetRelayPeers(len(s.peers))
	}
}

func (s *Server) readLoop(conn *websocket.Conn, p *peer) {
	defer conn.Close()
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Uint32("handle", uint32(p.handle)).Msg("cannot read next message")
			}
			return
		}

		switch msgType {
		case websocket.TextMessage:
			s.routeText(p, string(msg))
		case websocket.BinaryMessage:
			s.routeBinary(p, msg)
		default:
			log.Debug().Int("type", msgType).Msg("ignoring unknown message type")
		}
	}
}

func (s *Server) writeLoop(conn *websocket.Conn, p *peer) {
	defer conn.Close()
	for f := range p.send {
		err := conn.WriteMessage(f.messageType, f.data)
		if err != nil {
			log.Debug().Err(err).Uint32("handle", uint32(p.handle)).Msg("cannot write message")
			return
		}
	}
}

func (s *Server) routeText(from *peer, text string) {
	msg, err := client.ParseTextMessage(text)
	if err != nil {
		log.Warn().Err(err).Uint32("handle", uint32(from.handle)).Msg("invalid text message")
		metrics.RecordRelayFrame(metrics.KindText, metrics.RouteInvalid)
		return
	}
	_, to, _, err := msg.Control()
	if err != nil {
		log.Warn().Err(err).Uint32("handle", uint32(from.handle)).Msg("invalid control message")
		metrics.RecordRelayFrame(metrics.KindText, metrics.RouteInvalid)
		return
	}
	// peers cannot impersonate each other
	msg = msg.WithArg(0, uint32(from.handle))
	s.route(from, to, metrics.KindText, frame{messageType: websocket.TextMessage, data: []byte(msg.String())})
}

func (s *Server) routeBinary(from *peer, data []byte) {
	msg, err := client.ParseBinaryMessage(data)
	if err != nil {
		log.Warn().Err(err).Uint32("handle", uint32(from.handle)).Msg("invalid binary message")
		metrics.RecordRelayFrame(metrics.KindBinary, metrics.RouteInvalid)
		return
	}
	client.SetFrom(data, from.handle)
	s.route(from, msg.To, metrics.KindBinary, frame{messageType: websocket.BinaryMessage, data: data})
}

func (s *Server) route(from *peer, to client.Handle, kind string, f frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if to == client.BroadcastHandle {
		metrics.RecordRelayFrame(kind, metrics.RouteBroadcast)
		for _, p := range s.peers {
			s.deliverLocked(p, f)
		}
		return
	}
	target, ok := s.peers[to]
	if !ok {
		log.Debug().Uint32("from", uint32(from.handle)).Uint32("to", uint32(to)).Msg("dropping message to unknown peer")
		metrics.RecordRelayFrame(kind, metrics.RouteDropped)
		return
	}
	metrics.RecordRelayFrame(kind, metrics.RouteDirect)
	s.deliverLocked(target, f)
}

func (s *Server) deliverLocked(p *peer, f frame) {
	select {
	case p.send <- f:
	default:
		log.Warn().Uint32("handle", uint32(p.handle)).Msg("peer queue full, message dropped")
	}
}
