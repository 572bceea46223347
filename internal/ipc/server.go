package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/events"
)

const (
	writeTimeout = 5 * time.Second
	// subscriberBuffer bounds the events queued for one slow subscriber.
	subscriberBuffer = 64
)

// Handler answers one request. It is called from connection goroutines.
type Handler interface {
	Handle(req *Request) *Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(req *Request) *Response

func (f HandlerFunc) Handle(req *Request) *Response { return f(req) }

// Server handles IPC requests from clients
type Server struct {
	socketPath string
	listener   net.Listener
	handler    Handler
	bus        *events.Bus
	log        zerolog.Logger

	shutdownMu   sync.Mutex
	shuttingDown bool
	done         chan struct{}
	wg           sync.WaitGroup
}

// NewServer creates a new IPC server. A stale socket at socketPath is
// removed.
func NewServer(socketPath string, handler Handler, bus *events.Bus, log zerolog.Logger) *Server {
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		handler:    handler,
		bus:        bus,
		log:        log.With().Str("component", "ipc").Logger(),
		done:       make(chan struct{}),
	}
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.log.Info().Str("socket", s.socketPath).Msg("IPC server listening")

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) stopping() bool {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	return s.shuttingDown
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopping() {
				return
			}
			s.log.Warn().Err(err).Msg("IPC accept error")
			time.Sleep(50 * time.Millisecond)
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection reads one JSON line and writes one JSON line back. A
// SUBSCRIBE request keeps the connection open for the event stream.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(writeTimeout))
	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.log.Debug().Err(err).Msg("IPC read error")
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	if req.Command == CommandSubscribe {
		conn.SetReadDeadline(time.Time{})
		s.subscribe(conn, reader)
		return
	}

	resp := s.handler.Handle(req)
	if resp == nil {
		resp = NewErrorResponse("no response")
	}
	s.write(conn, resp)
}

func (s *Server) write(conn net.Conn, resp *Response) bool {
	respData, err := resp.Marshal()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal response")
		return false
	}
	respData = append(respData, '\n')
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write(respData); err != nil {
		s.log.Debug().Err(err).Msg("failed to send response")
		return false
	}
	return true
}

// subscribe acknowledges the request, then streams bus events as JSON
// lines until the client hangs up or the server stops. Events are dropped
// for a subscriber that falls too far behind.
func (s *Server) subscribe(conn net.Conn, reader *bufio.Reader) {
	if s.bus == nil {
		s.sendError(conn, "subscriptions are not available")
		return
	}
	ack, _ := NewOKResponse(nil)
	if !s.write(conn, ack) {
		return
	}

	ch := make(chan events.Event, subscriberBuffer)
	unsubscribe := s.bus.Subscribe(func(ev events.Event) {
		select {
		case ch <- ev:
		default:
			s.log.Warn().Str("event", string(ev.Kind)).Msg("subscriber too slow, dropping event")
		}
	})
	defer unsubscribe()

	gone := make(chan struct{})
	go func() {
		io.Copy(io.Discard, reader)
		close(gone)
	}()

	enc := json.NewEncoder(conn)
	for {
		select {
		case <-gone:
			return
		case <-s.done:
			return
		case ev := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := enc.Encode(ev); err != nil {
				s.log.Debug().Err(err).Msg("subscriber write failed")
				return
			}
		}
	}
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	s.write(conn, NewErrorResponse(errMsg))
}

// Stop closes the listener, ends subscriptions, waits for in-flight
// connections and removes the socket.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}
