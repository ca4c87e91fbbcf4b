package ipc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uakbr/bypass-methods/internal/logging"
	"github.com/uakbr/bypass-methods/internal/secmem"
)

// authTimeout bounds how long a connection may sit unauthenticated.
const authTimeout = 10 * time.Second

// Handler executes the operations the pipe exposes. The server owns framing,
// auth and replay protection; the handler owns semantics.
type Handler interface {
	TakeScreenshot(req ScreenshotRequest) ScreenshotResponse
	ListWindows() (WindowListResponse, error)
}

// Server accepts connections on the agent's pipe and dispatches requests to
// the handler. Each connection is authenticated with a pre-shared key proof
// before any operation runs.
type Server struct {
	key     *secmem.SecureString
	handler Handler
	limiter *RateLimiter
	ln      net.Listener

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewServer opens the listener. Serve must be called to accept connections.
func NewServer(pipeName, preSharedKey string, h Handler) (*Server, error) {
	if preSharedKey == "" {
		return nil, fmt.Errorf("ipc: pre-shared key not configured")
	}
	ln, err := Listen(pipeName)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen %s: %w", pipeName, err)
	}
	return &Server{
		key:     secmem.NewSecureString(preSharedKey),
		handler: h,
		limiter: NewRateLimiter(5, time.Minute),
		ln:      ln,
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts connections until Close. It returns nil after a clean close.
func (s *Server) Serve() error {
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("ipc: accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(nc)
		}()
	}
}

// Close stops accepting and waits for in-flight connections to finish.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.ln.Close()
	s.wg.Wait()
	s.key.Zero()
	return err
}

func (s *Server) handleConn(nc net.Conn) {
	conn := NewConn(nc)
	defer conn.Close()

	if err := s.authenticate(conn); err != nil {
		log.Warn("connection rejected", logging.KeyError, err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	for {
		env, err := conn.Recv()
		if err != nil {
			return
		}
		switch env.Type {
		case TypeScreenshot:
			s.handleScreenshot(conn, env)
		case TypeWindowList:
			s.handleWindowList(conn, env)
		case TypePing:
			conn.SendTyped(env.ID, TypePong, struct{}{})
		case TypeDisconnect:
			return
		default:
			conn.SendError(env.ID, env.Type, fmt.Sprintf("unknown message type %q", env.Type))
		}
	}
}

// authenticate runs the key-proof handshake. The auth_response still travels
// under the zero key; the session key takes effect for everything after it.
func (s *Server) authenticate(conn *Conn) error {
	conn.SetReadDeadline(time.Now().Add(authTimeout))

	env, err := conn.Recv()
	if err != nil {
		return fmt.Errorf("auth recv: %w", err)
	}
	if env.Type != TypeAuthRequest {
		conn.SendError(env.ID, TypeAuthResponse, "auth_request must be the first message")
		return fmt.Errorf("first message was %q", env.Type)
	}

	var req AuthRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		return fmt.Errorf("auth payload: %w", err)
	}

	reject := func(reason string) error {
		conn.SendTyped(env.ID, TypeAuthResponse, AuthResponse{Accepted: false, Reason: reason})
		return fmt.Errorf("auth rejected: %s", reason)
	}

	if req.ProtocolVersion != ProtocolVersion {
		return reject(fmt.Sprintf("protocol version %d not supported", req.ProtocolVersion))
	}
	if !s.limiter.Allow() {
		return reject("too many auth attempts")
	}
	if !VerifyKeyProof(s.key.Reveal(), env.ID, req.Proof) {
		return reject("invalid key proof")
	}

	sessionKey, err := GenerateSessionKey()
	if err != nil {
		return reject("internal error")
	}
	if err := conn.SendTyped(env.ID, TypeAuthResponse, AuthResponse{
		Accepted:   true,
		SessionKey: hex.EncodeToString(sessionKey),
	}); err != nil {
		return fmt.Errorf("auth send: %w", err)
	}
	conn.SetSessionKey(sessionKey)

	log.Info("client authenticated", "pid", req.PID)
	return nil
}

func (s *Server) handleScreenshot(conn *Conn, env *Envelope) {
	var req ScreenshotRequest
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			conn.SendTyped(env.ID, TypeScreenshotResult, ScreenshotResponse{
				Status: "error", Message: fmt.Sprintf("bad payload: %v", err),
			})
			return
		}
	}
	resp := s.handler.TakeScreenshot(req)
	conn.SendTyped(env.ID, TypeScreenshotResult, resp)
}

func (s *Server) handleWindowList(conn *Conn, env *Envelope) {
	resp, err := s.handler.ListWindows()
	if err != nil {
		conn.SendError(env.ID, TypeWindowListResult, err.Error())
		return
	}
	conn.SendTyped(env.ID, TypeWindowListResult, resp)
}

// NewRequestID produces an envelope ID. Exposed so handlers can correlate
// log lines with the IDs clients see.
func NewRequestID() string {
	return uuid.NewString()
}
