package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	apperrors "github.com/naotama2002/mcp-auth-go/internal/errors"
)

const (
	// CallbackPath is the only path the listener recognizes
	CallbackPath = "/callback"

	// DefaultCallbackTimeout is how long to wait for the authorization
	// redirect before the flow is abandoned.
	DefaultCallbackTimeout = 120 * time.Second
)

// CallbackServer is a single-use local HTTP listener that captures the
// authorization redirect. It delivers exactly one terminal outcome to the
// caller, no matter how many requests arrive or whether the timeout races a
// request, and releases its port on every exit path.
//
// A request missing code or state gets a 400 page but leaves the listener
// up: the user can retry within the timeout window.
type CallbackServer struct {
	port     int
	server   *http.Server
	listener net.Listener
	resultCh chan *CallbackResult
	errCh    chan error
	once     sync.Once
}

// NewCallbackServer creates a callback server for the given loopback port.
// Port 0 asks the kernel for a free port; Port reports the bound one.
func NewCallbackServer(port int) *CallbackServer {
	return &CallbackServer{
		port:     port,
		resultCh: make(chan *CallbackResult, 1),
		errCh:    make(chan error, 1),
	}
}

// Start binds the loopback listener and begins serving. A bind conflict is
// reported as a port-in-use error, distinguishable from other bind failures.
func (s *CallbackServer) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return apperrors.Wrap(err, apperrors.PortInUseError,
				fmt.Sprintf("callback port %d is already in use", s.port))
		}
		return fmt.Errorf("failed to bind callback listener on %s: %w", addr, err)
	}

	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handleCallback)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errCh <- err:
			default:
			}
		}
	}()

	log.Debugf("Callback listener on http://localhost:%d%s", s.port, CallbackPath)
	return nil
}

// Port returns the bound port
func (s *CallbackServer) Port() int {
	return s.port
}

// RedirectURI returns the redirect URI served by this listener
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d%s", s.port, CallbackPath)
}

// Wait blocks until the callback resolves, the server fails, or timeout
// elapses. The listener is closed before Wait returns, on every path.
func (s *CallbackServer) Wait(timeout time.Duration) (*CallbackResult, error) {
	defer s.Close()

	select {
	case result := <-s.resultCh:
		return result, nil
	case err := <-s.errCh:
		return nil, err
	case <-time.After(timeout):
		return nil, apperrors.New(apperrors.TimeoutError,
			fmt.Sprintf("no authorization callback received within %s", timeout))
	}
}

// Close shuts the server down and releases the port
func (s *CallbackServer) Close() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		desc := query.Get("error_description")
		log.Debugf("Authorization server returned error %q: %s", errCode, desc)

		appErr := apperrors.New(apperrors.CallbackError,
			fmt.Sprintf("authorization failed: %s", errCode))
		if desc != "" {
			appErr = appErr.WithDetails(desc)
		}
		s.deliverError(appErr)

		writeErrorPage(w, errCode, desc)
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		// Malformed request: answer 400 but keep listening so a further
		// attempt within the timeout window can still succeed.
		log.Debug("Callback request missing code or state")
		writeMalformedPage(w)
		return
	}

	s.deliverResult(&CallbackResult{Code: code, State: state})
	writeSuccessPage(w)
}

// deliverResult resolves the pending wait exactly once
func (s *CallbackServer) deliverResult(result *CallbackResult) {
	s.once.Do(func() {
		s.resultCh <- result
	})
}

// deliverError rejects the pending wait exactly once
func (s *CallbackServer) deliverError(err error) {
	s.once.Do(func() {
		s.errCh <- err
	})
}
