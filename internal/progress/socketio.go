package progress

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Socket.io event names.
const (
	EventStarted  = "bundle_started"
	EventProgress = "bundle_progress"
	EventFinished = "bundle_finished"
)

// connectTimeout bounds the wait for the initial connection.
const connectTimeout = 15 * time.Second

// SocketConfig holds the socket.io connection settings.
type SocketConfig struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
}

// SocketIO pushes progress events over a socket.io connection.
type SocketIO struct {
	emit  func(event string, payload any)
	close func()
}

// DialSocketIO connects to the server and waits for the connection to be
// established.
func DialSocketIO(ctx context.Context, cfg SocketConfig) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("reporter", "socketio", "url", cfg.URL)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification.")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Progress socket connected.", "sid", io.Id())
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		logger.Warn("Progress socket failed to connect.", "error", err)
		select {
		case connectChan <- err:
		default:
		}
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", connectTimeout)
	}

	return &SocketIO{
		emit:  func(event string, payload any) { io.Emit(event, payload) },
		close: func() { io.Disconnect() },
	}, nil
}

// Start emits the run's candidate count.
func (s *SocketIO) Start(ctx context.Context, total int) {
	s.emit(EventStarted, map[string]any{"total": total})
}

// Update emits one progress event.
func (s *SocketIO) Update(ctx context.Context, ev Event) {
	s.emit(EventProgress, map[string]any{
		"done":    ev.Done,
		"total":   ev.Total,
		"percent": ev.Percent(),
		"key":     ev.Key,
		"name":    ev.Name,
		"state":   ev.State,
	})
}

// Finish emits the final event and closes the connection.
func (s *SocketIO) Finish(ctx context.Context) {
	s.emit(EventFinished, map[string]any{})
	s.close()
	ctxlog.FromContext(ctx).Debug("Progress socket closed.")
}
