package ws

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	domrepo "ChartSense/internal/domain/repository"
	"ChartSense/internal/service/ratelimit"
	transport "ChartSense/internal/service/metrics"
	xhttp "ChartSense/pkg/http"
	xlogger "ChartSense/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// StreamHandler upgrades GET /ws to a streaming session.
type StreamHandler struct {
	handler MessageHandler
	cfg     SessionConfig
	limiter *ratelimit.Limiter
	metrics domrepo.Metrics
	logger  *xlogger.Logger
	up      websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// StreamOption configures StreamHandler.
type StreamOption func(*StreamHandler)

// WithLimiter admits new connections through a per-IP token bucket.
func WithLimiter(l *ratelimit.Limiter) StreamOption {
	return func(h *StreamHandler) { h.limiter = l }
}

// WithAllowedOrigins restricts browser origins. Empty allows any origin.
func WithAllowedOrigins(origins []string) StreamOption {
	return func(h *StreamHandler) {
		if len(origins) > 0 {
			h.up.CheckOrigin = originChecker(origins)
		}
	}
}

func NewStreamHandler(handler MessageHandler, cfg SessionConfig, metrics domrepo.Metrics, logger *xlogger.Logger, opts ...StreamOption) *StreamHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &StreamHandler{
		handler: handler,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		up: websocket.Upgrader{
			ReadBufferSize:  64 << 10,
			WriteBufferSize: 16 << 10,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *StreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Stream)
}

func (h *StreamHandler) Stream(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		transport.AdmissionRejected.Inc()
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many connection attempts"))
	}
	select {
	case <-h.ctx.Done():
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("server shutting down"))
	default:
	}

	conn, err := h.up.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		h.logger.Debug("websocket upgrade failed", xlogger.Error(err))
		return nil
	}

	h.wg.Add(1)
	defer h.wg.Done()

	sess := NewSession(uuid.NewString(), conn, h.handler, h.cfg, h.metrics,
		h.logger.With(xlogger.String("remote", c.RealIP())))
	sess.Run(h.ctx)
	return nil
}

// SweepLoop evicts idle limiter buckets until ctx ends.
func (h *StreamHandler) SweepLoop(ctx context.Context, every time.Duration) {
	if h.limiter == nil {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.limiter.Sweep(every); n > 0 {
				h.logger.Debug("rate limiter swept", xlogger.Int("buckets", n))
			}
		}
	}
}

// Shutdown closes every open session and waits for them to finish.
func (h *StreamHandler) Shutdown(ctx context.Context) error {
	h.cancel()
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// non-browser clients such as the capture tool
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		if !ok {
			_, ok = set["*"]
		}
		return ok
	}
}
