package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"ChartSense/internal/domain/models"
	applogger "ChartSense/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

// Config drives a capture session.
type Config struct {
	URL      string
	UserID   string
	Interval time.Duration
	// Count stops after this many frames have been answered; 0 runs until
	// the context ends.
	Count int
	// MaxRetry bounds reconnect time; 0 retries forever.
	MaxRetry time.Duration
}

// Client streams frames from a Source and prints the replies.
type Client struct {
	cfg    Config
	src    Source
	out    io.Writer
	l      *applogger.Logger
	dialer *websocket.Dialer
}

func NewClient(cfg Config, src Source, out io.Writer, l *applogger.Logger) *Client {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Client{
		cfg:    cfg,
		src:    src,
		out:    out,
		l:      l,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

var errDone = errors.New("capture finished")

// Run connects and streams, reconnecting with exponential backoff until
// ctx ends, Count frames are answered, or MaxRetry elapses.
func (c *Client) Run(ctx context.Context) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 500 * time.Millisecond
	eb.MaxInterval = 30 * time.Second
	eb.MaxElapsedTime = c.cfg.MaxRetry
	b := backoff.WithContext(eb, ctx)

	answered := 0
	op := func() error {
		conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
		}
		b.Reset()
		c.l.Info("connected", applogger.String("url", c.cfg.URL))
		err = c.session(ctx, conn, &answered)
		if errors.Is(err, errDone) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, d time.Duration) {
		c.l.Warn("connection lost, retrying", applogger.Error(err), applogger.Duration("in", d))
	}

	err := backoff.RetryNotify(op, b, notify)
	if errors.Is(err, errDone) || ctx.Err() != nil {
		return nil
	}
	return err
}

// session sends a frame every Interval and prints replies until a read or
// write fails. answered counts processed frames across reconnects.
func (c *Client) session(ctx context.Context, conn *websocket.Conn, answered *int) error {
	done := make(chan struct{})
	defer func() {
		close(done)
		_ = conn.Close()
	}()

	replies := make(chan struct{}, 16)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			if !c.print(raw) {
				continue
			}
			select {
			case replies <- struct{}{}:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	pending := 0
	send := func() error {
		if c.cfg.Count > 0 && *answered+pending >= c.cfg.Count {
			return nil
		}
		img, err := c.src.Capture()
		if err != nil {
			c.l.Warn("capture failed", applogger.Error(err))
			return nil
		}
		data, err := EncodeFrame(img)
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(models.InboundMessage{Type: models.MsgFrame, Data: data, UserID: c.cfg.UserID}); err != nil {
			return fmt.Errorf("send frame: %w", err)
		}
		pending++
		return nil
	}

	if err := send(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return ctx.Err()
		case err := <-readErr:
			for len(replies) > 0 {
				<-replies
				*answered++
			}
			if c.cfg.Count > 0 && *answered >= c.cfg.Count {
				return errDone
			}
			return fmt.Errorf("read: %w", err)
		case <-replies:
			*answered++
			if pending > 0 {
				pending--
			}
			if c.cfg.Count > 0 && *answered >= c.cfg.Count {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				return errDone
			}
		case <-ticker.C:
			if err := send(); err != nil {
				return err
			}
		}
	}
}

type reply struct {
	Type    string `json:"type"`
	Action  string `json:"action"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	W       int    `json:"w"`
	H       int    `json:"h"`
	Text    string `json:"text"`
	Message string `json:"message"`
}

// print writes one line per reply and reports whether it closes a frame.
func (c *Client) print(raw []byte) bool {
	var r reply
	if err := json.Unmarshal(raw, &r); err != nil {
		fmt.Fprintf(c.out, "?? %s\n", raw)
		return false
	}
	switch r.Type {
	case models.MsgOverlay:
		if r.Action == models.ActionDrawText {
			fmt.Fprintf(c.out, "overlay %s x=%d y=%d %q\n", r.Action, r.X, r.Y, r.Text)
		} else {
			fmt.Fprintf(c.out, "overlay %s x=%d y=%d w=%d h=%d\n", r.Action, r.X, r.Y, r.W, r.H)
		}
		return false
	case models.MsgInfo:
		fmt.Fprintf(c.out, "info %s\n", r.Message)
		return r.Message == models.HeartbeatMessage
	case models.MsgError:
		fmt.Fprintf(c.out, "error %s\n", r.Message)
		return true
	default:
		fmt.Fprintf(c.out, "%s\n", raw)
		return false
	}
}
