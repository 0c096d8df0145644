package session

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nicktill/tinychart/pkg/config"
	"github.com/nicktill/tinychart/pkg/render"
	"github.com/nicktill/tinychart/pkg/series"
	"github.com/nicktill/tinychart/pkg/widget"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Same-origin pages, or non-browser clients that send no Origin
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
	ReadBufferSize:  config.WSReadBufferSize,
	WriteBufferSize: config.WSWriteBufferSize,
}

// Command types sent by the widget page.
const (
	CommandSelect = "select"
	CommandClick  = "click"
	CommandExport = "export"
)

// Event types sent to the widget page.
const (
	EventSession = "session"
	EventState   = "state"
	EventChart   = "chart"
	EventClick   = "click"
	EventExport  = "export"
	EventError   = "error"
)

// Command is a message from the browser.
type Command struct {
	Type      string `json:"type"`
	Timeframe string `json:"timeframe,omitempty"`
	X         int    `json:"x,omitempty"`
	Y         int    `json:"y,omitempty"`
	Index     *int   `json:"index,omitempty"`
}

// Event is a message to the browser. Which fields are set depends on Type.
type Event struct {
	Type       string           `json:"type"`
	Session    string           `json:"session,omitempty"`
	Phase      string           `json:"phase,omitempty"`
	Timeframe  series.Timeframe `json:"timeframe,omitempty"`
	Generation uint64           `json:"generation,omitempty"`

	// chart, click and export carry a PNG as a data URL
	Image  string `json:"image,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Points *int   `json:"points,omitempty"`

	// Pointers keep a zero index, value or point count on the wire
	Index     *int     `json:"index,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Message   string   `json:"message,omitempty"`

	Filename string `json:"filename,omitempty"`

	Kind  string `json:"kind,omitempty"`
	Error string `json:"error,omitempty"`
}

// Factory builds the widget behind a new session.
type Factory func(opts ...widget.Option) *widget.Widget

// Hub tracks connected widget sessions. Each connection gets its own widget.
type Hub struct {
	newWidget Factory

	sessions   map[string]*Session
	register   chan *Session
	unregister chan *Session

	mu sync.RWMutex
}

// NewHub creates a hub whose sessions get widgets from newWidget.
func NewHub(newWidget Factory) *Hub {
	return &Hub{
		newWidget:  newWidget,
		sessions:   make(map[string]*Session),
		register:   make(chan *Session, config.WSChannelBuffer),
		unregister: make(chan *Session, config.WSChannelBuffer),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, s := range h.sessions {
				s.conn.Close()
			}
			h.mu.Unlock()
			return
		case s := <-h.register:
			h.mu.Lock()
			h.sessions[s.ID] = s
			count := len(h.sessions)
			h.mu.Unlock()
			log.Printf("Widget session %s connected (total: %d)", s.ID, count)
		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.sessions[s.ID]; ok {
				delete(h.sessions, s.ID)
				s.conn.Close()
			}
			count := len(h.sessions)
			h.mu.Unlock()
			log.Printf("Widget session %s disconnected (total: %d)", s.ID, count)
		}
	}
}

// Count returns the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Session is one connected widget page.
type Session struct {
	ID string

	conn   *websocket.Conn
	widget *widget.Widget
	send   chan Event
	ctx    context.Context
}

// HandleWebSocket upgrades the request and serves a widget session until
// the browser disconnects. The session starts on the daily view.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s := &Session{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan Event, config.WSChannelBuffer),
		ctx:  ctx,
	}
	s.widget = h.newWidget(widget.OnChange(s.onChange))

	h.register <- s
	defer func() {
		cancel()
		h.unregister <- s
	}()

	go s.writeLoop()

	s.enqueue(Event{Type: EventSession, Session: s.ID, Filename: s.widget.Filename()})
	go s.selectTimeframe(series.Daily)

	conn.SetReadLimit(config.WSMaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
		return nil
	})

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		s.handle(cmd)
	}
}

// writeLoop owns all writes to the connection, including keepalive pings.
func (s *Session) writeLoop() {
	ticker := time.NewTicker(config.WSPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if err := s.conn.WriteJSON(ev); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) enqueue(ev Event) {
	select {
	case s.send <- ev:
	case <-s.ctx.Done():
	}
}

func (s *Session) handle(cmd Command) {
	switch cmd.Type {
	case CommandSelect:
		tf, ok := series.ParseTimeframe(cmd.Timeframe)
		if !ok {
			log.Printf("Session %s: unknown timeframe %q, showing raw samples", s.ID, cmd.Timeframe)
		}
		go s.selectTimeframe(tf)
	case CommandClick:
		s.click(cmd)
	case CommandExport:
		s.export()
	default:
		s.enqueue(Event{Type: EventError, Kind: "command", Error: "unknown command " + cmd.Type})
	}
}

func (s *Session) selectTimeframe(tf series.Timeframe) {
	err := s.widget.Select(s.ctx, tf)
	if err != nil && !errors.Is(err, widget.ErrSuperseded) {
		log.Printf("Session %s: %s view failed: %v", s.ID, tf, err)
	}
}

// onChange mirrors widget transitions to the browser.
func (s *Session) onChange(v widget.View) {
	s.enqueue(Event{
		Type:       EventState,
		Phase:      v.Phase.String(),
		Timeframe:  v.Timeframe,
		Generation: v.Generation,
	})

	switch v.Phase {
	case widget.Loaded:
		b := v.Chart.Bounds()
		s.enqueue(Event{
			Type:       EventChart,
			Timeframe:  v.Timeframe,
			Generation: v.Generation,
			Image:      dataURL(v.Chart.PNG()),
			Width:      b.Dx(),
			Height:     b.Dy(),
			Points:     ptr(v.Chart.Len()),
		})
	case widget.Failed:
		s.enqueue(errorEvent(v.Err))
	}
}

func (s *Session) click(cmd Command) {
	var (
		p   render.Point
		err error
	)
	if cmd.Index != nil {
		p, err = s.widget.ClickIndex(*cmd.Index)
	} else {
		p, err = s.widget.Click(cmd.X, cmd.Y)
	}
	if err != nil {
		s.enqueue(errorEvent(err))
		return
	}

	ev := Event{
		Type:      EventClick,
		Index:     ptr(p.Index),
		Timestamp: p.Timestamp,
		Value:     ptr(p.Value),
		Message:   p.Message(),
	}
	if img, err := s.widget.Tooltip(p.Index); err == nil {
		if encoded, err := encodePNG(img); err == nil {
			ev.Image = dataURL(encoded)
		}
	}
	s.enqueue(ev)
}

func (s *Session) export() {
	var buf bytes.Buffer
	if err := s.widget.Export(s.ctx, &buf); err != nil {
		s.enqueue(errorEvent(err))
		return
	}
	log.Printf("Session %s exported %s (%d bytes)", s.ID, s.widget.Filename(), buf.Len())
	s.enqueue(Event{
		Type:     EventExport,
		Filename: s.widget.Filename(),
		Image:    dataURL(buf.Bytes()),
	})
}

func errorEvent(err error) Event {
	return Event{Type: EventError, Kind: widget.ErrorKind(err), Error: err.Error()}
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dataURL(pngBytes []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

func ptr[T any](v T) *T {
	return &v
}
