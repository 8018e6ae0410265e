package bus

import (
	"net/http"
	"sync/atomic"
	"terrastudio/editor"
	"terrastudio/library"
	"terrastudio/script"
	"terrastudio/territory"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Surfaces are sandboxed iframes; the bus is loopback-only and
		// origin carries no signal here.
		return true
	},
}

// Options tune the hub. Zero values pick the defaults; an empty
// LibraryDir reads libraries from the studio data dir.
type Options struct {
	ScriptTimeout time.Duration
	StatsInterval time.Duration
	LibraryDir    string
}

type directedMessage struct {
	role string
	msg  Message
}

// Hub owns every attached surface and the workspace editor behind them.
// The run loop is the only goroutine touching the client set; handlers
// and pushes talk to it through channels, all sends non-blocking. A full
// buffer means dropped messages, which the protocol already tolerates.
type Hub struct {
	log     *zap.Logger
	editor  *editor.Editor
	scripts *script.Engine
	library *library.Store
	opts    Options

	clients    map[*SurfaceClient]bool
	broadcast  chan Message
	direct     chan directedMessage
	register   chan *SurfaceClient
	unregister chan *SurfaceClient
	handlers   map[MessageType]MessageHandler
	quit       chan struct{}
	started    time.Time

	surfaceCount atomic.Int32
}

// NewHub builds a hub with a fresh workspace editor wired to push overlay
// and draft state back through it.
func NewHub(log *zap.Logger, opts Options) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ScriptTimeout <= 0 {
		opts.ScriptTimeout = 5 * time.Second
	}
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = 10 * time.Second
	}

	h := &Hub{
		log:        log.Named("bus"),
		opts:       opts,
		clients:    make(map[*SurfaceClient]bool),
		broadcast:  make(chan Message, 256),
		direct:     make(chan directedMessage, 256),
		register:   make(chan *SurfaceClient),
		unregister: make(chan *SurfaceClient),
		handlers:   make(map[MessageType]MessageHandler),
		quit:       make(chan struct{}),
		started:    time.Now(),
	}
	h.editor = editor.New(log, h)
	h.library = library.NewStore(log, opts.LibraryDir)
	h.scripts = script.New(log, h.library)
	h.registerHandlers()
	return h
}

// Editor exposes the workspace editor behind this hub.
func (h *Hub) Editor() *editor.Editor {
	return h.editor
}

// Start launches the hub loop and the stats broadcaster.
func (h *Hub) Start() {
	go h.run()
	go h.broadcastStats()
}

// Close stops the hub loop and the stats broadcaster and tears down every
// connected surface. Call it once.
func (h *Hub) Close() {
	close(h.quit)
}

// ListenAndServe runs the hub and serves the websocket endpoint at /ws.
func (h *Hub) ListenAndServe(addr string) error {
	h.Start()
	defer h.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	h.log.Info("surface bus listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}

// ServeWS upgrades one HTTP request into a surface connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.Attach(conn)
}

// Attach wires a surface connection into the hub and starts its pumps.
func (h *Hub) Attach(conn SurfaceConn) *SurfaceClient {
	client := &SurfaceClient{
		conn: conn,
		send: make(chan Message, 256),
		done: make(chan struct{}),
		hub:  h,
		id:   uuid.NewString(),
	}

	select {
	case h.register <- client:
	case <-h.quit:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()
	return client
}

// run handles the main hub logic.
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.surfaceCount.Store(int32(len(h.clients)))
			h.log.Info("surface connected", zap.String("client", client.id))

		case client := <-h.unregister:
			h.dropClient(client)

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.dropClient(client)
				}
			}

		case dm := <-h.direct:
			for client := range h.clients {
				if client.Role() != dm.role {
					continue
				}
				select {
				case client.send <- dm.msg:
				default:
					h.dropClient(client)
				}
			}

		case <-h.quit:
			for client := range h.clients {
				h.dropClient(client)
			}
			return
		}
	}
}

// dropClient removes a surface from the set, once.
func (h *Hub) dropClient(client *SurfaceClient) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.done)
	h.surfaceCount.Store(int32(len(h.clients)))
	h.log.Info("surface disconnected",
		zap.String("client", client.id), zap.String("role", client.Role()))
}

// Broadcast queues a message for every surface, dropping it when the bus
// is saturated.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
	}
}

// sendToSurface queues a message for every surface attached with the
// given role. No surface of that role means the message goes nowhere.
func (h *Hub) sendToSurface(role string, msg Message) {
	msg.Surface = role
	select {
	case h.direct <- directedMessage{role: role, msg: msg}:
	default:
	}
}

// PushSelectionOverlay implements editor.SurfacePush.
func (h *Hub) PushSelectionOverlay(surface string, groups []editor.OverlayGroup) {
	h.sendToSurface(surface, Message{
		Type:      MessageTypeSelectionOverlay,
		Data:      SelectionOverlayData{Groups: groups},
		Timestamp: time.Now(),
	})
}

// PushLabelOverlay implements editor.SurfacePush.
func (h *Hub) PushLabelOverlay(surface string, groups []editor.OverlayGroup) {
	h.sendToSurface(surface, Message{
		Type:      MessageTypeLabelOverlayFixed,
		Data:      SelectionOverlayData{Groups: groups},
		Timestamp: time.Now(),
	})
}

// ClearLabelOverlay implements editor.SurfacePush.
func (h *Hub) ClearLabelOverlay(surface string) {
	h.sendToSurface(surface, Message{
		Type:      MessageTypeClearLabelOverlay,
		Timestamp: time.Now(),
	})
}

// PushDraft implements editor.SurfacePush. Coordinates are rounded to 4
// decimal places as they cross onto the wire.
func (h *Hub) PushDraft(surface string, points []territory.LatLng, shape string) {
	rounded := make([]territory.LatLng, len(points))
	for i, pt := range points {
		rounded[i] = pt.Rounded()
	}
	h.sendToSurface(surface, Message{
		Type:      MessageTypeSetDraft,
		Data:      SetDraftData{Points: rounded, ShapeType: shape},
		Timestamp: time.Now(),
	})
}
