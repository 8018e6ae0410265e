package bus

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SurfaceClient is one connected map surface. The send channel is never
// closed; the hub signals shutdown by closing done, so a racing reply can
// never hit a closed channel.
type SurfaceClient struct {
	conn SurfaceConn
	send chan Message
	done chan struct{}
	hub  *Hub
	id   string

	mu    sync.Mutex
	role  string
	alias string
}

func (c *SurfaceClient) setRole(role, alias string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.role = role
	c.alias = alias
}

// Role returns the role the surface attached as, empty before attach.
func (c *SurfaceClient) Role() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// Alias returns the imported-library alias the surface attached with.
func (c *SurfaceClient) Alias() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alias
}

// reply queues a directed message to this surface, dropping it when the
// buffer is full. The bus makes no delivery guarantees.
func (c *SurfaceClient) reply(msg Message) {
	select {
	case c.send <- msg:
	default:
		c.hub.log.Debug("reply dropped, surface buffer full",
			zap.String("client", c.id), zap.String("type", string(msg.Type)))
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *SurfaceClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.log.Debug("write to surface failed",
					zap.String("client", c.id), zap.Error(err))
				return
			}

		case <-ticker.C:
			// Keep the connection alive across idle editing pauses.
			if err := c.conn.WriteJSON(Message{
				Type:      MessageTypePing,
				Timestamp: time.Now(),
			}); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// readPump pumps messages from the websocket connection into the message
// handlers. Handler errors are answered with an error message carrying
// the request id; they never tear down the connection.
func (c *SurfaceClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()

	for {
		var message Message
		if err := c.conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("surface read error",
					zap.String("client", c.id), zap.Error(err))
			}
			break
		}

		if message.Timestamp.IsZero() {
			message.Timestamp = time.Now()
		}

		if err := c.handleMessage(message); err != nil {
			c.reply(Message{
				Type:      MessageTypeError,
				RequestID: message.RequestID,
				Error:     err.Error(),
				Timestamp: time.Now(),
			})
		}
	}
}

// handleMessage dispatches one inbound message. Unknown types are logged
// and dropped; an unreliable channel is allowed to carry messages this
// host version does not know.
func (c *SurfaceClient) handleMessage(message Message) error {
	handler, exists := c.hub.handlers[message.Type]
	if !exists {
		c.hub.log.Debug("unknown message type dropped",
			zap.String("client", c.id), zap.String("type", string(message.Type)))
		return nil
	}

	return handler(c, message)
}
