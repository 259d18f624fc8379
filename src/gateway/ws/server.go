// Package ws serves the websocket side of the notification fan-out. Each
// accepted connection gets a private redis pubsub channel; the notifier
// publishes there and the gateway pumps it into the socket.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/toro-labs/toro-assistant/src/data"
	"github.com/toro-labs/toro-assistant/src/questions"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	maxEventSize = 1024
)

type Server struct {
	registry  questions.Registry
	rdb       *redis.Client
	upgrader  websocket.Upgrader
	subscribe func(ctx context.Context, channel string) *redis.PubSub
}

func NewServer(registry questions.Registry, rdb *redis.Client) *Server {
	s := &Server{
		registry: registry,
		rdb:      rdb,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.subscribe = func(ctx context.Context, channel string) *redis.PubSub {
		return s.rdb.Subscribe(ctx, channel)
	}
	return s
}

// Handle upgrades the request and runs the connection until the client goes
// away. A user_id query parameter registers immediately; otherwise the client
// sends a {"action":"register","user_id":...} event.
func (s *Server) Handle(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade: %v", err)
		return
	}

	ctx := context.Background()
	sess := NewSession(s.registry, uuid.NewString())
	log.Printf("ws: connection %s opened", sess.ConnectionID())

	pubsub := s.connect(ctx, sess, c.Query("user_id"))
	go writePump(conn, pubsub)

	s.readLoop(ctx, conn, sess)

	_ = pubsub.Close()
	_ = conn.Close()
	if err := sess.Disconnect(ctx); err != nil {
		log.Printf("ws: disconnect cleanup %s: %v", sess.ConnectionID(), err)
	}
	log.Printf("ws: connection %s closed", sess.ConnectionID())
}

// connect opens the connection's pubsub channel and only then applies an
// optional immediate registration. The registry entry must never exist before
// a receiver does: the notifier treats a zero-receiver publish as a dead
// connection and would deregister the user on the spot.
func (s *Server) connect(ctx context.Context, sess *Session, userID string) *redis.PubSub {
	pubsub := s.subscribe(ctx, data.ConnChannel(sess.ConnectionID()))
	if userID != "" {
		if err := sess.Register(ctx, userID); err != nil {
			log.Printf("ws: register %s on connect: %v", userID, err)
		}
	}
	return pubsub
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sess *Session) {
	conn.SetReadLimit(maxEventSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: read %s: %v", sess.ConnectionID(), err)
			}
			return
		}

		var evt struct {
			Action string `json:"action"`
			UserID string `json:"user_id"`
		}
		if err := json.Unmarshal(msg, &evt); err != nil {
			continue
		}
		if evt.Action == "register" {
			if err := sess.Register(ctx, evt.UserID); err != nil {
				log.Printf("ws: register on %s: %v", sess.ConnectionID(), err)
				continue
			}
			log.Printf("ws: user %s registered on connection %s", evt.UserID, sess.ConnectionID())
		}
	}
}

// writePump forwards pushed notifications and keeps the connection alive with
// pings. It is the only writer to the socket.
func writePump(conn *websocket.Conn, pubsub *redis.PubSub) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
