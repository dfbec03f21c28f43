package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/clubdeck/clubdeck/internal/middleware"
	"github.com/clubdeck/clubdeck/internal/notify"
	"github.com/clubdeck/clubdeck/internal/stream"
	"github.com/clubdeck/clubdeck/internal/types"
)

var (
	feedClients   = make(map[*websocket.Conn]uint) // conn -> user ID
	feedClientsMu sync.RWMutex
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// watchFeedTables bridges the change stream to websocket clients: any
// insert/update on a feed table becomes a payload-free refresh signal,
// and clients re-query through GetFeed rather than trusting pushed data.
func watchFeedTables(broker *stream.Broker) {
	tables := []string{notify.TableAnnouncements, notify.TableNotifications}
	ops := []stream.Op{stream.OpInsert, stream.OpUpdate}

	broker.Subscribe(tables, ops, broadcastRefresh)
}

func broadcastRefresh(event stream.Event) {
	feedClientsMu.RLock()
	if len(feedClients) == 0 {
		feedClientsMu.RUnlock()
		return
	}

	// Copy the connections so the lock is not held while sending
	conns := make([]*websocket.Conn, 0, len(feedClients))
	for conn := range feedClients {
		conns = append(conns, conn)
	}
	feedClientsMu.RUnlock()

	for _, conn := range conns {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			log.Printf("Failed to set write deadline for refresh: %v", err)
			continue
		}

		err := conn.WriteJSON(map[string]string{
			"type":  "refresh",
			"table": event.Table,
		})

		if err != nil {
			log.Printf("Failed to send refresh signal: %v", err)
			feedClientsMu.Lock()
			delete(feedClients, conn)
			feedClientsMu.Unlock()
			conn.Close()
		}
	}
}

// FeedSocket upgrades the connection and keeps it registered for refresh
// signals until the client goes away.
func FeedSocket(c *gin.Context) {
	currentUser, err := middleware.CurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, allowed := range types.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Failed to set initial read deadline: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Failed to set read deadline in pong handler: %v", err)
		}
		return nil
	})

	feedClientsMu.Lock()
	feedClients[conn] = currentUser.ID
	feedClientsMu.Unlock()

	defer func() {
		feedClientsMu.Lock()
		delete(feedClients, conn)
		feedClientsMu.Unlock()
		conn.Close()

		log.Printf("Feed socket closed for user %d", currentUser.ID)
	}()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Printf("Failed to set write deadline for welcome message: %v", err)
		return
	}

	if err := conn.WriteJSON(map[string]string{"type": "connected"}); err != nil {
		log.Printf("Failed to send welcome message: %v", err)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	go func() {
		for range ticker.C {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("Failed to set write deadline for user %d: %v", currentUser.ID, err)
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("Ping failed for user %d: %v", currentUser.ID, err)
				return
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Failed to set read deadline for user %d: %v", currentUser.ID, err)
			break
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for user %d: %v", currentUser.ID, err)
			}
			break
		}
	}
}
