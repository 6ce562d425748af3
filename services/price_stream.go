package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	maxStreamClients    = 100
	streamWriteTimeout  = 10 * time.Second
	streamPongTimeout   = 60 * time.Second
	streamPingInterval  = 30 * time.Second
	defaultPushInterval = 5 * time.Second
)

// streamMessage is the envelope pushed to dashboard clients.
type streamMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	Time string      `json:"time"`
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// PriceStream pushes the latest price snapshots of the monitoring set
// to websocket clients on a short interval.
type PriceStream struct {
	store   StockStore
	symbols func() []string

	clients    map[*streamClient]bool
	register   chan *streamClient
	unregister chan *streamClient
	broadcast  chan streamMessage
	shutdown   chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

// NewPriceStream creates a stream reading snapshots from the store for
// the symbols returned by the given function.
func NewPriceStream(store StockStore, symbols func() []string) *PriceStream {
	return &PriceStream{
		store:      store,
		symbols:    symbols,
		clients:    make(map[*streamClient]bool),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		broadcast:  make(chan streamMessage, 64),
		shutdown:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Start runs the hub and the snapshot poll loop.
func (ps *PriceStream) Start() {
	go ps.run()
	go ps.poll()
	log.Println("Price stream started")
}

// Shutdown closes all client connections and stops the hub.
func (ps *PriceStream) Shutdown() {
	close(ps.shutdown)

	ps.mu.Lock()
	for client := range ps.clients {
		close(client.send)
		client.conn.Close()
	}
	ps.clients = make(map[*streamClient]bool)
	ps.mu.Unlock()

	log.Println("Price stream shutdown complete")
}

func (ps *PriceStream) run() {
	for {
		select {
		case <-ps.shutdown:
			return

		case client := <-ps.register:
			ps.mu.Lock()
			ps.clients[client] = true
			count := len(ps.clients)
			ps.mu.Unlock()
			log.Printf("Price stream client connected. Total clients: %d", count)

		case client := <-ps.unregister:
			ps.mu.Lock()
			if _, ok := ps.clients[client]; ok {
				delete(ps.clients, client)
				close(client.send)
			}
			count := len(ps.clients)
			ps.mu.Unlock()
			log.Printf("Price stream client disconnected. Total clients: %d", count)

		case message := <-ps.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				log.Printf("Error marshaling stream message: %v", err)
				continue
			}

			ps.mu.Lock()
			var dead []*streamClient
			for client := range ps.clients {
				select {
				case client.send <- data:
				default:
					// Client buffer full, mark for removal
					dead = append(dead, client)
				}
			}
			for _, client := range dead {
				delete(ps.clients, client)
				close(client.send)
			}
			ps.mu.Unlock()
		}
	}
}

// poll reads the latest snapshot view and broadcasts it while clients
// are connected.
func (ps *PriceStream) poll() {
	ticker := time.NewTicker(defaultPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ps.shutdown:
			return
		case <-ticker.C:
			ps.mu.RLock()
			idle := len(ps.clients) == 0
			ps.mu.RUnlock()
			if idle {
				continue
			}

			snapshots, err := ps.store.LatestSnapshots(ps.symbols())
			if err != nil {
				log.Printf("Error loading snapshots for stream: %v", err)
				continue
			}

			ps.broadcast <- streamMessage{
				Type: "prices",
				Data: snapshots,
				Time: time.Now().Format(time.RFC3339),
			}
		}
	}
}

// ServeWS upgrades an HTTP request to a websocket subscription.
func (ps *PriceStream) ServeWS(w http.ResponseWriter, r *http.Request) {
	ps.mu.RLock()
	atCapacity := len(ps.clients) >= maxStreamClients
	ps.mu.RUnlock()
	if atCapacity {
		http.Error(w, "Server at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := ps.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &streamClient{
		conn: conn,
		send: make(chan []byte, 256),
	}
	ps.register <- client

	go client.writePump()
	go client.readPump(ps)
}

func (c *streamClient) writePump() {
	ticker := time.NewTicker(streamPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *streamClient) readPump(ps *PriceStream) {
	defer func() {
		ps.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}
	}
}
