package chat

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSClient is one live socket. The registry holds a non-owning reference;
// the pumps below own the connection itself.
type WSClient struct {
	Conn     *websocket.Conn
	Message  chan *ServerEvent
	ID       string
	Identity Identity

	// JoinedRoomID and queueClosed are guarded by the registry mutex.
	JoinedRoomID string
	queueClosed  bool

	authToken string
	done      chan struct{} // Signal for coordinating goroutine shutdown
	mu        sync.Mutex    // Mutex for connection access
	isClosed  bool          // Flag to track connection state
}

// Send queues an event for this client only, used for protocol-level
// rejections that must never be broadcast.
func (cl *WSClient) Send(ev *ServerEvent) {
	select {
	case cl.Message <- ev:
	default:
	}
}

func (cl *WSClient) sendError(err *Error) {
	incRejected(err.Code)
	cl.Send(&ServerEvent{
		Type:  EventError,
		Code:  string(err.Code),
		Error: err.Message,
	})
}

func (cl *WSClient) keepAlive() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteMessage(websocket.PingMessage, nil)
			cl.mu.Unlock()

			if err != nil {
				log.Printf("Ping error for client %s: %v", cl.ID, err)
				return
			}
		}
	}
}

func (cl *WSClient) writeMessage() {
	defer func() {
		cl.mu.Lock()
		cl.isClosed = true
		cl.Conn.Close()
		cl.mu.Unlock()
	}()

	for {
		select {
		case <-cl.done:
			return
		case msg, ok := <-cl.Message:
			if !ok {
				log.Printf("Client %s message channel closed", cl.ID)
				return
			}

			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteJSON(msg)
			cl.mu.Unlock()

			if err != nil {
				log.Printf("Error sending message to client %s: %v", cl.ID, err)
				return
			}
		}
	}
}

// readMessage pumps inbound frames into the handler's dispatch. The defer
// guarantees the registry drops this connection on every exit path,
// explicit leave or not.
func (cl *WSClient) readMessage(h *Handler) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in readMessage: %v", r)
		}

		if cl.done != nil {
			close(cl.done)
		}

		h.registry.Leave(cl)
		log.Printf("Client %s disconnected", cl.ID)
	}()

	cl.Conn.SetReadLimit(512 * 1024) // Set a reasonable read limit

	for {
		_, raw, err := cl.Conn.ReadMessage()
		if err != nil {
			if closeErr, ok := err.(*websocket.CloseError); ok {
				if closeErr.Code == websocket.CloseNormalClosure ||
					closeErr.Code == websocket.CloseGoingAway ||
					closeErr.Code == websocket.CloseNoStatusReceived {
					break
				}
			}
			log.Printf("Error reading message from client %s: %v", cl.ID, err)
			break
		}

		var ev ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			cl.sendError(newError(ErrorCodeValidation, "malformed event payload", err))
			continue
		}
		if verr := ev.Validate(); verr != nil {
			cl.sendError(verr)
			continue
		}

		h.handleEvent(cl, ev)
	}
}
