package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketNotificationHub fans transaction status events out to connected
// clients. Topics are "transactions/<address>".
type WebSocketNotificationHub struct {
	registrationMutex sync.Mutex
	listeners         map[string][]*websocket.Conn
}

func NewNotificationHub() *WebSocketNotificationHub {
	return &WebSocketNotificationHub{
		listeners: make(map[string][]*websocket.Conn),
	}
}

func (hub *WebSocketNotificationHub) RegisterListener(topic string, conn *websocket.Conn) {
	hub.registrationMutex.Lock()
	defer hub.registrationMutex.Unlock()

	hub.listeners[topic] = append(hub.listeners[topic], conn)
}

func (hub *WebSocketNotificationHub) UnregisterListener(topic string, conn *websocket.Conn) {
	hub.registrationMutex.Lock()
	defer hub.registrationMutex.Unlock()

	conns := hub.listeners[topic]
	if len(conns) <= 1 {
		delete(hub.listeners, topic)
		return
	}

	addrToClose := conn.RemoteAddr()
	for i, listener := range conns {
		if listener.RemoteAddr() == addrToClose {
			hub.listeners[topic] = append(conns[:i], conns[i+1:]...)
			return
		}
	}
}

func (hub *WebSocketNotificationHub) Publish(targetTopic string, event any) {
	hub.registrationMutex.Lock()
	conns := append([]*websocket.Conn(nil), hub.listeners[targetTopic]...)
	hub.registrationMutex.Unlock()

	for _, listener := range conns {
		_ = listener.WriteJSON(event)
	}
}
