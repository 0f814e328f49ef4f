// Package events bridges the registry's typed event bus to outward
// transports. Subscribers here consume buffered subscriptions, so the
// registry never waits on a transport.
package events

import (
	"go.uber.org/zap"

	domainevents "forge-backend/domain/events"
	"forge-backend/interfaces/websocket"
)

// WebSocketListener forwards every registry event to the WebSocket hub.
type WebSocketListener struct {
	hub    *websocket.Hub
	sub    *domainevents.Subscription
	logger *zap.Logger
	done   chan struct{}
}

// NewWebSocketListener subscribes to all event kinds on the bus.
func NewWebSocketListener(bus *domainevents.Bus, hub *websocket.Hub, logger *zap.Logger) *WebSocketListener {
	return &WebSocketListener{
		hub:    hub,
		sub:    bus.Subscribe(),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start consumes the subscription until Stop is called or the bus closes.
func (l *WebSocketListener) Start() {
	go func() {
		for {
			select {
			case <-l.done:
				return
			case event, ok := <-l.sub.C:
				if !ok {
					return
				}
				if err := l.hub.Broadcast(string(event.Type), event); err != nil {
					l.logger.Debug("Failed to broadcast event",
						zap.String("event_type", string(event.Type)),
						zap.Error(err),
					)
				}
			}
		}
	}()
}

// Stop detaches from the bus.
func (l *WebSocketListener) Stop() {
	close(l.done)
	l.sub.Close()
}
