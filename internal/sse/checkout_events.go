package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"ms-booking/internal/models"
)

// Emitter fans audit entries out to operator consoles and order updates out
// to the portal of the user who owns the order.
type Emitter struct {
	auditClients     []chan models.AuditLogEntry
	auditClientMutex sync.RWMutex

	// key: userID
	userClients     map[string][]chan models.Order
	userClientMutex sync.RWMutex
}

func NewEmitter() *Emitter {
	return &Emitter{
		userClients: make(map[string][]chan models.Order),
	}
}

// SubscribeToAudit registers an operator feed. The channel is closed once ctx is done.
func (e *Emitter) SubscribeToAudit(ctx context.Context) chan models.AuditLogEntry {
	clientChan := make(chan models.AuditLogEntry, 16)

	e.auditClientMutex.Lock()
	e.auditClients = append(e.auditClients, clientChan)
	e.auditClientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeAuditClient(clientChan)
	}()

	return clientChan
}

// SubscribeToUserOrders registers a feed of order updates for one user.
func (e *Emitter) SubscribeToUserOrders(ctx context.Context, userID string) chan models.Order {
	clientChan := make(chan models.Order, 10)

	e.userClientMutex.Lock()
	e.userClients[userID] = append(e.userClients[userID], clientChan)
	e.userClientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeUserClient(userID, clientChan)
	}()

	return clientChan
}

func (e *Emitter) EmitAudit(entry models.AuditLogEntry) {
	e.auditClientMutex.RLock()
	defer e.auditClientMutex.RUnlock()

	for _, clientChan := range e.auditClients {
		// slow consumers miss entries rather than stall the recorder
		select {
		case clientChan <- entry:
		default:
		}
	}
}

func (e *Emitter) EmitOrder(order models.Order) {
	e.userClientMutex.RLock()
	defer e.userClientMutex.RUnlock()

	for _, clientChan := range e.userClients[order.UserID] {
		select {
		case clientChan <- order:
		default:
		}
	}
}

func (e *Emitter) removeAuditClient(clientChan chan models.AuditLogEntry) {
	e.auditClientMutex.Lock()
	defer e.auditClientMutex.Unlock()

	for i, ch := range e.auditClients {
		if ch == clientChan {
			e.auditClients = append(e.auditClients[:i], e.auditClients[i+1:]...)
			close(clientChan)
			return
		}
	}
}

func (e *Emitter) removeUserClient(userID string, clientChan chan models.Order) {
	e.userClientMutex.Lock()
	defer e.userClientMutex.Unlock()

	clients := e.userClients[userID]
	for i, ch := range clients {
		if ch == clientChan {
			e.userClients[userID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.userClients[userID]) == 0 {
		delete(e.userClients, userID)
	}
}

func (e *Emitter) auditClientCount() int {
	e.auditClientMutex.RLock()
	defer e.auditClientMutex.RUnlock()
	return len(e.auditClients)
}

func (e *Emitter) userClientCount(userID string) int {
	e.userClientMutex.RLock()
	defer e.userClientMutex.RUnlock()
	return len(e.userClients[userID])
}

// WriteEvent writes one server-sent event frame and flushes it.
func WriteEvent(w http.ResponseWriter, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
