package client

import "sync"

type notifier struct {
	mu        sync.RWMutex
	listeners []interface{}
}

// Notify registers a listener. It is called on the receiver goroutine for every
// listener interface it implements: NotificationListener, TelegraphListener, ElectrodeIDListener.
func (n *notifier) Notify(listener interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, listener)
}

func (n *notifier) snapshot() []interface{} {
	n.mu.RLock()
	defer n.mu.RUnlock()
	result := make([]interface{}, len(n.listeners))
	copy(result, n.listeners)
	return result
}

// NotificationListener receives every notification taken from the endpoint.
type NotificationListener interface {
	Notification(n Notification)
}

func (n *notifier) emitNotification(msg Notification) {
	for _, l := range n.snapshot() {
		if listener, ok := l.(NotificationListener); ok {
			listener.Notification(msg)
		}
	}
}

// TelegraphListener receives every telegraph that was stored in the electrode table.
type TelegraphListener interface {
	Telegraph(state ElectrodeState)
}

func (n *notifier) emitTelegraph(state ElectrodeState) {
	for _, l := range n.snapshot() {
		if listener, ok := l.(TelegraphListener); ok {
			listener.Telegraph(state)
		}
	}
}

// ElectrodeIDListener receives the IDs announced in reply to a broadcast.
type ElectrodeIDListener interface {
	ElectrodeIdentified(id ElectrodeID)
}

func (n *notifier) emitElectrodeID(id ElectrodeID) {
	for _, l := range n.snapshot() {
		if listener, ok := l.(ElectrodeIDListener); ok {
			listener.ElectrodeIdentified(id)
		}
	}
}
