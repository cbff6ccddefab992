package client

import (
	"context"
	"errors"
	"fmt"
)

// ErrEndpointClosed indicates an operation on a closed endpoint.
var ErrEndpointClosed = errors.New("endpoint closed")

// ErrQueueFull indicates that the receiving endpoint cannot take more notifications.
var ErrQueueFull = errors.New("notification queue full")

// ErrUnknownMessage indicates a message type or name that was never registered.
var ErrUnknownMessage = errors.New("unknown message")

// Notification is one message on a transport.
type Notification struct {
	Type MessageType
	// From is the sending endpoint.
	From Handle
	// Param carries the electrode ID of control notifications.
	Param ElectrodeID
	// Tag is the registered type of a MessageCopyData payload.
	Tag MessageType
	// Data is the payload of MessageCopyData notifications.
	Data []byte
}

func (n Notification) String() string {
	if n.Type == MessageCopyData {
		return fmt.Sprintf("copydata(tag=0x%04X, from=%d, %d bytes)", uint32(n.Tag), n.From, len(n.Data))
	}
	return fmt.Sprintf("0x%04X(from=%d, param=%s)", uint32(n.Type), n.From, n.Param)
}

// Transport is the messaging facility shared with the amplifier-control program.
type Transport interface {
	// RegisterMessage returns the id of the named notification type.
	// The same name always yields the same id on one transport.
	RegisterMessage(name string) (MessageType, error)
	// Open creates a new receiver endpoint.
	Open() (Endpoint, error)
}

// Endpoint receives notifications in arrival order for a single consumer.
type Endpoint interface {
	Handle() Handle
	// Broadcast delivers n to every endpoint on the transport.
	Broadcast(n Notification) error
	// Send delivers n to one endpoint.
	Send(to Handle, n Notification) error
	// Post enqueues n for this endpoint's own consumer.
	Post(n Notification) error
	// Receive blocks until the next notification arrives.
	Receive(ctx context.Context) (Notification, error)
	// Close releases the endpoint. Closing twice is a no-op.
	Close() error
}
