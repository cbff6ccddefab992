// Package sim simulates the amplifier-control program that answers telegraph requests.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wavesurfer/mctg/client"
)

type messageTypes struct {
	open      client.MessageType
	close     client.MessageType
	request   client.MessageType
	reconnect client.MessageType
	broadcast client.MessageType
	id        client.MessageType
}

// Commander answers identify broadcasts and state requests for a set of simulated channels.
type Commander struct {
	transport client.Transport
	types     messageTypes

	mu          sync.Mutex
	channels    map[client.ElectrodeID]client.Telegraph
	order       []client.ElectrodeID
	subscribers map[client.ElectrodeID]map[client.Handle]bool
	endpoint    client.Endpoint
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewCommander returns a stopped simulator serving the given channels.
// Channels with an unknown hardware type are ignored.
func NewCommander(transport client.Transport, channels ...client.Telegraph) *Commander {
	result := &Commander{
		transport:   transport,
		channels:    make(map[client.ElectrodeID]client.Telegraph),
		subscribers: make(map[client.ElectrodeID]map[client.Handle]bool),
	}
	for _, channel := range channels {
		result.put(channel)
	}
	return result
}

func (c *Commander) put(channel client.Telegraph) (client.ElectrodeID, bool) {
	id, ok := channel.ElectrodeID()
	if !ok {
		log.Warn().Stringer("hardware_type", channel.HardwareType).Msg("ignoring simulated channel")
		return 0, false
	}
	if _, known := c.channels[id]; !known {
		c.order = append(c.order, id)
	}
	c.channels[id] = channel
	return id, true
}

// IDs returns the electrode ids of all simulated channels.
func (c *Commander) IDs() []client.ElectrodeID {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]client.ElectrodeID, len(c.order))
	copy(result, c.order)
	return result
}

// Start registers the telegraph messages, opens an endpoint and serves requests until Stop is called
// or the endpoint is closed.
func (c *Commander) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.endpoint != nil {
		return nil
	}

	var err error
	for _, m := range []struct {
		name   string
		target *client.MessageType
	}{
		{client.OpenMessageName, &c.types.open},
		{client.CloseMessageName, &c.types.close},
		{client.RequestMessageName, &c.types.request},
		{client.ReconnectMessageName, &c.types.reconnect},
		{client.BroadcastMessageName, &c.types.broadcast},
		{client.IDMessageName, &c.types.id},
	} {
		*m.target, err = c.transport.RegisterMessage(m.name)
		if err != nil {
			return fmt.Errorf("cannot register %s: %w", m.name, err)
		}
	}

	endpoint, err := c.transport.Open()
	if err != nil {
		return fmt.Errorf("cannot open simulator endpoint: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.endpoint = endpoint
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx, endpoint, c.done)

	log.Info().Int("channels", len(c.order)).Uint32("handle", uint32(endpoint.Handle())).Msg("simulated commander started")
	return nil
}

// Stop closes the endpoint and waits for the simulator to finish.
func (c *Commander) Stop() {
	c.mu.Lock()
	endpoint := c.endpoint
	cancel := c.cancel
	done := c.done
	c.endpoint = nil
	c.mu.Unlock()
	if endpoint == nil {
		return
	}

	cancel()
	endpoint.Close()
	<-done
}

// Done is closed when the simulator stopped serving, either by Stop or because its endpoint was closed.
func (c *Commander) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		result := make(chan struct{})
		close(result)
		return result
	}
	return c.done
}

func (c *Commander) run(ctx context.Context, endpoint client.Endpoint, done chan struct{}) {
	defer close(done)
	for {
		n, err := endpoint.Receive(ctx)
		if errors.Is(err, client.ErrEndpointClosed) || ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("simulator cannot receive next notification")
			continue
		}
		c.handle(endpoint, n)
	}
}

func (c *Commander) handle(endpoint client.Endpoint, n client.Notification) {
	switch n.Type {
	case c.types.broadcast:
		for _, id := range c.IDs() {
			c.send(endpoint, n.From, client.Notification{Type: c.types.id, Param: id})
		}
	case c.types.request:
		if telegraph, ok := c.channel(n.Param); ok {
			c.sendTelegraph(endpoint, n.From, telegraph)
		}
	case c.types.open:
		if telegraph, ok := c.channel(n.Param); ok {
			c.subscribe(n.Param, n.From, true)
			c.sendTelegraph(endpoint, n.From, telegraph)
		}
	case c.types.close:
		c.subscribe(n.Param, n.From, false)
	}
}

func (c *Commander) channel(id client.ElectrodeID) (client.Telegraph, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.channels[id]
	return result, ok
}

func (c *Commander) subscribe(id client.ElectrodeID, handle client.Handle, subscribed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	handles, ok := c.subscribers[id]
	if !ok {
		handles = make(map[client.Handle]bool)
		c.subscribers[id] = handles
	}
	if subscribed {
		handles[handle] = true
	} else {
		delete(handles, handle)
	}
}

func (c *Commander) sendTelegraph(endpoint client.Endpoint, to client.Handle, telegraph client.Telegraph) {
	c.send(endpoint, to, client.Notification{
		Type: client.MessageCopyData,
		Tag:  c.types.request,
		Data: telegraph.Encode(),
	})
}

func (c *Commander) send(endpoint client.Endpoint, to client.Handle, n client.Notification) {
	if err := endpoint.Send(to, n); err != nil {
		log.Error().Err(err).Uint32("to", uint32(to)).Stringer("notification", n).Msg("simulator cannot send")
	}
}

// Update changes the state of a simulated channel and pushes it to every open connection.
func (c *Commander) Update(telegraph client.Telegraph) {
	c.mu.Lock()
	id, ok := c.put(telegraph)
	endpoint := c.endpoint
	var handles []client.Handle
	for handle := range c.subscribers[id] {
		handles = append(handles, handle)
	}
	c.mu.Unlock()
	if !ok || endpoint == nil {
		return
	}

	for _, handle := range handles {
		c.sendTelegraph(endpoint, handle, telegraph)
	}
}

// Reconnect announces every channel again, as the amplifier-control program does after a restart.
func (c *Commander) Reconnect() error {
	c.mu.Lock()
	endpoint := c.endpoint
	c.mu.Unlock()
	if endpoint == nil {
		return client.ErrEndpointClosed
	}

	for _, id := range c.IDs() {
		err := endpoint.Broadcast(client.Notification{Type: c.types.reconnect, Param: id})
		if err != nil {
			return err
		}
	}
	return nil
}
