package client

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrStartup indicates that the receiver endpoint could not be created.
var ErrStartup = errors.New("cannot start telegraph receiver")

type messageTypes struct {
	open      MessageType
	close     MessageType
	request   MessageType
	reconnect MessageType
	broadcast MessageType
	id        MessageType
	stop      MessageType
}

func registerMessages(t Transport) (messageTypes, error) {
	var result messageTypes
	var err error
	for _, m := range []struct {
		name   string
		target *MessageType
	}{
		{OpenMessageName, &result.open},
		{CloseMessageName, &result.close},
		{RequestMessageName, &result.request},
		{ReconnectMessageName, &result.reconnect},
		{BroadcastMessageName, &result.broadcast},
		{IDMessageName, &result.id},
		{StopMessageName, &result.stop},
	} {
		*m.target, err = t.RegisterMessage(m.name)
		if err != nil {
			return messageTypes{}, fmt.Errorf("cannot register %s: %w", m.name, err)
		}
	}
	return result, nil
}

// receiver owns the endpoint and pumps its notifications on one goroutine.
type receiver struct {
	transport Transport
	types     messageTypes
	table     *stateTable
	notifier  *notifier

	cancel        context.CancelFunc
	done          chan struct{}
	ready         chan struct{}
	stopRequested atomic.Bool
	pumping       atomic.Bool

	endpointMu sync.Mutex
	endpoint   Endpoint
}

func startReceiver(transport Transport, types messageTypes, table *stateTable, n *notifier, startupWait time.Duration) (*receiver, error) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &receiver{
		transport: transport,
		types:     types,
		table:     table,
		notifier:  n,
		cancel:    cancel,
		done:      make(chan struct{}),
		ready:     make(chan struct{}),
	}

	startErr := make(chan error, 1)
	go r.run(ctx, startErr)

	select {
	case err := <-startErr:
		if err != nil {
			cancel()
			return nil, fmt.Errorf("%w: %v", ErrStartup, err)
		}
	case <-time.After(startupWait):
		log.Debug().Dur("startup_wait", startupWait).Msg("receiver still initializing")
	}
	return r, nil
}

func (r *receiver) run(ctx context.Context, startErr chan<- error) {
	defer close(r.done)

	endpoint, err := r.transport.Open()
	if err != nil {
		log.Error().Err(fmt.Errorf("%w: %v", ErrStartup, err)).Msg("cannot create receiver endpoint")
		startErr <- err
		return
	}
	r.endpointMu.Lock()
	r.endpoint = endpoint
	r.endpointMu.Unlock()
	r.pumping.Store(true)
	close(r.ready)
	startErr <- nil

	log.Debug().Uint32("handle", uint32(endpoint.Handle())).Msg("receiver pump started")
	for !r.stopRequested.Load() {
		n, err := endpoint.Receive(ctx)
		if errors.Is(err, ErrEndpointClosed) || ctx.Err() != nil {
			break
		}
		if err != nil {
			log.Error().Err(err).Msg("cannot receive next notification")
			continue
		}
		if !r.dispatch(endpoint, n) {
			break
		}
	}

	if err := endpoint.Close(); err != nil {
		log.Error().Err(err).Msg("cannot close receiver endpoint")
	}
	r.pumping.Store(false)
	log.Debug().Msg("receiver pump terminated")
}

// dispatch handles one notification and reports if the pump should continue.
func (r *receiver) dispatch(endpoint Endpoint, n Notification) bool {
	r.notifier.emitNotification(n)

	self := n.From == endpoint.Handle()
	switch n.Type {
	case r.types.stop:
		log.Debug().Msg("received stop signal")
		return false
	case r.types.id:
		log.Debug().Stringer("id", n.Param).Msg("electrode identified")
		r.table.RecordFreshID(n.Param)
		r.notifier.emitElectrodeID(n.Param)
	case r.types.reconnect:
		log.Debug().Stringer("id", n.Param).Msg("reconnect requested, requesting state")
		if err := endpoint.Broadcast(Notification{Type: r.types.request, Param: n.Param}); err != nil {
			log.Error().Err(err).Stringer("id", n.Param).Msg("cannot request electrode state")
		}
	case MessageCopyData:
		r.handleCopyData(n)
	case r.types.broadcast, r.types.request, r.types.open, r.types.close:
		log.Debug().Stringer("notification", n).Bool("self", self).Msg("ignoring request notification")
	default:
		log.Debug().Stringer("notification", n).Msg("ignoring unrecognized notification")
	}
	return true
}

func (r *receiver) handleCopyData(n Notification) {
	if n.Tag != r.types.request {
		log.Debug().Uint32("tag", uint32(n.Tag)).Msg("ignoring unrecognized copydata notification")
		return
	}
	telegraph, err := ParseTelegraph(n.Data)
	if err != nil {
		log.Error().Err(err).Uint32("from", uint32(n.From)).Msg("cannot parse telegraph")
		return
	}
	if !telegraph.KnownVersion() {
		log.Warn().Uint32("version", telegraph.Version).Msg("unrecognized telegraph version, processing anyway")
	}
	state, ok := r.table.Upsert(telegraph)
	if !ok {
		return
	}
	log.Debug().Stringer("id", state.ID).Stringer("mode", state.OperatingMode).Msg("telegraph stored")
	r.notifier.emitTelegraph(state)
}

// currentEndpoint waits up to timeout for the endpoint to exist.
func (r *receiver) currentEndpoint(timeout time.Duration) (Endpoint, error) {
	select {
	case <-r.ready:
	case <-r.done:
		return nil, ErrNotRunning
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w: receiver endpoint not ready", ErrNotRunning)
	}
	r.endpointMu.Lock()
	defer r.endpointMu.Unlock()
	if r.endpoint == nil {
		return nil, ErrNotRunning
	}
	return r.endpoint, nil
}

// stop asks the pump to exit and waits for it twice, each time up to timeout.
// Teardown continues even if the pump does not exit.
func (r *receiver) stop(timeout time.Duration) {
	r.stopRequested.Store(true)

	r.endpointMu.Lock()
	endpoint := r.endpoint
	r.endpointMu.Unlock()
	if endpoint != nil {
		if err := endpoint.Post(Notification{Type: r.types.stop}); err != nil {
			log.Debug().Err(err).Msg("cannot post stop signal to endpoint")
		}
	}
	// covers a pump that has not created its endpoint yet
	r.cancel()
	runtime.Gosched()

	exited := r.waitDone(timeout)
	if !exited {
		log.Debug().Msg("receiver did not stop in time, waiting again")
		runtime.Gosched()
		exited = r.waitDone(timeout)
	}
	if !exited || r.pumping.Load() {
		log.Error().Msg("receiver appears to still be running, continuing with stop procedure anyway")
	}

	if endpoint != nil {
		if err := endpoint.Close(); err != nil {
			log.Error().Err(err).Msg("cannot close receiver endpoint")
		}
	}
}

// exited reports if the pump goroutine has terminated.
func (r *receiver) exited() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func (r *receiver) waitDone(timeout time.Duration) bool {
	select {
	case <-r.done:
		return true
	case <-time.After(timeout):
		return false
	}
}
