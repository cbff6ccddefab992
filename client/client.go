package client

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNotRunning indicates that the tracker is not started.
var ErrNotRunning = errors.New("tracker not running")

// Config controls the timing of the tracker.
type Config struct {
	// PollInterval is the sleep before each check for a requested state.
	PollInterval time.Duration
	// PollAttempts is the number of checks before GetElectrodeState gives up.
	PollAttempts int
	// CollectDelay is the time GetAllElectrodeIDs waits for identify responses.
	CollectDelay time.Duration
	// StartupWait bounds the wait for the receiver endpoint on Start.
	StartupWait time.Duration
	// StopTimeout bounds each of the two waits for the receiver on Stop.
	StopTimeout time.Duration
}

// DefaultConfig returns the timing used by Commander integrations.
func DefaultConfig() Config {
	return Config{
		PollInterval: 50 * time.Millisecond,
		PollAttempts: 20,
		CollectDelay: 500 * time.Millisecond,
		StartupWait:  100 * time.Millisecond,
		StopTimeout:  5 * time.Second,
	}
}

// Client tracks the electrode states reported by the amplifier-control program.
type Client struct {
	notifier
	cfg       Config
	transport Transport
	table     *stateTable

	mu    sync.Mutex
	types messageTypes
	rx    *receiver
}

// New returns a stopped tracker on the given transport.
func New(transport Transport, cfg Config) *Client {
	return &Client{
		cfg:       cfg,
		transport: transport,
		table:     newStateTable(),
	}
}

// Start registers the telegraph messages and starts the receiver. Starting a running tracker does nothing.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runningLocked() {
		return nil
	}

	c.table.Reset()
	types, err := registerMessages(c.transport)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStartup, err)
	}
	rx, err := startReceiver(c.transport, types, c.table, &c.notifier, c.cfg.StartupWait)
	if err != nil {
		return err
	}
	c.types = types
	c.rx = rx
	log.Info().Str("version", Version).Msg("telegraph tracker started")
	return nil
}

// Stop shuts the receiver down and clears all electrode states. Stopping a stopped tracker does nothing.
// Stop does not guarantee that the receiver goroutine has exited; a timeout is only logged.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rx == nil {
		return
	}
	c.rx.stop(c.cfg.StopTimeout)
	c.rx = nil
	c.table.Reset()
	log.Info().Msg("telegraph tracker stopped")
}

// IsRunning reports if the tracker is started.
func (c *Client) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runningLocked()
}

// runningLocked drops a receiver whose pump has already exited, e.g. because the endpoint
// could not be created after the startup wait. The next façade call starts a new one.
func (c *Client) runningLocked() bool {
	if c.rx == nil {
		return false
	}
	if !c.rx.exited() {
		return true
	}
	log.Warn().Msg("telegraph receiver exited, tracker is stopped")
	c.rx.cancel()
	c.rx = nil
	c.table.Reset()
	return false
}

func (c *Client) ensureRunning() error {
	if c.IsRunning() {
		return nil
	}
	return c.Start()
}

func (c *Client) broadcast(kind func(messageTypes) MessageType, id ElectrodeID) error {
	c.mu.Lock()
	running := c.runningLocked()
	rx := c.rx
	types := c.types
	c.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	endpoint, err := rx.currentEndpoint(c.cfg.StartupWait)
	if err != nil {
		return err
	}
	err = endpoint.Broadcast(Notification{Type: kind(types), Param: id})
	if err != nil {
		return err
	}
	// give the responder and the receiver a chance to run
	runtime.Gosched()
	return nil
}

// RequestAllElectrodeIDs asks every amplifier-control instance to identify its electrodes.
// The answers are collected with CollectAllElectrodeIDs.
func (c *Client) RequestAllElectrodeIDs() error {
	log.Debug().Msg("requesting all electrode ids")
	return c.broadcast(func(t messageTypes) MessageType { return t.broadcast }, 0)
}

// RequestElectrodeState asks the electrode with the given id to send its state.
func (c *Client) RequestElectrodeState(id ElectrodeID) error {
	log.Debug().Stringer("id", id).Msg("requesting electrode state")
	return c.broadcast(func(t messageTypes) MessageType { return t.request }, id)
}

// RequestOpenConnection subscribes to every state change of the given electrode.
func (c *Client) RequestOpenConnection(id ElectrodeID) error {
	log.Debug().Stringer("id", id).Msg("opening connection")
	return c.broadcast(func(t messageTypes) MessageType { return t.open }, id)
}

// RequestCloseConnection cancels a subscription made with RequestOpenConnection.
func (c *Client) RequestCloseConnection(id ElectrodeID) error {
	log.Debug().Stringer("id", id).Msg("closing connection")
	return c.broadcast(func(t messageTypes) MessageType { return t.close }, id)
}

// CollectAllElectrodeIDs drains the ids that identified themselves since the last call.
func (c *Client) CollectAllElectrodeIDs() []ElectrodeID {
	return c.table.CollectFreshIDs()
}

// CollectElectrodeState consumes the current state of the given electrode without requesting a new one.
func (c *Client) CollectElectrodeState(id ElectrodeID) (ElectrodeState, bool) {
	return c.table.Take(id)
}

// GetAllElectrodeIDs starts the tracker if necessary, asks for all electrode ids and
// returns the ids that answered within the collect delay.
func (c *Client) GetAllElectrodeIDs(ctx context.Context) ([]ElectrodeID, error) {
	if err := c.ensureRunning(); err != nil {
		return nil, err
	}
	if err := c.RequestAllElectrodeIDs(); err != nil {
		return nil, err
	}
	select {
	case <-time.After(c.cfg.CollectDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c.CollectAllElectrodeIDs(), nil
}

// GetElectrodeState starts the tracker if necessary, requests the state of the given electrode
// and polls for it. ok is false if no state arrived within PollAttempts × PollInterval.
//
// The returned state is consumed: a second call only succeeds after a new telegraph arrived.
// It is not guaranteed to be the answer to this particular request.
func (c *Client) GetElectrodeState(ctx context.Context, id ElectrodeID) (state ElectrodeState, ok bool, err error) {
	if err := c.ensureRunning(); err != nil {
		return ElectrodeState{}, false, err
	}
	if err := c.RequestElectrodeState(id); err != nil {
		return ElectrodeState{}, false, err
	}

	for i := 0; i < c.cfg.PollAttempts; i++ {
		select {
		case <-time.After(c.cfg.PollInterval):
		case <-ctx.Done():
			return ElectrodeState{}, false, ctx.Err()
		}
		state, ok = c.table.Take(id)
		if ok {
			return state, true, nil
		}
	}
	log.Debug().Stringer("id", id).Int("attempts", c.cfg.PollAttempts).Msg("no electrode state received")
	return ElectrodeState{}, false, nil
}
