package mirror

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// EndpointClient writes electrode blocks to the PLC or SCADA gateway that follows the rig.
// Writes are serialized: the unit id is a property of the shared TCP handler.
type EndpointClient struct {
	endpoint string

	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// EndpointConfig is the mirror section of the configuration, minus the block placement.
type EndpointConfig struct {
	// Endpoint is host:port of the Modbus TCP server.
	Endpoint string
	Timeout  time.Duration
}

// NewEndpointClient dials the Modbus server. The mirror is optional, so callers
// treat an error as "no mirror" rather than as a tracker failure.
func NewEndpointClient(cfg EndpointConfig) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("mirror endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("cannot connect mirror endpoint %s: %w", cfg.Endpoint, err)
	}

	return &EndpointClient{
		endpoint: cfg.Endpoint,
		handler:  h,
		client:   modbus.NewClient(h),
	}, nil
}

func (c *EndpointClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// WriteRegisters implements RegisterWriter with a single Write Multiple Registers request.
func (c *EndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = unitID
	_, err := c.client.WriteMultipleRegisters(addr, uint16(len(regs)), packRegisters(regs))
	if err != nil {
		return fmt.Errorf("write %d registers at %d on %s unit %d: %w", len(regs), addr, c.endpoint, unitID, err)
	}
	return nil
}

// packRegisters lays out registers big-endian, as Modbus puts them on the wire.
func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
