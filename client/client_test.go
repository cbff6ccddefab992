package client

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavesurfer/mctg/internal/logging"
)

func TestMain(m *testing.M) {
	logging.ConfigureTests()
	os.Exit(m.Run())
}

func testConfig() Config {
	return Config{
		PollInterval: 10 * time.Millisecond,
		PollAttempts: 20,
		CollectDelay: 50 * time.Millisecond,
		StartupWait:  100 * time.Millisecond,
		StopTimeout:  time.Second,
	}
}

func receiveType(t *testing.T, e Endpoint, messageType MessageType) Notification {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for {
		n, err := e.Receive(ctx)
		require.NoError(t, err)
		if n.Type == messageType {
			return n
		}
	}
}

type failingTransport struct {
	*Bus
}

func (t failingTransport) Open() (Endpoint, error) {
	return nil, errors.New("no window station")
}

type recordingListener struct {
	mu            sync.Mutex
	notifications []Notification
	telegraphs    chan ElectrodeState
	ids           chan ElectrodeID
}

func newRecordingListener() *recordingListener {
	return &recordingListener{
		telegraphs: make(chan ElectrodeState, 16),
		ids:        make(chan ElectrodeID, 16),
	}
}

func (l *recordingListener) Notification(n Notification) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notifications = append(l.notifications, n)
}

func (l *recordingListener) Telegraph(state ElectrodeState) {
	l.telegraphs <- state
}

func (l *recordingListener) ElectrodeIdentified(id ElectrodeID) {
	l.ids <- id
}

func TestClient_StartIsIdempotent(t *testing.T) {
	bus := NewBus()
	c := New(bus, testConfig())
	defer c.Stop()

	require.NoError(t, c.Start())
	require.NoError(t, c.Start())

	assert.True(t, c.IsRunning())
	assert.Equal(t, 1, bus.Endpoints())
}

func TestClient_StopWhenNotRunning(t *testing.T) {
	c := New(NewBus(), testConfig())
	c.Stop()
	assert.False(t, c.IsRunning())
}

func TestClient_StartStopCycles(t *testing.T) {
	bus := NewBus()
	c := New(bus, testConfig())

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Start())
		assert.True(t, c.IsRunning())
		c.Stop()
		assert.False(t, c.IsRunning())
		assert.Equal(t, 0, bus.Endpoints())
	}
}

func TestClient_StartupFailure(t *testing.T) {
	c := New(failingTransport{NewBus()}, testConfig())

	err := c.Start()
	assert.ErrorIs(t, err, ErrStartup)
	assert.False(t, c.IsRunning())
}

type slowFailingTransport struct {
	*Bus
	delay time.Duration
	opens atomic.Int32
}

func (t *slowFailingTransport) Open() (Endpoint, error) {
	t.opens.Add(1)
	time.Sleep(t.delay)
	return nil, errors.New("relay did not say hello")
}

func TestClient_LateStartupFailureStopsTracker(t *testing.T) {
	cfg := testConfig()
	transport := &slowFailingTransport{Bus: NewBus(), delay: 3 * cfg.StartupWait}
	c := New(transport, cfg)
	defer c.Stop()

	require.NoError(t, c.Start(), "the endpoint is still being created when the startup wait ends")
	assert.Eventually(t, func() bool { return !c.IsRunning() }, time.Second, 10*time.Millisecond)

	_, ok, err := c.GetElectrodeState(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.False(t, ok)
	assert.Equal(t, int32(2), transport.opens.Load(), "the next call starts a new receiver")
}

type blockingListener struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (l *blockingListener) Notification(Notification) {
	l.once.Do(func() { close(l.entered) })
	<-l.release
}

func TestClient_StopIsBounded(t *testing.T) {
	cfg := testConfig()
	cfg.StopTimeout = 100 * time.Millisecond
	bus := NewBus()
	c := New(bus, cfg)
	listener := &blockingListener{entered: make(chan struct{}), release: make(chan struct{})}
	defer close(listener.release)
	c.Notify(listener)
	require.NoError(t, c.Start())

	sender, err := bus.Open()
	require.NoError(t, err)
	defer sender.Close()
	require.NoError(t, sender.Broadcast(Notification{Type: 0xC100}))
	select {
	case <-listener.entered:
	case <-time.After(time.Second):
		t.Fatal("the receiver did not dispatch the notification")
	}

	start := time.Now()
	c.Stop()
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 2*cfg.StopTimeout)
	assert.Less(t, elapsed, 2*cfg.StopTimeout+300*time.Millisecond)
	assert.False(t, c.IsRunning())
}

func TestClient_RequestWhenNotRunning(t *testing.T) {
	c := New(NewBus(), testConfig())
	assert.ErrorIs(t, c.RequestAllElectrodeIDs(), ErrNotRunning)
	assert.ErrorIs(t, c.RequestElectrodeState(1), ErrNotRunning)
}

func TestClient_GetElectrodeStateTimesOut(t *testing.T) {
	cfg := testConfig()
	cfg.PollAttempts = 5
	c := New(NewBus(), cfg)
	defer c.Stop()

	start := time.Now()
	_, ok, err := c.GetElectrodeState(context.Background(), Pack700AID(1, 0, 1))
	elapsed := time.Since(start)

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, c.IsRunning(), "auto-started")
	assert.GreaterOrEqual(t, int64(elapsed), int64(5*cfg.PollInterval))
	assert.Less(t, int64(elapsed), int64(time.Second))
}

func TestClient_GetElectrodeStateCanceled(t *testing.T) {
	c := New(NewBus(), testConfig())
	defer c.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := c.GetElectrodeState(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
}

func TestClient_StoresIncomingTelegraphs(t *testing.T) {
	bus := NewBus()
	c := New(bus, testConfig())
	listener := newRecordingListener()
	c.Notify(listener)
	require.NoError(t, c.Start())
	defer c.Stop()

	requestType, _ := bus.RegisterMessage(RequestMessageName)
	amplifier, _ := bus.Open()
	defer amplifier.Close()
	telegraph := testTelegraph700B("835133", 1)
	telegraph.Version = 42

	require.NoError(t, amplifier.Broadcast(Notification{Type: MessageCopyData, Tag: requestType, Data: telegraph.Encode()}))

	select {
	case state := <-listener.telegraphs:
		assert.Equal(t, Pack700BID(835133, 1), state.ID)
	case <-time.After(time.Second):
		t.Fatal("no telegraph stored")
	}
	state, ok := c.CollectElectrodeState(Pack700BID(835133, 1))
	assert.True(t, ok)
	assert.Equal(t, ModeCurrentClamp, state.OperatingMode)

	_, ok = c.CollectElectrodeState(Pack700BID(835133, 1))
	assert.False(t, ok)
}

func TestClient_IgnoresForeignCopyData(t *testing.T) {
	bus := NewBus()
	c := New(bus, testConfig())
	listener := newRecordingListener()
	c.Notify(listener)
	require.NoError(t, c.Start())
	defer c.Stop()

	amplifier, _ := bus.Open()
	defer amplifier.Close()
	require.NoError(t, amplifier.Broadcast(Notification{Type: MessageCopyData, Tag: 0x1234, Data: testTelegraph700A(1, 0, 1).Encode()}))
	require.NoError(t, amplifier.Broadcast(Notification{Type: MessageCopyData, Tag: 0x1234, Data: []byte{1}}))

	time.Sleep(50 * time.Millisecond)
	_, ok := c.CollectElectrodeState(Pack700AID(1, 0, 1))
	assert.False(t, ok)
	assert.Empty(t, listener.telegraphs)
}

func TestClient_RecordsIdentifiedElectrodes(t *testing.T) {
	bus := NewBus()
	c := New(bus, testConfig())
	listener := newRecordingListener()
	c.Notify(listener)
	require.NoError(t, c.Start())
	defer c.Stop()

	idType, _ := bus.RegisterMessage(IDMessageName)
	amplifier, _ := bus.Open()
	defer amplifier.Close()
	for _, id := range []ElectrodeID{Pack700AID(1, 0, 1), Pack700AID(1, 0, 2), Pack700AID(1, 0, 1)} {
		require.NoError(t, amplifier.Broadcast(Notification{Type: idType, Param: id}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-listener.ids:
		case <-time.After(time.Second):
			t.Fatal("missing identify notification")
		}
	}

	assert.Equal(t, []ElectrodeID{Pack700AID(1, 0, 1), Pack700AID(1, 0, 2)}, c.CollectAllElectrodeIDs())
	assert.Empty(t, c.CollectAllElectrodeIDs())
}

func TestClient_ReconnectRequestsState(t *testing.T) {
	bus := NewBus()
	c := New(bus, testConfig())
	require.NoError(t, c.Start())
	defer c.Stop()

	reconnectType, _ := bus.RegisterMessage(ReconnectMessageName)
	requestType, _ := bus.RegisterMessage(RequestMessageName)
	amplifier, _ := bus.Open()
	defer amplifier.Close()
	id := Pack700BID(835133, 2)

	require.NoError(t, amplifier.Broadcast(Notification{Type: reconnectType, Param: id}))

	request := receiveType(t, amplifier, requestType)
	assert.Equal(t, id, request.Param)
	assert.NotEqual(t, amplifier.Handle(), request.From)
}

func TestClient_RequestsAreBroadcast(t *testing.T) {
	bus := NewBus()
	c := New(bus, testConfig())
	require.NoError(t, c.Start())
	defer c.Stop()

	amplifier, _ := bus.Open()
	defer amplifier.Close()
	tt := []struct {
		name    string
		request func() error
		param   ElectrodeID
	}{
		{BroadcastMessageName, c.RequestAllElectrodeIDs, 0},
		{RequestMessageName, func() error { return c.RequestElectrodeState(5) }, 5},
		{OpenMessageName, func() error { return c.RequestOpenConnection(6) }, 6},
		{CloseMessageName, func() error { return c.RequestCloseConnection(7) }, 7},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			messageType, _ := bus.RegisterMessage(tc.name)
			require.NoError(t, tc.request())
			n := receiveType(t, amplifier, messageType)
			assert.Equal(t, tc.param, n.Param)
		})
	}
}

func TestClient_StopClearsTable(t *testing.T) {
	bus := NewBus()
	c := New(bus, testConfig())
	listener := newRecordingListener()
	c.Notify(listener)
	require.NoError(t, c.Start())

	requestType, _ := bus.RegisterMessage(RequestMessageName)
	amplifier, _ := bus.Open()
	defer amplifier.Close()
	require.NoError(t, amplifier.Broadcast(Notification{Type: MessageCopyData, Tag: requestType, Data: testTelegraph700A(1, 0, 1).Encode()}))
	select {
	case <-listener.telegraphs:
	case <-time.After(time.Second):
		t.Fatal("no telegraph stored")
	}

	c.Stop()

	_, ok := c.CollectElectrodeState(Pack700AID(1, 0, 1))
	assert.False(t, ok)
}
