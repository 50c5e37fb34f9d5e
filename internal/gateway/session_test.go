package gateway

import (
	"bytes"
	"chatapp-client/internal/cache"
	"chatapp-client/internal/hub"
	"compress/zlib"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type message struct {
	messageType int
	data        []byte
}

type fakeConn struct {
	inbound   chan message
	closed    chan struct{}
	closeOnce sync.Once

	mutex    sync.Mutex
	writes   []outgoingFrame
	failing  bool
	attempts int
}

type outgoingFrame struct {
	Op   int             `json:"op"`
	Data json.RawMessage `json:"d"`
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan message, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case m := <-c.inbound:
		return m.messageType, m.data, nil
	case <-c.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	var f outgoingFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.attempts++
	if c.failing {
		return errors.New("write failed")
	}
	c.writes = append(c.writes, f)
	return nil
}

func (c *fakeConn) failWrites() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.failing = true
}

func (c *fakeConn) writeAttempts() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.attempts
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) written(op int) []outgoingFrame {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var frames []outgoingFrame
	for _, f := range c.writes {
		if f.Op == op {
			frames = append(frames, f)
		}
	}
	return frames
}

type fakeDispatcher struct {
	mutex sync.Mutex
	tags  []string
}

func (d *fakeDispatcher) Dispatch(tag string, data json.RawMessage, frame []byte) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.tags = append(d.tags, tag)
}

func (d *fakeDispatcher) seen() []string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]string(nil), d.tags...)
}

type notifications struct {
	mutex sync.Mutex
	types []string
}

func (n *notifications) listen(msgType string, payload any) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.types = append(n.types, msgType)
}

func (n *notifications) count(msgType string) int {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	count := 0
	for _, t := range n.types {
		if t == msgType {
			count++
		}
	}
	return count
}

type fixture struct {
	session    *Session
	conn       *fakeConn
	dispatcher *fakeDispatcher
	notes      *notifications
}

func open(t *testing.T) *fixture {
	t.Helper()

	sugar := zap.NewNop().Sugar()
	h := hub.New(sugar, nil, "")
	notes := &notifications{}
	h.SubscribeAll(notes.listen)

	conn := newFakeConn()
	dispatcher := &fakeDispatcher{}
	dial := func(ctx context.Context, url string) (Conn, error) { return conn, nil }
	session := New(dial, dispatcher, h, cache.New(0), nil, sugar)

	if err := session.Open(context.Background(), "ws://gateway", "token", false); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { session.Close() })

	return &fixture{session, conn, dispatcher, notes}
}

func eventually(t *testing.T, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func compress(t *testing.T, text string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write([]byte(text)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestOpenSendsIdentifyOnce(t *testing.T) {
	f := open(t)

	identify := f.conn.written(opIdentify)
	if len(identify) != 1 {
		t.Fatalf("got %d identify frames, want 1", len(identify))
	}
	var data identifyData
	if err := json.Unmarshal(identify[0].Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Token != "token" || data.Version != 3 || data.Properties["$browser"] == "" {
		t.Errorf("got identify %+v", data)
	}
	if got := f.session.State(); got != AwaitingHandshake {
		t.Errorf("got state %s, want %s", got, AwaitingHandshake)
	}

	if err := f.session.Open(context.Background(), "ws://gateway", "token", false); !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("second Open returned %v, want ErrAlreadyOpen", err)
	}
}

func TestReadyStartsHeartbeat(t *testing.T) {
	f := open(t)

	f.conn.inbound <- message{websocket.TextMessage, []byte(`{"op":0,"t":"READY","s":1,"d":{"heartbeat_interval":10}}`)}

	eventually(t, func() bool { return f.session.State() == Ready })
	eventually(t, func() bool { return len(f.conn.written(opHeartbeat)) >= 2 })

	if got := f.dispatcher.seen(); len(got) != 1 || got[0] != "READY" {
		t.Errorf("dispatcher saw %v", got)
	}
	eventually(t, func() bool { return f.notes.count(hub.Ready) == 1 })

	var stamp int64
	if err := json.Unmarshal(f.conn.written(opHeartbeat)[0].Data, &stamp); err != nil || stamp <= 0 {
		t.Errorf("heartbeat payload %d, err %v", stamp, err)
	}
}

func TestHeartbeatFailureKeepsSession(t *testing.T) {
	tests := []struct {
		name  string
		close bool
		want  State
	}{
		{"WritesFailing", false, Ready},
		{"TransportClosed", true, Disconnected},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := open(t)
			f.conn.inbound <- message{websocket.TextMessage, []byte(`{"op":0,"t":"READY","d":{"heartbeat_interval":5}}`)}
			eventually(t, func() bool { return f.session.State() == Ready })

			f.conn.failWrites()
			attempts := f.conn.writeAttempts()
			eventually(t, func() bool { return f.conn.writeAttempts() >= attempts+3 })

			if test.close {
				f.conn.Close()
				eventually(t, func() bool { return f.session.State() == Disconnected })
			}

			if got := f.session.State(); got != test.want {
				t.Errorf("got state %s, want %s", got, test.want)
			}
			wantDisconnected := 0
			if test.close {
				wantDisconnected = 1
			}
			if got := f.notes.count(hub.Disconnected); got != wantDisconnected {
				t.Errorf("got %d Disconnected, want %d", got, wantDisconnected)
			}
		})
	}
}

func TestRepeatedReadyIsIgnored(t *testing.T) {
	tests := []struct {
		name   string
		frames int
	}{
		{"Once", 1},
		{"Twice", 2},
		{"ThreeTimes", 3},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := open(t)
			for i := 0; i < test.frames; i++ {
				f.conn.inbound <- message{websocket.TextMessage, []byte(`{"op":0,"t":"READY","d":{"heartbeat_interval":1000}}`)}
			}

			eventually(t, func() bool { return len(f.dispatcher.seen()) == test.frames })
			eventually(t, func() bool { return f.notes.count(hub.Ready) >= 1 })
			if got := f.notes.count(hub.Ready); got != 1 {
				t.Errorf("got %d Ready, want 1", got)
			}
			if got := f.session.State(); got != Ready {
				t.Errorf("got state %s, want %s", got, Ready)
			}
		})
	}
}

func TestCompressedFramesAreInflated(t *testing.T) {
	f := open(t)

	f.conn.inbound <- message{websocket.BinaryMessage, compress(t, `{"op":0,"t":"MESSAGE_CREATE","d":{}}`)}

	eventually(t, func() bool { return len(f.dispatcher.seen()) == 1 })
	if got := f.dispatcher.seen()[0]; got != "MESSAGE_CREATE" {
		t.Errorf("dispatched %s, want MESSAGE_CREATE", got)
	}
}

func TestBadFrameDoesNotStopReading(t *testing.T) {
	f := open(t)

	f.conn.inbound <- message{websocket.TextMessage, []byte(`{not json`)}
	f.conn.inbound <- message{websocket.BinaryMessage, []byte(`not zlib`)}
	f.conn.inbound <- message{websocket.TextMessage, []byte(`{"op":0,"t":"TYPING_START","d":{}}`)}

	eventually(t, func() bool { return len(f.dispatcher.seen()) == 1 })
	if got := f.notes.count(hub.ParseError); got != 2 {
		t.Errorf("got %d ParseError, want 2", got)
	}
	if f.session.State() == Disconnected {
		t.Error("bad frame closed the session")
	}
}

func TestNonDispatchFramesAreNotDispatched(t *testing.T) {
	f := open(t)

	f.conn.inbound <- message{websocket.TextMessage, []byte(`{"op":11,"d":null}`)}
	f.conn.inbound <- message{websocket.TextMessage, []byte(`{"op":0,"t":"CHANNEL_CREATE","d":{}}`)}

	eventually(t, func() bool { return len(f.dispatcher.seen()) == 1 })
	if got := f.notes.count(hub.Raw); got != 2 {
		t.Errorf("got %d Raw, want 2", got)
	}
}

func TestCloseEmitsDisconnectedOnce(t *testing.T) {
	f := open(t)

	f.session.Close()
	f.session.Close()

	select {
	case <-f.session.Done():
	case <-time.After(time.Second):
		t.Fatal("Done was not closed")
	}
	if got := f.session.State(); got != Disconnected {
		t.Errorf("got state %s, want %s", got, Disconnected)
	}
	if got := f.notes.count(hub.Disconnected); got != 1 {
		t.Errorf("got %d Disconnected, want 1", got)
	}
	if err := f.session.SendStatus(nil, nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendStatus after close returned %v", err)
	}
}

func TestRemoteCloseDisconnects(t *testing.T) {
	f := open(t)

	f.conn.Close()

	eventually(t, func() bool { return f.session.State() == Disconnected })
	if got := f.notes.count(hub.Disconnected); got != 1 {
		t.Errorf("got %d Disconnected, want 1", got)
	}
}

func TestDialFailure(t *testing.T) {
	sugar := zap.NewNop().Sugar()
	dial := func(ctx context.Context, url string) (Conn, error) { return nil, errors.New("refused") }
	session := New(dial, &fakeDispatcher{}, hub.New(sugar, nil, ""), cache.New(0), nil, sugar)

	if err := session.Open(context.Background(), "ws://gateway", "token", false); err == nil {
		t.Fatal("Open succeeded with a failing dialer")
	}
	if got := session.State(); got != Disconnected {
		t.Errorf("got state %s, want %s", got, Disconnected)
	}
}

func TestSendStatus(t *testing.T) {
	f := open(t)

	idle := int64(1700000000000)
	if err := f.session.SendStatus(&idle, nil); err != nil {
		t.Fatalf("SendStatus: %v", err)
	}

	status := f.conn.written(opStatus)
	if len(status) != 1 {
		t.Fatalf("got %d status frames, want 1", len(status))
	}
	var data statusData
	if err := json.Unmarshal(status[0].Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.IdleSince == nil || *data.IdleSince != idle || data.GameID != nil {
		t.Errorf("got status %+v", data)
	}
}

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name        string
		messageType int
		data        []byte
		want        string
		wantErr     bool
	}{
		{"Text", websocket.TextMessage, []byte(`{"op":0}`), `{"op":0}`, false},
		{"Binary", websocket.BinaryMessage, compress(t, `{"op":1}`), `{"op":1}`, false},
		{"CorruptBinary", websocket.BinaryMessage, []byte{1, 2, 3}, "", true},
		{"Ping", websocket.PingMessage, nil, "", true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := DecodeFrame(test.messageType, test.data)
			if (err != nil) != test.wantErr {
				t.Fatalf("got error %v, wantErr %v", err, test.wantErr)
			}
			if string(got) != test.want {
				t.Errorf("got %q, want %q", got, test.want)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	if Ready.String() != "ready" || State(42).String() != "unknown" {
		t.Error("unexpected state names")
	}
}
