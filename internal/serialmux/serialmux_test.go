package serialmux

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startMonitor(t *testing.T, mux *SerialMux[*TestableSerialPort]) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()
	return cancel, done
}

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case line, ok := <-ch:
		require.True(t, ok, "channel closed")
		return line
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for line")
		return ""
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	mux := NewSerialMux(NewTestableSerialPort())

	id1, ch1 := mux.Subscribe()
	id2, _ := mux.Subscribe()
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, mux.Subscribers())

	mux.Unsubscribe(id1)
	_, ok := <-ch1
	assert.False(t, ok, "unsubscribed channel should be closed")
	assert.Equal(t, 1, mux.Subscribers())

	// Unknown IDs are ignored.
	mux.Unsubscribe("missing")
	assert.Equal(t, 1, mux.Subscribers())
}

func TestMonitorFansOutLines(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	_, a := mux.Subscribe()
	_, b := mux.Subscribe()

	cancel, done := startMonitor(t, mux)
	defer cancel()

	port.AddReadData([]byte("{\"type\":\"imu\"}\n{\"type\":\"gnss\"}\n"))

	assert.Equal(t, `{"type":"imu"}`, receive(t, a))
	assert.Equal(t, `{"type":"gnss"}`, receive(t, a))
	assert.Equal(t, `{"type":"imu"}`, receive(t, b))
	assert.Equal(t, `{"type":"gnss"}`, receive(t, b))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Monitor did not stop on cancel")
	}
}

func TestMonitorReturnsNilAtEOF(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	_, ch := mux.Subscribe()

	cancel, done := startMonitor(t, mux)
	defer cancel()

	port.AddReadData([]byte("last line\n"))
	assert.Equal(t, "last line", receive(t, ch))
	port.EndOfInput()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Monitor did not stop at EOF")
	}
}

func TestMonitorDropsForFullSubscriber(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	_, slow := mux.Subscribe()

	cancel, _ := startMonitor(t, mux)
	defer cancel()

	port.AddReadData([]byte(strings.Repeat("x\n", subscriberBuffer+10)))
	require.Eventually(t, func() bool { return len(slow) == subscriberBuffer }, time.Second, 5*time.Millisecond)

	// The monitor keeps serving other subscribers while slow never reads.
	_, late := mux.Subscribe()
	port.AddReadData([]byte("end\n"))
	for receive(t, late) != "end" {
	}
	assert.Len(t, slow, subscriberBuffer)
}

func TestCloseStopsMonitorAndClosesSubscribers(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	_, ch := mux.Subscribe()

	_, done := startMonitor(t, mux)
	require.NoError(t, mux.Close())

	_, ok := <-ch
	assert.False(t, ok)
	assert.True(t, port.IsClosed())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Monitor did not stop after Close")
	}
}

func TestSendCommand(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	require.NoError(t, mux.SendCommand("reset"))
	require.NoError(t, mux.SendCommand("status\n"))
	assert.Equal(t, "reset\nstatus\n", port.WrittenData())
}

func TestSendCommandErrors(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	port.WriteError = errors.New("boom")
	assert.EqualError(t, mux.SendCommand("x"), "boom")

	port.ShortWrite = true
	assert.ErrorIs(t, mux.SendCommand("x"), ErrWriteFailed)
}

func TestHandleCommand(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	tests := []struct {
		name   string
		method string
		form   url.Values
		status int
	}{
		{"wrong method", http.MethodGet, nil, http.StatusMethodNotAllowed},
		{"missing command", http.MethodPost, url.Values{"command": {"  "}}, http.StatusBadRequest},
		{"ok", http.MethodPost, url.Values{"command": {"ping"}}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/debug/serial-command", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			mux.handleCommand(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
	assert.Equal(t, "ping\n", port.WrittenData())
}

func TestHandleTailStreamsLines(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/debug/serial-tail", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		mux.handleTail(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return mux.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	mux.broadcast(`{"type":"imu"}`)
	require.Eventually(t, func() bool {
		ch := firstSubscriber(mux)
		return ch != nil && len(ch) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	body := rec.Body.String()
	assert.Contains(t, body, ": ping")
	assert.Contains(t, body, `data: {"type":"imu"}`)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, 0, mux.Subscribers())
}

func firstSubscriber(mux *SerialMux[*TestableSerialPort]) chan string {
	mux.subscriberMu.Lock()
	defer mux.subscriberMu.Unlock()
	for _, ch := range mux.subscribers {
		return ch
	}
	return nil
}

func TestAttachAdminRoutes(t *testing.T) {
	mux := NewSerialMux(NewTestableSerialPort())
	httpMux := http.NewServeMux()
	assert.NotPanics(t, func() { mux.AttachAdminRoutes(httpMux) })
}

func TestDisabledSerialMux(t *testing.T) {
	d := NewDisabledSerialMux()
	var _ Mux = d
	var _ Mux = NewSerialMux(NewTestableSerialPort())

	id, ch := d.Subscribe()
	assert.NoError(t, d.SendCommand("anything"))
	d.Unsubscribe(id)
	_, ok := <-ch
	assert.False(t, ok)

	_, ch2 := d.Subscribe()
	require.NoError(t, d.Close())
	_, ok = <-ch2
	assert.False(t, ok)
	assert.NoError(t, d.Close())

	// Subscribing after Close yields a closed channel.
	_, ch3 := d.Subscribe()
	_, ok = <-ch3
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Monitor(ctx), context.Canceled)

	httpMux := http.NewServeMux()
	d.AttachAdminRoutes(httpMux)
	rec := httptest.NewRecorder()
	httpMux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/serial-disabled", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPipeSerialMux(t *testing.T) {
	mux, w := NewPipeSerialMux()
	_, ch := mux.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()

	go func() {
		w.Write([]byte("hello\n"))
		w.Close()
	}()

	assert.Equal(t, "hello", receive(t, ch))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Monitor did not stop after writer closed")
	}
	require.NoError(t, mux.SendCommand("ignored"))
	require.NoError(t, mux.Close())
}
