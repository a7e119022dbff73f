package serialmux

import (
	"bytes"
	"errors"
	"sync"
)

var errPortClosed = errors.New("serial port closed")

// TestableSerialPort implements SerialPorter with scripted reads and captured
// writes. Reads block until data is added, EndOfInput is called, or the port
// is closed.
type TestableSerialPort struct {
	mu sync.Mutex

	readBuffer  bytes.Buffer
	writeBuffer bytes.Buffer

	// WriteError is returned by the next Write call if set
	WriteError error

	// ShortWrite makes Write report one byte fewer than it was given.
	ShortWrite bool

	// CloseError is returned by Close if set
	CloseError error

	closed   bool
	eof      bool
	readCond *sync.Cond
}

// NewTestableSerialPort creates a new TestableSerialPort for testing.
func NewTestableSerialPort() *TestableSerialPort {
	tsp := &TestableSerialPort{}
	tsp.readCond = sync.NewCond(&tsp.mu)
	return tsp
}

// Read returns buffered data, blocking while the buffer is empty.
func (t *TestableSerialPort) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for !t.closed && !t.eof && t.readBuffer.Len() == 0 {
		t.readCond.Wait()
	}
	if t.readBuffer.Len() > 0 {
		return t.readBuffer.Read(p)
	}
	if t.closed {
		return 0, errPortClosed
	}
	return t.readBuffer.Read(p) // io.EOF
}

// Write captures p, optionally failing.
func (t *TestableSerialPort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, errPortClosed
	}
	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}
	n, _ := t.writeBuffer.Write(p)
	if t.ShortWrite && n > 0 {
		n--
	}
	return n, nil
}

// Close marks the port as closed and wakes blocked readers.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	t.readCond.Broadcast()
	return t.CloseError
}

// AddReadData adds data to be returned by subsequent Read calls.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.readBuffer.Write(data)
	t.readCond.Broadcast()
}

// EndOfInput makes Read return io.EOF once the buffer drains.
func (t *TestableSerialPort) EndOfInput() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.eof = true
	t.readCond.Broadcast()
}

// WrittenData returns all data written to the port.
func (t *TestableSerialPort) WrittenData() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.writeBuffer.String()
}

// IsClosed reports whether Close was called.
func (t *TestableSerialPort) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closed
}
