package serial

import (
	"io"
	"sync"
	"time"

	goserial "go.bug.st/serial"
)

// fakePort is an in-memory stand-in for go.bug.st/serial.Port used across
// this package's tests.
type fakePort struct {
	mu       sync.Mutex
	inbound  chan []byte // bytes injected by a test, drained by Read
	written  [][]byte
	closed   bool
	readErr  error // returned by every Read once set
	writeErr error // returned by every Write once set
}

func newFakePort() *fakePort {
	return &fakePort{inbound: make(chan []byte, 64)}
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.readErr != nil {
		err := f.readErr
		f.mu.Unlock()
		return 0, err
	}
	f.mu.Unlock()

	select {
	case data := <-f.inbound:
		n := copy(p, data)
		return n, nil
	case <-time.After(5 * time.Millisecond):
		return 0, nil
	}
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	f.written = append(f.written, cp)
	return len(p), nil
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePort) SetMode(mode *goserial.Mode) error   { return nil }
func (f *fakePort) SetReadTimeout(t time.Duration) error { return nil }
func (f *fakePort) ResetInputBuffer() error              { return nil }
func (f *fakePort) ResetOutputBuffer() error             { return nil }

func (f *fakePort) inject(data []byte) { f.inbound <- data }

func (f *fakePort) failRead(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

func (f *fakePort) failWrite(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

func (f *fakePort) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakePort) writtenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

var _ io.Closer = (*fakePort)(nil)
