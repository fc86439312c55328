package serial

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// writeRequest is a WriteRequest queued to a Worker's inbox.
type writeRequest struct {
	data       []byte
	subscriber string
	result     chan<- error
}

// ReadChunk is a chunk of bytes a Worker pulled off its OS handle, destined
// for the Broadcaster.
type ReadChunk struct {
	Port      string
	Data      []byte
	Timestamp time.Time
}

// workerTuning bounds a Worker's poll loop: its target period, read/write
// buffer caps, and per-write timeout. Tests shrink these to run fast.
type workerTuning struct {
	period          time.Duration
	readBufCap      int
	maxDrainPerIter int
	writeTimeout    time.Duration
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func defaultWorkerTuning() workerTuning {
	return workerTuning{
		period:          10 * time.Millisecond,
		readBufCap:      4096,
		maxDrainPerIter: 16,
		writeTimeout:    2 * time.Second,
	}
}

// Worker owns exactly one OS serial handle and drives it with a
// time-bounded poll loop. It never touches the Registry's lock: it reports
// reads via onData, supplied by the Registry at construction, and terminal
// failure via onTerminal, supplied by the Registry to start.
type Worker struct {
	name    string
	port    Port
	inbox   chan writeRequest
	logger  *log.Logger
	tuning  workerTuning
	onData  func(ReadChunk)
	onDone  chan struct{}
	stop    chan struct{}
	stopped chan struct{}
}

func newWorker(name string, port Port, logger *log.Logger, tuning workerTuning, onData func(ReadChunk)) *Worker {
	return &Worker{
		name:    name,
		port:    port,
		inbox:   make(chan writeRequest, 64),
		logger:  logger,
		tuning:  tuning,
		onData:  onData,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// start launches the poll loop. onTerminal is invoked exactly once, from the
// Worker's own goroutine, when the loop exits for any reason (error or
// requested stop); it is the Registry's cue to tear down the OpenPort entry.
func (w *Worker) start(onTerminal func(err error)) {
	go w.run(onTerminal)
}

// requestStop asks the loop to exit after its current iteration. It does not
// block until the loop has actually exited; callers that need that use
// waitStopped.
func (w *Worker) requestStop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
}

func (w *Worker) waitStopped() {
	<-w.stopped
}

// enqueueWrite queues data for the Worker's next drain pass. If the inbox is
// full it waits for space for up to the write timeout; a stop signal during
// that wait yields ErrPortClosed and the timeout yields ErrWriteTimeout on
// the result channel. A full inbox does not stop the Worker.
func (w *Worker) enqueueWrite(subscriber string, data []byte) <-chan error {
	result := make(chan error, 1)
	req := writeRequest{data: data, subscriber: subscriber, result: result}

	select {
	case w.inbox <- req:
		return result
	default:
	}

	// Inbox momentarily full: wait for drain space or a stop signal, but
	// never hang past the write timeout that would terminate the Worker
	// anyway.
	timer := time.NewTimer(w.tuning.writeTimeout)
	defer timer.Stop()

	select {
	case w.inbox <- req:
	case <-w.stop:
		result <- ErrPortClosed
	case <-timer.C:
		result <- ErrWriteTimeout
	}
	return result
}

func (w *Worker) run(onTerminal func(err error)) {
	defer close(w.stopped)

	buf := make([]byte, w.tuning.readBufCap)

	for {
		select {
		case <-w.stop:
			w.shutdown(nil, onTerminal)
			return
		default:
		}

		start := time.Now()

		if err := w.drainWrites(); err != nil {
			w.shutdown(err, onTerminal)
			return
		}

		n, err := w.port.Read(buf)
		if err != nil {
			w.shutdown(err, onTerminal)
			return
		}
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			w.onData(ReadChunk{Port: w.name, Data: chunk, Timestamp: time.Now()})
		}

		elapsed := time.Since(start)
		if elapsed < w.tuning.period {
			timer := time.NewTimer(w.tuning.period - elapsed)
			select {
			case <-timer.C:
			case <-w.stop:
				timer.Stop()
				w.shutdown(nil, onTerminal)
				return
			}
		} else if elapsed > w.tuning.period {
			w.logger.Warn("serial worker loop exceeded target period",
				"port", w.name, "elapsed", elapsed, "target", w.tuning.period)
		}
	}
}

// drainWrites non-blockingly pulls up to maxDrainPerIter pending writes and
// applies each as a blocking write bounded by a per-write timeout.
func (w *Worker) drainWrites() error {
	for i := 0; i < w.tuning.maxDrainPerIter; i++ {
		select {
		case req := <-w.inbox:
			err := w.writeWithTimeout(req.data)
			req.result <- err
			if err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (w *Worker) writeWithTimeout(data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.tuning.writeTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := w.port.Write(data)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ErrWriteTimeout
	}
}

// shutdown drains and fails any writes still queued, closes the OS handle,
// and reports the terminal error (nil on a clean stop) to the Registry.
func (w *Worker) shutdown(err error, onTerminal func(error)) {
drain:
	for {
		select {
		case req := <-w.inbox:
			req.result <- ErrPortClosed
		default:
			break drain
		}
	}

	if cerr := w.port.Close(); cerr != nil && err == nil {
		w.logger.Warn("error closing serial port", "port", w.name, "error", cerr)
	}

	onTerminal(err)
}
