package serial

import (
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
)

// openPort is the Registry's bookkeeping for one OpenPort: the Worker's
// inbox handle, the subscriber set, and the write-lock holder. The OS handle
// itself is never stored here — it is owned exclusively by worker.
type openPort struct {
	name        string
	worker      *Worker
	subscribers map[string]Subscriber
	lockHolder  string // subscriber ID, "" if unlocked
}

// Registry is the single serialized authority over the open-port /
// subscriber / lock graph. All mutation happens under mu. Apart from List,
// which runs an OS enumeration, and Write, which waits for its Worker's
// acknowledgement, no Registry method performs I/O or blocks on anything but
// that mutex.
type Registry struct {
	mu            sync.Mutex
	ports         map[string]*openPort
	scanner       *Scanner
	defaultConfig PortConfig
	tuning        workerTuning
	logger        *log.Logger
	broadcaster   *Broadcaster
}

// NewRegistry creates a Registry. defaultConfig is applied to every port this
// Registry opens; logger must not be nil (use log.New(io.Discard) in tests
// that don't care about output).
func NewRegistry(defaultConfig PortConfig, logger *log.Logger) *Registry {
	r := &Registry{
		ports:         make(map[string]*openPort),
		defaultConfig: defaultConfig,
		tuning:        defaultWorkerTuning(),
		logger:        logger,
	}
	r.broadcaster = newBroadcaster(r)
	r.scanner = NewScanner(nil, r.IsOpen)
	return r
}

// NewRegistryWithExclusions is like NewRegistry but additionally applies
// exclude patterns to the Registry's own Scanner, so devices matching
// Serial.ExcludePatterns never show up in enumeration or get auto-opened.
func NewRegistryWithExclusions(defaultConfig PortConfig, logger *log.Logger, excludePatterns []string) *Registry {
	r := NewRegistry(defaultConfig, logger)
	r.scanner = NewScanner(excludePatterns, r.IsOpen)
	return r
}

// Scanner returns the Registry's port scanner, wired to IsOpen so its Scan
// results report which ports are presently open. List returns names only.
func (r *Registry) Scanner() *Scanner { return r.scanner }

// Open subscribes sub to name, opening the OS device and starting its Worker
// if no OpenPort exists yet. A second Open by the same subscriber is an
// idempotent success — the subscriber set size does not change.
func (r *Registry) Open(name string, sub Subscriber) error {
	r.mu.Lock()

	if p, ok := r.ports[name]; ok {
		if _, already := p.subscribers[sub.SubscriberID()]; already {
			r.mu.Unlock()
			return nil // AlreadyOpenForYou
		}
		p.subscribers[sub.SubscriberID()] = sub
		sub.TrackOpen(name)
		r.mu.Unlock()
		return nil
	}

	// No OpenPort yet: open the OS device while still holding the lock so
	// two concurrent Opens for the same name can never race into two
	// handles.
	port, err := openFunc(name, r.defaultConfig.ToSerialMode())
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	if r.defaultConfig.ReadTimeoutMs > 0 {
		if err := port.SetReadTimeout(msToDuration(r.defaultConfig.ReadTimeoutMs)); err != nil {
			_ = port.Close()
			r.mu.Unlock()
			return fmt.Errorf("%w: %v", ErrOpenFailed, err)
		}
	}

	worker := newWorker(name, port, r.logger, r.tuning, r.broadcaster.publish)
	p := &openPort{
		name:        name,
		worker:      worker,
		subscribers: map[string]Subscriber{sub.SubscriberID(): sub},
	}
	r.ports[name] = p
	sub.TrackOpen(name)
	r.mu.Unlock()

	worker.start(func(cause error) { r.onWorkerDone(name, cause) })
	return nil
}

// Close unsubscribes sub from name. If the subscriber set becomes empty the
// Worker is asked to shut down; if sub held the write-lock, it is released.
func (r *Registry) Close(name string, sub Subscriber) error {
	r.mu.Lock()
	p, ok := r.ports[name]
	if !ok {
		r.mu.Unlock()
		return ErrNotOpen
	}
	if _, subscribed := p.subscribers[sub.SubscriberID()]; !subscribed {
		r.mu.Unlock()
		return ErrNotSubscribed
	}

	delete(p.subscribers, sub.SubscriberID())
	if p.lockHolder == sub.SubscriberID() {
		p.lockHolder = ""
	}
	empty := len(p.subscribers) == 0
	if empty {
		delete(r.ports, name)
	}
	sub.TrackClose(name)
	r.mu.Unlock()

	if empty {
		p.worker.requestStop()
	}
	return nil
}

// CloseAll applies Close for every port sub is subscribed to. It never
// fails: ports the caller lists that are no longer open are simply skipped.
// portNames is the set the caller believes it holds (typically the
// ClientSession's own tracked set) — Registry has no reverse index from
// subscriber to ports, by design, so this is driven by the caller.
func (r *Registry) CloseAll(sub Subscriber, portNames []string) []string {
	closed := make([]string, 0, len(portNames))
	for _, name := range portNames {
		if err := r.Close(name, sub); err == nil {
			closed = append(closed, name)
		}
	}
	return closed
}

// List returns a snapshot of every enumerable OS serial device, not just
// those currently open.
func (r *Registry) List() ([]string, error) {
	infos, err := r.scanner.Scan()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumerationFailed, err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	sort.Strings(names)
	return names, nil
}

// Lock sets the write-lock on name to sub, if the lock is free and sub is
// subscribed. Re-locking by the current holder is an idempotent success.
func (r *Registry) Lock(name string, sub Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.ports[name]
	if !ok {
		return ErrNotOpen
	}
	if _, subscribed := p.subscribers[sub.SubscriberID()]; !subscribed {
		return ErrNotSubscribed
	}
	if p.lockHolder == "" {
		p.lockHolder = sub.SubscriberID()
		return nil
	}
	if p.lockHolder == sub.SubscriberID() {
		return nil // AlreadyLockedBySelf
	}
	return fmt.Errorf("%w: held by %s", ErrAlreadyLockedByOther, p.lockHolder)
}

// Unlock clears the write-lock on name if sub holds it.
func (r *Registry) Unlock(name string, sub Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.ports[name]
	if !ok {
		return ErrNotOpen
	}
	if p.lockHolder == "" {
		return ErrNotLocked
	}
	if p.lockHolder != sub.SubscriberID() {
		return ErrLockedByOther
	}
	p.lockHolder = ""
	return nil
}

// Write enqueues a WriteRequest to name's Worker inbox, provided sub holds
// the write-lock, and waits for the Worker's acknowledgement. The Worker
// acknowledges only after it has applied the write to the OS device (or the
// per-write timeout has expired), so Write returns once the device write has
// finished or failed, not as soon as the request is queued.
func (r *Registry) Write(name string, sub Subscriber, data []byte) (int, error) {
	r.mu.Lock()
	p, ok := r.ports[name]
	if !ok {
		r.mu.Unlock()
		return 0, ErrNotOpen
	}
	if _, subscribed := p.subscribers[sub.SubscriberID()]; !subscribed {
		r.mu.Unlock()
		return 0, ErrNotSubscribed
	}
	if p.lockHolder != sub.SubscriberID() {
		r.mu.Unlock()
		return 0, ErrWriteLockNotHeld
	}
	worker := p.worker
	r.mu.Unlock()

	if err := <-worker.enqueueWrite(sub.SubscriberID(), data); err != nil {
		return 0, fmt.Errorf("%w", err)
	}
	return len(data), nil
}

// IsOpen reports whether name currently has an OpenPort entry. Used by the
// Scanner to annotate enumeration results.
func (r *Registry) IsOpen(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ports[name]
	return ok
}

// Shutdown stops every Worker and waits for each to exit. Used on process
// shutdown so no OS handle outlives the process.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	workers := make([]*Worker, 0, len(r.ports))
	for _, p := range r.ports {
		workers = append(workers, p.worker)
	}
	r.mu.Unlock()

	for _, w := range workers {
		w.requestStop()
	}
	for _, w := range workers {
		w.waitStopped()
	}
}

// snapshotSubscribers copies the current subscriber list for name under a
// brief lock, for the Broadcaster to iterate over without holding it.
func (r *Registry) snapshotSubscribers(name string) []Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.ports[name]
	if !ok {
		return nil
	}
	subs := make([]Subscriber, 0, len(p.subscribers))
	for _, s := range p.subscribers {
		subs = append(subs, s)
	}
	return subs
}

// onWorkerDone is the Worker's terminal callback: remove the OpenPort entry
// and, if cause is non-nil (an I/O failure rather than a normal drain-to-
// empty shutdown), broadcast a "port closed due to error" notification to
// every prior subscriber.
func (r *Registry) onWorkerDone(name string, cause error) {
	r.mu.Lock()
	p, ok := r.ports[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.ports, name)
	subs := make([]Subscriber, 0, len(p.subscribers))
	for _, s := range p.subscribers {
		subs = append(subs, s)
		s.TrackClose(name)
	}
	r.mu.Unlock()

	if cause != nil {
		r.logger.Error("serial worker stopped on I/O error", "port", name, "error", cause)
		r.broadcaster.announceClosed(name, subs, cause)
	}
}
