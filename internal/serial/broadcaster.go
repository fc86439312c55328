package serial

// Broadcaster is the fan-out primitive: for every ReadChunk a Worker
// produces, it delivers a copy to each subscriber currently on that port.
// It never blocks the Worker — the per-subscriber drop-on-full behavior
// lives in Subscriber.Notify, which Broadcaster calls outside of any lock.
type Broadcaster struct {
	registry *Registry
}

func newBroadcaster(r *Registry) *Broadcaster {
	return &Broadcaster{registry: r}
}

// publish fans a ReadChunk out to every subscriber of chunk.Port. It takes a
// brief Registry lock to snapshot the subscriber list, releases it, and
// only then calls Notify on each, so a slow subscriber's send can never hold
// the Registry lock or stall the Worker that produced the chunk.
func (b *Broadcaster) publish(chunk ReadChunk) {
	subs := b.registry.snapshotSubscribers(chunk.Port)
	for _, sub := range subs {
		sub.Notify(Notification{Kind: NotifyRead, Port: chunk.Port, Data: chunk.Data})
	}
}

// announceClosed fans a port-closed notification out to every subscriber of
// name, then forgets about them (the Registry entry is already gone by the
// time this runs).
func (b *Broadcaster) announceClosed(name string, subs []Subscriber, cause error) {
	for _, sub := range subs {
		sub.Notify(Notification{Kind: NotifyClosed, Port: name, Err: cause})
	}
}
