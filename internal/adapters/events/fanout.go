package events

import (
	"sync"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
)

// subscriberBuffer is the per-subscriber queue depth; a full queue drops events
const subscriberBuffer = 100

// fanout tracks local subscribers per channel and delivers events to them
type fanout struct {
	mu   sync.RWMutex
	subs map[string]map[chan *entities.EntityEvent]struct{}
}

func newFanout() *fanout {
	return &fanout{subs: make(map[string]map[chan *entities.EntityEvent]struct{})}
}

// add registers a subscriber and reports whether it is the channel's first
func (f *fanout) add(channel string) (chan *entities.EntityEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	first := len(f.subs[channel]) == 0
	if f.subs[channel] == nil {
		f.subs[channel] = make(map[chan *entities.EntityEvent]struct{})
	}
	ch := make(chan *entities.EntityEvent, subscriberBuffer)
	f.subs[channel][ch] = struct{}{}
	return ch, first
}

// remove closes a subscriber and reports whether the channel has none left
func (f *fanout) remove(channel string, ch chan *entities.EntityEvent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	subs, ok := f.subs[channel]
	if !ok {
		return false
	}
	if _, ok := subs[ch]; !ok {
		return false
	}
	delete(subs, ch)
	close(ch)

	if len(subs) == 0 {
		delete(f.subs, channel)
		return true
	}
	return false
}

// broadcast delivers event to every subscriber and returns how many were skipped
func (f *fanout) broadcast(channel string, event *entities.EntityEvent) int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	dropped := 0
	for ch := range f.subs[channel] {
		copied := *event
		select {
		case ch <- &copied:
		default:
			dropped++
		}
	}
	return dropped
}

// closeChannel closes every subscriber of channel
func (f *fanout) closeChannel(channel string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.subs[channel] {
		close(ch)
	}
	delete(f.subs, channel)
}

func (f *fanout) channels() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, 0, len(f.subs))
	for channel := range f.subs {
		out = append(out, channel)
	}
	return out
}

func (f *fanout) count(channel string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[channel])
}
