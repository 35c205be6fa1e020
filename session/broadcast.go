// This file is part of Aether.
//
// Aether is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Aether is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Aether.  If not, see <https://www.gnu.org/licenses/>.

package session

import "sync"

// broadcastCapacity bounds each subscriber's buffered-but-unread event
// count; a slow subscriber that falls this far behind starts losing events
// rather than blocking the worker.
const broadcastCapacity = 256

// Broadcaster is a single-producer-many-consumer, non-blocking fan-out: a
// send that would block a lagging subscriber instead drops that
// subscriber's oldest buffered event, matching the "non-blocking; if the
// broadcast ring is full, the oldest event is overwritten" send semantics.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

// Subscriber is one independent receiver of a Broadcaster's events.
type Subscriber struct {
	ch     chan Event
	lagged bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscriber]struct{})}
}

// Subscribe returns a new independent receiver. Subscribers may live or die
// independently of each other and of the sender.
func (b *Broadcaster) Subscribe() *Subscriber {
	s := &Subscriber{ch: make(chan Event, broadcastCapacity)}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Unsubscribe removes s; further sends are not delivered to it.
func (b *Broadcaster) Unsubscribe(s *Subscriber) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Send delivers ev to every current subscriber, never blocking: a
// subscriber whose buffer is full has its oldest buffered event dropped to
// make room, and is marked lagged.
func (b *Broadcaster) Send(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		select {
		case s.ch <- ev:
		default:
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- ev:
			default:
			}
			s.lagged = true
		}
	}
}

// Recv returns the subscriber's event channel for range/select consumption.
func (s *Subscriber) Recv() <-chan Event { return s.ch }

// Lagged reports whether this subscriber has ever had an event dropped
// due to falling behind, and clears the flag.
func (s *Subscriber) Lagged() bool {
	l := s.lagged
	s.lagged = false
	return l
}
