// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import "sync"

// Port is the in-process MessageChannel analogue: a goroutine-safe
// bidirectional pipe. Two Ports are always allocated together by NewPair,
// each posting into the other's inbound queue.
type Port struct {
	mu        sync.Mutex
	closed    bool
	peer      *Port
	listeners []*listener
	started   bool
	pending   []Frame // frames posted before Start() or before any Subscribe
}

type listener struct {
	once    bool
	handler func(Frame)
	live    bool
}

// NewPair returns two Ports wired to each other, the analogue of
// `new MessageChannel()` yielding `{port1, port2}`.
func NewPair() (p1, p2 *Port) {
	p1 = &Port{}
	p2 = &Port{}
	p1.peer = p2
	p2.peer = p1
	return p1, p2
}

// Start activates delivery. Idempotent. Newly constructed ports buffer
// frames posted to them until Start is called at least once, matching
// MessagePort semantics where messages queue until start() is invoked.
func (p *Port) Start() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()
	for _, f := range pending {
		p.dispatch(f)
	}
}

// Post sends f to the peer port. Sub-channel ports listed in f.Transfers
// travel inside the frame itself; there is nothing further to move for an
// in-process port.
func (p *Port) Post(f Frame) error {
	p.mu.Lock()
	peer := p.peer
	closed := p.closed
	p.mu.Unlock()
	if closed || peer == nil {
		return ErrPortClosed
	}
	peer.mu.Lock()
	if peer.closed {
		peer.mu.Unlock()
		return ErrPortClosed
	}
	if !peer.started {
		peer.pending = append(peer.pending, f)
		peer.mu.Unlock()
		return nil
	}
	peer.mu.Unlock()
	peer.dispatch(f)
	return nil
}

func (p *Port) dispatch(f Frame) {
	p.mu.Lock()
	// Snapshot so handlers may Subscribe/unsubscribe reentrantly.
	snapshot := make([]*listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		if l.live {
			snapshot = append(snapshot, l)
		}
	}
	p.mu.Unlock()
	for _, l := range snapshot {
		if l.once {
			p.mu.Lock()
			l.live = false
			p.mu.Unlock()
		}
		l.handler(f)
	}
}

// Subscribe registers handler for inbound frames on p.
func (p *Port) Subscribe(once bool, handler func(Frame)) (unsubscribe func()) {
	l := &listener{once: once, handler: handler, live: true}
	p.mu.Lock()
	p.listeners = append(p.listeners, l)
	started := p.started
	p.mu.Unlock()
	if !started {
		p.Start()
	}
	return func() {
		p.mu.Lock()
		l.live = false
		p.mu.Unlock()
	}
}

// Close marks p closed; further Post calls on p fail, and p stops
// delivering to its listeners. It does not itself send a close frame —
// callers wanting the spec's {channel:"close"} convention should Post it
// first, then Close. See close.go for the combined helper.
func (p *Port) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	return nil
}

var _ Target = (*Port)(nil)
var _ Starter = (*Port)(nil)
var _ Closer = (*Port)(nil)
