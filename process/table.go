// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package process

import (
	"fmt"
	"sync"

	"github.com/lbfalvy/web-process-host/channel"
	"github.com/lbfalvy/web-process-host/wireerr"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

// PID is a small positive integer process identifier, per spec.md's
// GLOSSARY: locally unique within a host, potentially recycled after exit.
type PID int

// GetPortFunc spawns a child from a URL — the injected get-port(url)
// collaborator of spec §4.D/§6.
type GetPortFunc func(url string) (channel.Target, error)

// Installer installs a process's API server on its port and returns the
// teardown closure recorded as the row's disableApi. Supplied by the host
// package (§4.E) to avoid a process<->host import cycle; process.Table
// calls it exactly once per Start, matching spec §4.D's "install the API
// server" step.
type Installer func(pid PID, port channel.Target) (disableAPI func())

type row struct {
	port       channel.Target
	parent     *PID
	children   map[PID]struct{}
	name       *string
	disableAPI func()
}

// Table is the process table of spec §3/§4.D.
type Table struct {
	mu      sync.Mutex
	rows    *xsync.MapOf[PID, *row]
	names   *xsync.MapOf[string, PID]
	waiters map[string][]chan PID
	next    PID
	getPort GetPortFunc
	install Installer
	logger  *zerolog.Logger
}

// NewTable builds an empty process table. getPort may be nil if the host
// never spawns processes from URLs (only adopts existing ports). install
// may be nil in tests that exercise the table in isolation from §4.E.
func NewTable(getPort GetPortFunc, install Installer, logger *zerolog.Logger) *Table {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Table{
		rows:    xsync.NewMapOf[PID, *row](),
		names:   xsync.NewMapOf[string, PID](),
		waiters: make(map[string][]chan PID),
		getPort: getPort,
		install: install,
		logger:  logger,
	}
}

// Start allocates a PID for child (a URL string to spawn, or an
// already-constructed channel.Target to adopt), records its row, installs
// its API server, and — if parent is given — inserts the new PID into the
// parent's children. Fails with ErrNotFound if parent is specified but
// absent.
func (t *Table) Start(child any, parent *PID) (PID, error) {
	var port channel.Target
	switch c := child.(type) {
	case string:
		if t.getPort == nil {
			return 0, wireerr.New(wireerr.KindProtocolViolation, "process: no get-port collaborator configured")
		}
		p, err := t.getPort(c)
		if err != nil {
			return 0, err
		}
		port = p
	case channel.Target:
		port = c
	default:
		return 0, wireerr.New(wireerr.KindProtocolViolation, "process: start: unsupported child type %T", child)
	}

	t.mu.Lock()
	if parent != nil {
		if _, ok := t.rows.Load(*parent); !ok {
			t.mu.Unlock()
			return 0, ErrNotFound
		}
	}
	pid := t.allocLocked()
	r := &row{port: port, parent: parent, children: map[PID]struct{}{}}
	t.rows.Store(pid, r)
	if parent != nil {
		if pr, ok := t.rows.Load(*parent); ok {
			pr.children[pid] = struct{}{}
		}
	}
	t.mu.Unlock()

	if t.install != nil {
		r.disableAPI = t.install(pid, port)
	}
	t.logger.Debug().Int("pid", int(pid)).Msg("process: started")
	return pid, nil
}

// allocLocked must be called with t.mu held. It advances a rolling counter
// past any occupied slot, skipping at most one lap of the table's current
// size per spec §4.D.
func (t *Table) allocLocked() PID {
	size := t.rows.Size()
	for i := 0; i <= size; i++ {
		t.next++
		if t.next < 1 {
			t.next = 1
		}
		if _, occupied := t.rows.Load(t.next); !occupied {
			return t.next
		}
	}
	t.next++
	return t.next
}

// Exit removes pid and, depth-first, every transitive descendant. Fails
// ErrNotFound if pid is missing.
func (t *Table) Exit(pid PID) error {
	t.mu.Lock()
	r, ok := t.rows.Load(pid)
	if !ok {
		t.mu.Unlock()
		return ErrNotFound
	}
	children := make([]PID, 0, len(r.children))
	for c := range r.children {
		children = append(children, c)
	}
	t.mu.Unlock()

	for _, c := range children {
		_ = t.Exit(c) // best effort: a concurrent exit may have already removed it
	}

	t.mu.Lock()
	r, ok = t.rows.Load(pid)
	if !ok {
		t.mu.Unlock()
		return nil // raced with another exit of the same pid
	}
	if r.parent != nil {
		if pr, ok := t.rows.Load(*r.parent); ok {
			delete(pr.children, pid)
		}
	}
	if r.name != nil {
		t.names.Delete(*r.name)
	}
	t.rows.Delete(pid)
	t.mu.Unlock()

	if r.disableAPI != nil {
		r.disableAPI()
	}
	if c, ok := r.port.(channel.Closer); ok {
		_ = c.Close()
	}
	if term, ok := r.port.(channel.Terminator); ok {
		term.Terminate()
	}
	t.logger.Debug().Int("pid", int(pid)).Msg("process: exited")
	return nil
}

// Reparent detaches pid from its current parent and attaches it under
// newParent (or makes it a root, if newParent is nil). Fails ErrNotFound if
// either pid is missing or newParent is specified but absent, and
// ErrTopologyViolation if the move would create a cycle.
func (t *Table) Reparent(pid PID, newParent *PID) error {
	t.mu.Lock()
	_, ok := t.rows.Load(pid)
	if !ok {
		t.mu.Unlock()
		return ErrNotFound
	}
	if newParent != nil {
		if _, ok := t.rows.Load(*newParent); !ok {
			t.mu.Unlock()
			return ErrNotFound
		}
	}
	t.mu.Unlock()

	if newParent != nil {
		if *newParent == pid || t.IsInSubtree(*newParent, pid) {
			return wireerr.New(wireerr.KindTopologyViolation,
				"reparenting %d under %d would create a cycle", pid, *newParent)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rows.Load(pid)
	if !ok {
		return ErrNotFound
	}
	if r.parent != nil {
		if pr, ok := t.rows.Load(*r.parent); ok {
			delete(pr.children, pid)
		}
	}
	r.parent = newParent
	if newParent != nil {
		if pr, ok := t.rows.Load(*newParent); ok {
			pr.children[pid] = struct{}{}
		}
	}
	return nil
}

// Children returns the child set of pid, or every root process (parent-less
// rows) when pid is nil — the only way to enumerate the forest.
func (t *Table) Children(pid *PID) ([]PID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pid == nil {
		var roots []PID
		t.rows.Range(func(p PID, r *row) bool {
			if r.parent == nil {
				roots = append(roots, p)
			}
			return true
		})
		return roots, nil
	}
	r, ok := t.rows.Load(*pid)
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]PID, 0, len(r.children))
	for c := range r.children {
		out = append(out, c)
	}
	return out, nil
}

// Parent returns pid's parent, or nil if pid is a root. Fails ErrNotFound
// if pid is missing.
func (t *Table) Parent(pid PID) (*PID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rows.Load(pid)
	if !ok {
		return nil, ErrNotFound
	}
	return r.parent, nil
}

// IsInSubtree walks parent pointers from pid upward, returning true if
// root is encountered before the root of the forest. Used for subtree
// authority checks (§4.E) and cycle prevention (Reparent above).
func (t *Table) IsInSubtree(pid, root PID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := pid
	for {
		if cur == root {
			return true
		}
		r, ok := t.rows.Load(cur)
		if !ok || r.parent == nil {
			return false
		}
		cur = *r.parent
	}
}

// Port returns the channel.Target for pid, for callers (host's send)
// needing direct access to an existing process's port.
func (t *Table) Port(pid PID) (channel.Target, error) {
	r, ok := t.rows.Load(pid)
	if !ok {
		return nil, ErrNotFound
	}
	return r.port, nil
}

func (pid PID) String() string { return fmt.Sprintf("%d", int(pid)) }
