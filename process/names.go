// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package process

import "context"

// Name iterates options in order and assigns the first currently-unclaimed
// name to pid, releasing any prior name pid held and firing every pending
// Wait resolver registered for the newly-taken name, in registration
// order. If every option is already claimed by any process (pid itself
// included), Name returns ("", false, nil) and leaves pid's prior name
// untouched — spec
// §9's Open Question is resolved in favor of this "retain on failure"
// behavior. Fails ErrNotFound if pid is missing.
func (t *Table) Name(pid PID, options []string) (string, bool, error) {
	t.mu.Lock()
	r, ok := t.rows.Load(pid)
	if !ok {
		t.mu.Unlock()
		return "", false, ErrNotFound
	}

	var chosen string
	found := false
	for _, name := range options {
		if _, taken := t.names.Load(name); !taken {
			chosen = name
			found = true
			break
		}
	}
	if !found {
		t.mu.Unlock()
		return "", false, nil
	}

	if r.name != nil {
		t.names.Delete(*r.name)
	}
	t.names.Store(chosen, pid)
	r.name = &chosen

	resolvers := t.waiters[chosen]
	delete(t.waiters, chosen)
	t.mu.Unlock()

	for _, ch := range resolvers {
		ch <- pid
		close(ch)
	}
	return chosen, true, nil
}

// Find returns the first option currently held by some process, or
// (_, _, false) if none are.
func (t *Table) Find(options []string) (string, PID, bool) {
	for _, name := range options {
		if pid, ok := t.names.Load(name); ok {
			return name, pid, true
		}
	}
	return "", 0, false
}

// Wait resolves with the PID that currently holds name, or — if nobody
// does yet — with the PID of the next process that successfully calls
// Name and takes it.
func (t *Table) Wait(ctx context.Context, name string) (PID, error) {
	t.mu.Lock()
	if pid, ok := t.names.Load(name); ok {
		t.mu.Unlock()
		return pid, nil
	}
	ch := make(chan PID, 1)
	t.waiters[name] = append(t.waiters[name], ch)
	t.mu.Unlock()

	select {
	case pid := <-ch:
		return pid, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
