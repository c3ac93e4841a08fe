// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package property

import (
	"context"
	"strings"
	"sync"

	"github.com/lbfalvy/web-process-host/channel"
	"github.com/lbfalvy/web-process-host/wireerr"
)

// CallFunc is the shape of a client's generic RPC invocation, satisfied by
// rpcproto.SubCall/InBandCall bound to a particular target.
type CallFunc func(ctx context.Context, name string, args []any) (any, error)

// ClientProperty is the client-side cache for one tracked value: a
// readable field, optimistically-writable if the server advertised a
// matching setN call.
type ClientProperty struct {
	mu       sync.RWMutex
	value    any
	lastErr  error
	writable bool
	port     channel.Target
}

// Get returns the last cached value.
func (c *ClientProperty) Get() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// LastError returns the most recent rejection surfaced by the server, if
// any, cleared on the next accepted value.
func (c *ClientProperty) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Set optimistically updates the local cache and posts the write upstream.
// It is only valid when the discovery pass found a corresponding setN
// call; Writable reports this.
func (c *ClientProperty) Set(v any) error {
	if !c.writable {
		return wireerr.PropertyNotSet
	}
	c.mu.Lock()
	c.value = v
	c.mu.Unlock()
	return c.port.Post(channel.Frame{Body: TrackerFrame{Value: v, HasValue: true}})
}

// Writable reports whether this property accepts client writes.
func (c *ClientProperty) Writable() bool { return c.writable }

// Discover implements spec §4.C's client-side synthesis pass: scan
// helpList for every trackX with a matching getX, subscribe a fresh local
// channel to each, and await the seeding {value} message before returning
// so callers never observe an uninitialized cache.
func Discover(ctx context.Context, helpList []string, call CallFunc) (map[string]*ClientProperty, error) {
	known := make(map[string]bool, len(helpList))
	for _, n := range helpList {
		known[n] = true
	}

	names := make([]string, 0)
	for _, n := range helpList {
		if !strings.HasPrefix(n, "track") {
			continue
		}
		suffix := strings.TrimPrefix(n, "track")
		if suffix == "" || !known["get"+suffix] {
			continue
		}
		names = append(names, suffix)
	}

	results := make(map[string]*ClientProperty, len(names))
	var mu sync.Mutex
	var wg sync.WaitGroup
	errs := make(chan error, len(names))

	for _, suffix := range names {
		wg.Add(1)
		go func(suffix string) {
			defer wg.Done()
			cp, err := discoverOne(ctx, suffix, known["set"+suffix], call)
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			results[suffix] = cp
			mu.Unlock()
		}(suffix)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func discoverOne(ctx context.Context, suffix string, writable bool, call CallFunc) (*ClientProperty, error) {
	local, remote := channel.NewPair()
	cp := &ClientProperty{writable: writable, port: local}

	ready := make(chan struct{})
	var once sync.Once
	local.Subscribe(false, func(f channel.Frame) {
		if channel.IsClose(f) {
			return
		}
		tf, ok := f.Body.(TrackerFrame)
		if !ok {
			return
		}
		cp.mu.Lock()
		if tf.Err != nil {
			cp.lastErr = *tf.Err
		} else if tf.HasValue {
			cp.value = tf.Value
			cp.lastErr = nil
		}
		cp.mu.Unlock()
		once.Do(func() { close(ready) })
	})

	if _, err := call(ctx, "track"+suffix, []any{remote}); err != nil {
		return nil, err
	}

	select {
	case <-ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return cp, nil
}
