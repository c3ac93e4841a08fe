// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpcproto

import (
	"context"
	"sort"
	"sync"

	"github.com/lbfalvy/web-process-host/channel"
	"github.com/rs/zerolog"
)

// HelpCall is the reserved introspection call name every server installs.
const HelpCall = "help"

// Server is the result of MakeServer: a handle on every handler installed
// across a root port and its recursively-installed sub-channels, with a
// single Cancel that tears all of it down. Grounded on
// runtime/internal/rpc/xserver.go's Stop/teardown path.
type Server struct {
	mu      sync.Mutex
	cancels []func()
	logger  *zerolog.Logger
}

// MakeServer registers one handler per callable entry of table on port.
// Non-callable entries are ignored. A help handler is always added,
// replying with the sorted list of the other registered call names. If
// sync is false (the default call discipline), inbound sub-channel offers
// are recursively served with the same table, which is what lets clients
// use the concurrent sub-channel call discipline against this server.
func MakeServer(ctx context.Context, port channel.Target, table CallTable, sync bool, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &Server{logger: logger}

	handlers := make(map[string]Handler, len(table))
	names := make([]string, 0, len(table))
	for name, entry := range table {
		h, ok := wrap(name, entry)
		if !ok {
			continue // non-callable entry: ignored per spec §4.B
		}
		handlers[name] = h
		names = append(names, name)
	}
	sort.Strings(names)
	handlers[HelpCall] = func(context.Context, []any) (any, error) {
		return names, nil
	}

	s.install(ctx, port, handlers, sync)
	return s
}

// install subscribes port for requests and (when sync is false) recursively
// installs the same handler set on any offered sub-channel.
func (s *Server) install(ctx context.Context, port channel.Target, handlers map[string]Handler, sync bool) {
	logger := s.logger
	unsubscribe := port.Subscribe(false, func(f channel.Frame) {
		if channel.IsClose(f) {
			return
		}
		if channel.IsOffer(f) {
			if sync {
				logger.Warn().Msg("rpcproto: ignoring sub-channel offer on a sync-only server")
				return
			}
			sub := f.Transfers[0]
			if st, ok := sub.(channel.Starter); ok {
				st.Start()
			}
			s.install(ctx, sub, handlers, sync)
			return
		}
		wf, ok := f.Body.(WireFrame)
		if !ok || !wf.IsRequest() {
			// Unrecognized frame shape: silently ignored, it may
			// belong to another handler sharing this port.
			return
		}
		handler, known := handlers[wf.Call]
		if !known {
			_ = port.Post(channel.Frame{Body: ErrorFrame(wireUnknownCall(wf.Call))})
			return
		}
		go s.invoke(ctx, port, handler, wf, f.Transfers)
	})
	s.mu.Lock()
	s.cancels = append(s.cancels, unsubscribe)
	s.mu.Unlock()
}

func (s *Server) invoke(ctx context.Context, port channel.Target, h Handler, wf WireFrame, transfers []channel.Target) {
	callCtx := withTransfer(ctx, transfers)
	result, err := h(callCtx, wf.Args)
	if err != nil {
		_ = port.Post(channel.Frame{Body: ErrorFrame(err)})
		return
	}
	_ = port.Post(channel.Frame{Body: ResultFrame(result)})
}

// Cancel tears down every handler this server installed, on the root port
// and every sub-channel it recursively served.
func (s *Server) Cancel() {
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}
