// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host is the host API assembly of spec.md §4.E: for each process
// it builds a CallTable binding that process's PID as the implicit caller,
// merges in an injected extension API, and installs the result as an
// rpcproto.Server on the process's port. Grounded on services/wsprd/browspr's
// Controller, which binds an instance/origin identity into every
// dispatched call and merges an extension dispatcher for calls the core
// does not implement.
package host

import (
	"context"

	"github.com/lbfalvy/web-process-host/channel"
	"github.com/lbfalvy/web-process-host/process"
	"github.com/lbfalvy/web-process-host/rpcproto"
	"github.com/lbfalvy/web-process-host/wireerr"
	"github.com/rs/zerolog"
)

// HostAPI is the injected external-collaborator surface (§6): additional
// calls merged into every process's server — the extension point that
// keeps DOM-only concerns (iframe display, favicon, title, history) out of
// the core. It must not shadow any of the reserved core call names.
type HostAPI func(pid process.PID) rpcproto.CallTable

// reservedNames are the core calls every process's API always exposes;
// a HostAPI entry with one of these names is dropped with a logged warning
// rather than allowed to shadow the core.
var reservedNames = map[string]bool{
	"start": true, "exit": true, "children": true, "parent": true,
	"reparent": true, "getPid": true, "send": true,
	"name": true, "find": true, "wait": true, "roots": true,
}

// Host glues the process table onto the call transport.
type Host struct {
	Table  *process.Table
	api    HostAPI
	sync   bool
	ctx    context.Context
	logger *zerolog.Logger
}

// New builds a Host. getPort spawns children from a URL (may be nil if the
// host only ever adopts existing ports). api may be nil (no extension
// calls). sync selects the in-band-only call discipline for every
// installed server when true; the default (false) additionally serves
// sub-channel calls.
func New(ctx context.Context, getPort process.GetPortFunc, api HostAPI, sync bool, logger *zerolog.Logger) *Host {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	h := &Host{api: api, sync: sync, ctx: ctx, logger: logger}
	h.Table = process.NewTable(getPort, h.install, logger)
	return h
}

// install is the process.Installer callback: it builds pid's API table and
// installs it as an rpcproto.Server on port, returning the server's Cancel
// as the row's disableApi.
func (h *Host) install(pid process.PID, port channel.Target) func() {
	table := h.buildTable(pid)
	srv := rpcproto.MakeServer(h.ctx, port, table, h.sync, h.logger)
	return srv.Cancel
}

func (h *Host) buildTable(pid process.PID) rpcproto.CallTable {
	t := rpcproto.CallTable{
		"start": func(child any) (process.PID, error) {
			return h.Table.Start(child, &pid)
		},
		"exit": func(target *process.PID) error {
			tgt := resolveTarget(target, pid)
			if !h.Table.IsInSubtree(tgt, pid) {
				return wireerr.NotDescendant
			}
			return h.Table.Exit(tgt)
		},
		"children": func(target *process.PID) ([]process.PID, error) {
			tgt := resolveTarget(target, pid)
			if !h.Table.IsInSubtree(tgt, pid) {
				return nil, wireerr.NotDescendant
			}
			return h.Table.Children(&tgt)
		},
		"parent": func(target *process.PID) (*process.PID, error) {
			tgt := resolveTarget(target, pid)
			if !h.Table.IsInSubtree(tgt, pid) {
				return nil, wireerr.NotDescendant
			}
			return h.Table.Parent(tgt)
		},
		"reparent": func(target process.PID, newParent *process.PID) error {
			np := pid
			if newParent != nil {
				np = *newParent
			}
			if !h.Table.IsInSubtree(target, pid) {
				return wireerr.NotDescendant
			}
			if h.Table.IsInSubtree(np, target) {
				return wireerr.TopologyViolation
			}
			return h.Table.Reparent(target, &np)
		},
		"getPid": func() process.PID {
			return pid
		},
		"send": func(target process.PID, data any) error {
			port, err := h.Table.Port(target)
			if err != nil {
				return err
			}
			// A raw application message, stamped with the sender's
			// pid — distinct from the RPC call/reply frames, and
			// received by the target process's own message
			// listener, not the rpcproto dispatcher (which ignores
			// frame shapes it does not recognize).
			return port.Post(channel.Frame{Body: [2]any{pid, data}})
		},
		"name": func(options []string) (any, error) {
			name, ok, err := h.Table.Name(pid, options)
			if err != nil {
				return nil, err
			}
			if !ok {
				return false, nil
			}
			return name, nil
		},
		"find": func(options []string) (any, error) {
			name, fpid, ok := h.Table.Find(options)
			if !ok {
				return false, nil
			}
			return []any{name, fpid}, nil
		},
		"wait": func(ctx context.Context, name string) (process.PID, error) {
			return h.Table.Wait(ctx, name)
		},
		// roots enumerates the whole forest, not just pid's own subtree.
		// Restricted to callers that are themselves roots, so a process
		// anywhere below the top of the tree still only ever learns
		// about its own authority — it does not widen subtree
		// authority, it only lets the top of the tree see the rest of
		// the top of the tree.
		"roots": func() ([]process.PID, error) {
			parent, err := h.Table.Parent(pid)
			if err != nil {
				return nil, err
			}
			if parent != nil {
				return nil, wireerr.NotDescendant
			}
			return h.Table.Children(nil)
		},
	}
	if h.api != nil {
		for name, entry := range h.api(pid) {
			if reservedNames[name] {
				h.logger.Warn().Str("call", name).Msg("host: extension API call shadows a core name, ignored")
				continue
			}
			t[name] = entry
		}
	}
	return t
}

func resolveTarget(target *process.PID, caller process.PID) process.PID {
	if target == nil {
		return caller
	}
	return *target
}
