// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package client is the client surface of spec.md §4.F: get-client(port)
// performs a help RPC against a channel.Target, installs a call wrapper per
// advertised name, and runs the property-discovery pass — awaiting every
// tracked property's initial value before returning — so a caller never
// observes a Client with an empty property cache. Grounded on
// cmd/vrpc/vrpc.go's signature/call flow: resolve the server's advertised
// method surface first, then dispatch dynamically against it.
package client

import (
	"context"

	"github.com/lbfalvy/web-process-host/channel"
	"github.com/lbfalvy/web-process-host/property"
	"github.com/lbfalvy/web-process-host/rpcproto"
	"github.com/lbfalvy/web-process-host/wireerr"
)

// Client is a synthesized proxy for a remote rpcproto.Server: a set of
// advertised call names dispatched over t, plus every discovered tracked
// property's live, self-updating cache.
type Client struct {
	target     channel.Target
	calls      map[string]bool
	sync       bool
	Properties map[string]*property.ClientProperty
}

// Describe runs the help RPC against t on its own, without constructing a
// full Client or driving property discovery — a standalone introspection
// primitive for debugging tools, generalized from cmd/vrpc's "signature"
// subcommand.
func Describe(ctx context.Context, t channel.Target) ([]string, error) {
	return rpcproto.Help(ctx, t)
}

// Get-client per spec §4.F. sync selects the in-band call discipline for
// every synthesized call wrapper (matching the discipline the server was
// installed with); the default, concurrency-safe sub-channel discipline is
// used when sync is false.
func Get(ctx context.Context, t channel.Target, sync bool) (*Client, error) {
	names, err := rpcproto.Help(ctx, t)
	if err != nil {
		return nil, err
	}

	c := &Client{target: t, sync: sync, calls: make(map[string]bool, len(names))}
	for _, n := range names {
		c.calls[n] = true
	}

	props, err := property.Discover(ctx, names, c.call)
	if err != nil {
		return nil, err
	}
	c.Properties = props
	return c, nil
}

// Call invokes the advertised call name with args, using the discipline
// this client was constructed with. It fails with wireerr.ProtocolViolation
// if name was not advertised by the server's help response — callers
// should consult HasCall first if the name is conditionally present.
func (c *Client) Call(ctx context.Context, name string, args ...any) (any, error) {
	if !c.calls[name] {
		return nil, wireerr.New(wireerr.KindProtocolViolation, "client: %q was not advertised by the server", name)
	}
	return c.call(ctx, name, args)
}

func (c *Client) call(ctx context.Context, name string, args []any) (any, error) {
	if c.sync {
		return rpcproto.InBandCall(ctx, c.target, name, args)
	}
	return rpcproto.SubCall(ctx, c.target, name, args)
}

// HasCall reports whether the server advertised name in its help response.
func (c *Client) HasCall(name string) bool { return c.calls[name] }

// Property looks up a discovered tracked property by its bare name (the
// suffix shared by its getN/trackN/setN triad), e.g. "Title" for
// trackTitle/getTitle.
func (c *Client) Property(name string) (*property.ClientProperty, bool) {
	p, ok := c.Properties[name]
	return p, ok
}

// Names returns every call name the server advertised, sans the reserved
// help call itself.
func (c *Client) Names() []string {
	out := make([]string, 0, len(c.calls))
	for n := range c.calls {
		if n == rpcproto.HelpCall {
			continue
		}
		out = append(out, n)
	}
	return out
}
