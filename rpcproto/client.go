// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpcproto

import (
	"context"

	"github.com/lbfalvy/web-process-host/channel"
	"github.com/lbfalvy/web-process-host/wireerr"
	"github.com/spf13/cast"
)

// InBandCall posts a request frame directly on t and awaits the next frame
// as its reply. Cheap, but disallows interleaving: the caller must not
// issue another in-band call on t before this one completes (spec §4.B,
// §5).
func InBandCall(ctx context.Context, t channel.Target, name string, args []any) (any, error) {
	if err := t.Post(channel.Frame{Body: CallFrame(name, args)}); err != nil {
		return nil, err
	}
	return awaitReply(ctx, t)
}

// SubCall is the default, concurrency-safe call discipline: it opens a
// fresh sub-channel, issues the request there, awaits the reply there, and
// closes the sub-channel afterwards.
func SubCall(ctx context.Context, t channel.Target, name string, args []any) (any, error) {
	sub, err := channel.OpenSubchannel(t)
	if err != nil {
		return nil, err
	}
	defer channel.SignalClose(sub)
	if err := sub.Post(channel.Frame{Body: CallFrame(name, args)}); err != nil {
		return nil, err
	}
	return awaitReply(ctx, sub)
}

func awaitReply(ctx context.Context, t channel.Target) (any, error) {
	f, err := channel.GetOneMessage(ctx, t)
	if err != nil {
		return nil, err
	}
	wf, ok := f.Body.(WireFrame)
	if !ok {
		return nil, wireerr.New(wireerr.KindProtocolViolation, "expected a reply frame")
	}
	if wf.IsError() {
		return nil, *wf.Err
	}
	return wf.Result, nil
}

// Help fetches the server's registered call names via the default
// sub-channel discipline. The result travels as `any` and, over a wire
// transport that round-trips it through JSON (transport/ws), decodes as
// []interface{} rather than []string — cast.ToStringSliceE handles both
// the in-process ([]string) and wire ([]interface{}) shapes the same way
// property/wire.go's coerceTo handles tracker values.
func Help(ctx context.Context, t channel.Target) ([]string, error) {
	result, err := SubCall(ctx, t, HelpCall, nil)
	if err != nil {
		return nil, err
	}
	names, err := cast.ToStringSliceE(result)
	if err != nil {
		return nil, wireerr.New(wireerr.KindProtocolViolation, "help: unexpected result shape: %v", err)
	}
	return names, nil
}
