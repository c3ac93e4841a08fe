// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rpcproto is the call transport of spec.md §4.B: a symmetric
// request/reply protocol over channel.Target, with in-band and sub-channel
// call disciplines, server-side dispatch, help introspection, and the
// current-transfer ambient binding. Grounded on runtime/internal/rpc's
// xserver.go (dispatch loop, registration/teardown) and xclient.go (call
// invocation, reply correlation), and services/wsprd/rpc/server's
// per-request correlation-map idiom.
package rpcproto

import (
	"encoding/json"

	"github.com/lbfalvy/web-process-host/wireerr"
)

// WireFrame is the exhaustive set of shapes spec.md §6 defines for a call
// transport frame. Exactly one of the Call/Result-or-HasResult/Err fields
// is populated per frame; Close frames carry none.
type WireFrame struct {
	// Call request.
	Call string `json:"call,omitempty"`
	Args []any  `json:"args,omitempty"`

	// Successful reply. HasResult distinguishes "result is nil" from "no
	// result field at all", the way the JS wire format's presence of the
	// `result` key would.
	Result    any  `json:"result,omitempty"`
	HasResult bool `json:"-"`

	// Failed reply.
	Err *wireerr.Error `json:"error,omitempty"`

	// Close control frame.
	Close bool `json:"channel,omitempty"`
}

// CallFrame builds a request frame.
func CallFrame(name string, args []any) WireFrame {
	return WireFrame{Call: name, Args: args}
}

// ResultFrame builds a successful reply frame.
func ResultFrame(result any) WireFrame {
	return WireFrame{Result: result, HasResult: true}
}

// ErrorFrame builds a failed reply frame.
func ErrorFrame(err error) WireFrame {
	return WireFrame{Err: toWireErr(err)}
}

func toWireErr(err error) *wireerr.Error {
	if err == nil {
		return nil
	}
	if we, ok := err.(wireerr.Error); ok {
		return &we
	}
	we := wireerr.New(wireerr.KindProtocolViolation, "%s", err.Error())
	return &we
}

func wireUnknownCall(name string) error {
	return wireerr.New(wireerr.KindProtocolViolation, "unknown call %q", name)
}

// IsRequest, IsResult, IsError classify a decoded WireFrame.
func (f WireFrame) IsRequest() bool { return f.Call != "" }
func (f WireFrame) IsResult() bool  { return f.HasResult }
func (f WireFrame) IsError() bool   { return f.Err != nil }

// wireFrameJSON is WireFrame's actual over-the-wire shape: HasResult needs
// its own explicit key so a nil/zero successful result still round-trips
// as "there was a result" rather than silently decoding back as a request
// with no call name.
type wireFrameJSON struct {
	Call      string         `json:"call,omitempty"`
	Args      []any          `json:"args,omitempty"`
	Result    any            `json:"result,omitempty"`
	HasResult bool           `json:"hasResult,omitempty"`
	Err       *wireerr.Error `json:"error,omitempty"`
	Close     bool           `json:"channel,omitempty"`
}

func (f WireFrame) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireFrameJSON{
		Call: f.Call, Args: f.Args, Result: f.Result,
		HasResult: f.HasResult, Err: f.Err, Close: f.Close,
	})
}

func (f *WireFrame) UnmarshalJSON(b []byte) error {
	var w wireFrameJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*f = WireFrame{
		Call: w.Call, Args: w.Args, Result: w.Result,
		HasResult: w.HasResult, Err: w.Err, Close: w.Close,
	}
	return nil
}
