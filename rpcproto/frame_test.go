// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpcproto

import (
	"encoding/json"
	"testing"

	"github.com/lbfalvy/web-process-host/wireerr"
	"github.com/stretchr/testify/require"
)

func TestWireFrameRoundTripsCallFrame(t *testing.T) {
	f := CallFrame("greet", []any{"world"})

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var got WireFrame
	require.NoError(t, json.Unmarshal(data, &got))
	require.True(t, got.IsRequest())
	require.Equal(t, "greet", got.Call)
}

func TestWireFrameRoundTripsNilResult(t *testing.T) {
	f := ResultFrame(nil)
	require.True(t, f.IsResult())

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var got WireFrame
	require.NoError(t, json.Unmarshal(data, &got))
	require.True(t, got.IsResult(), "a nil result must still round-trip as \"there was a result\"")
	require.False(t, got.IsRequest())
	require.False(t, got.IsError())
}

func TestWireFrameRoundTripsErrorFrame(t *testing.T) {
	f := ErrorFrame(wireerr.NotFound)

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var got WireFrame
	require.NoError(t, json.Unmarshal(data, &got))
	require.True(t, got.IsError())
	require.ErrorIs(t, *got.Err, wireerr.NotFound)
}

func TestToWireErrWrapsPlainError(t *testing.T) {
	we := toWireErr(errPlain("boom"))
	require.NotNil(t, we)
	require.Equal(t, wireerr.KindProtocolViolation, we.Kind)
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
