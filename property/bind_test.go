// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package property

import (
	"testing"

	"github.com/lbfalvy/web-process-host/rpcproto"
	"github.com/stretchr/testify/require"
)

func TestBindInstallsGetAndTrackAlways(t *testing.T) {
	table := rpcproto.CallTable{}
	Bind(table, "Name", NewServer("Name", "alice", false, nil))

	require.Contains(t, table, "getName")
	require.Contains(t, table, "trackName")
	require.NotContains(t, table, "setName", "a read-only property must not expose a setter")
}

func TestBindInstallsSetWhenWritable(t *testing.T) {
	table := rpcproto.CallTable{}
	Bind(table, "Name", NewServer("Name", "alice", true, nil))

	require.Contains(t, table, "setName")
}

func TestBindGetReturnsCurrentValue(t *testing.T) {
	table := rpcproto.CallTable{}
	Bind(table, "Name", NewServer("Name", "bob", false, nil))

	get := table["getName"].(func() string)
	require.Equal(t, "bob", get())
}
