// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package property

import (
	"context"
	"testing"
	"time"

	"github.com/lbfalvy/web-process-host/channel"
	"github.com/lbfalvy/web-process-host/rpcproto"
	"github.com/lbfalvy/web-process-host/wireerr"
	"github.com/stretchr/testify/require"
)

// serverCallFunc wires up a single "Count" property over a CallTable, the
// same shape Bind produces, without depending on rpcproto's dispatcher.
func serverCallFunc(t *testing.T, srv *Server[int]) CallFunc {
	t.Helper()
	table := rpcproto.CallTable{}
	Bind(table, "Count", srv)
	return func(ctx context.Context, name string, args []any) (any, error) {
		entry, ok := table[name]
		require.True(t, ok, "no such call %q", name)
		switch name {
		case "getCount":
			fn := entry.(func() int)
			return fn(), nil
		case "trackCount":
			fn := entry.(func(context.Context, channel.Target) error)
			return nil, fn(ctx, args[0].(channel.Target))
		case "setCount":
			fn := entry.(func(int) error)
			return nil, fn(args[0].(int))
		}
		return nil, nil
	}
}

func TestDiscoverFindsTrackedProperty(t *testing.T) {
	srv := NewServer("Count", 11, true, nil)
	call := serverCallFunc(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	props, err := Discover(ctx, []string{"getCount", "trackCount", "setCount", "help"}, call)
	require.NoError(t, err)

	cp, ok := props["Count"]
	require.True(t, ok)
	require.Equal(t, 11, cp.Get())
	require.True(t, cp.Writable())
}

func TestDiscoverSkipsTrackWithoutMatchingGet(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	props, err := Discover(ctx, []string{"trackOrphan", "help"}, func(context.Context, string, []any) (any, error) {
		t.Fatal("must not call anything when there is no matching getX")
		return nil, nil
	})
	require.NoError(t, err)
	require.Empty(t, props)
}

func TestClientPropertySetRequiresWritable(t *testing.T) {
	srv := NewServer("Count", 1, false, nil)
	call := serverCallFunc(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	props, err := Discover(ctx, []string{"getCount", "trackCount"}, call)
	require.NoError(t, err)

	cp := props["Count"]
	require.False(t, cp.Writable())
	require.ErrorIs(t, cp.Set(2), wireerr.PropertyNotSet)
}

func TestClientPropertySeesServerUpdates(t *testing.T) {
	srv := NewServer("Count", 0, true, nil)
	call := serverCallFunc(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	props, err := Discover(ctx, []string{"getCount", "trackCount", "setCount"}, call)
	require.NoError(t, err)
	cp := props["Count"]

	require.NoError(t, srv.Set(99, false))
	require.Eventually(t, func() bool { return cp.Get() == 99 }, time.Second, 5*time.Millisecond)
}
