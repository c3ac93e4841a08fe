// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"testing"
	"time"

	"github.com/lbfalvy/web-process-host/channel"
	"github.com/lbfalvy/web-process-host/property"
	"github.com/lbfalvy/web-process-host/rpcproto"
	"github.com/stretchr/testify/require"
)

func newServerTable(t *testing.T) (rpcproto.CallTable, *property.Server[string]) {
	t.Helper()
	titleSrv := property.NewServer("Title", "A", true, nil)
	table := rpcproto.CallTable{
		"echo": func(s string) (string, error) { return s, nil },
	}
	property.Bind(table, "Title", titleSrv)
	return table, titleSrv
}

// TestGetBuildsCallableProxyAndDiscoversProperties exercises spec §4.F
// end-to-end against an in-process channel pair: help RPC, call wrapper
// synthesis, and property discovery all awaited before Get returns.
func TestGetBuildsCallableProxyAndDiscoversProperties(t *testing.T) {
	serverPort, clientPort := channel.NewPair()
	table, titleSrv := newServerTable(t)
	srv := rpcproto.MakeServer(context.Background(), serverPort, table, false, nil)
	defer srv.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, err := Get(ctx, clientPort, false)
	require.NoError(t, err)

	require.True(t, c.HasCall("echo"))
	require.False(t, c.HasCall("nonexistent"))

	result, err := c.Call(ctx, "echo", "hi")
	require.NoError(t, err)
	require.Equal(t, "hi", result)

	prop, ok := c.Property("Title")
	require.True(t, ok)
	require.Equal(t, "A", prop.Get())
	require.True(t, prop.Writable())

	require.NoError(t, prop.Set("B"))
	require.Eventually(t, func() bool { return titleSrv.Get() == "B" }, time.Second, 5*time.Millisecond)
}

func TestCallRejectsUnadvertisedName(t *testing.T) {
	serverPort, clientPort := channel.NewPair()
	table, _ := newServerTable(t)
	srv := rpcproto.MakeServer(context.Background(), serverPort, table, false, nil)
	defer srv.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, err := Get(ctx, clientPort, false)
	require.NoError(t, err)

	_, err = c.Call(ctx, "missing")
	require.Error(t, err)
}

func TestDescribeListsCallsWithoutBuildingClient(t *testing.T) {
	serverPort, clientPort := channel.NewPair()
	table, _ := newServerTable(t)
	srv := rpcproto.MakeServer(context.Background(), serverPort, table, false, nil)
	defer srv.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	names, err := Describe(ctx, clientPort)
	require.NoError(t, err)
	require.Contains(t, names, "echo")
	require.NotContains(t, names, rpcproto.HelpCall)
}

func TestNamesExcludesHelp(t *testing.T) {
	serverPort, clientPort := channel.NewPair()
	table, _ := newServerTable(t)
	srv := rpcproto.MakeServer(context.Background(), serverPort, table, false, nil)
	defer srv.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, err := Get(ctx, clientPort, false)
	require.NoError(t, err)

	require.NotContains(t, c.Names(), rpcproto.HelpCall)
	require.Contains(t, c.Names(), "echo")
}
