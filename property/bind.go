// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package property

import (
	"context"

	"github.com/lbfalvy/web-process-host/channel"
	"github.com/lbfalvy/web-process-host/rpcproto"
)

// Bind installs getN, trackN, and (if srv is writable) setN into table,
// the naming convention spec §4.C and §9 call out as the sole
// interoperability contract for property discovery.
func Bind[T any](table rpcproto.CallTable, name string, srv *Server[T]) {
	table["get"+name] = func() T {
		return srv.Get()
	}
	table["track"+name] = func(ctx context.Context, port channel.Target) error {
		srv.Track(port)
		return nil
	}
	if srv.writable {
		table["set"+name] = func(v T) error {
			return srv.Set(v, false)
		}
	}
}
