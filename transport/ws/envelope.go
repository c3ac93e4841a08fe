// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ws

import (
	"github.com/lbfalvy/web-process-host/property"
	"github.com/lbfalvy/web-process-host/rpcproto"
	"github.com/lbfalvy/web-process-host/wireerr"
)

// envelope is the one JSON shape that ever crosses the socket: a channel
// id (multiplexing many logical sub-channels over one connection, per
// wsprd/app/messaging.go's Message.Id demultiplexing), a tagged body, and
// any sub-channel ids newly offered alongside it.
//
// A raw websocket cannot transfer a channel.Port the way postMessage
// transfers a MessagePort, so an offer instead mints a uuid and the peer
// reconstructs a local bridge bound to it — Transfers here carries those
// minted ids, not port values.
type envelope struct {
	Channel   string                 `json:"channel"`
	Kind      string                 `json:"kind,omitempty"`
	Wire      *rpcproto.WireFrame    `json:"wire,omitempty"`
	Tracker   *property.TrackerFrame `json:"tracker,omitempty"`
	Raw       []byte                 `json:"raw,omitempty"`
	Transfers []string               `json:"transfers,omitempty"`
}

const (
	kindNone    = ""
	kindWire    = "wire"
	kindTracker = "tracker"
	kindClose   = "close"
	kindRaw     = "raw"
)

var errUnknownChannel = wireerr.New(wireerr.KindProtocolViolation, "transport/ws: frame for unknown channel")
