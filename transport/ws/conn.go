// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ws is the optional remote transport of spec.md's DOMAIN STACK: a
// channel.Target backed by a websocket connection instead of an in-process
// pair, so a host and a client can live in different processes. Grounded
// on services/wsprd/wspr's pipe (one websocket, many logical streams
// multiplexed over it) and services/wsprd/app/messaging.go's tagged
// message envelope.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lbfalvy/web-process-host/channel"
	"github.com/lbfalvy/web-process-host/property"
	"github.com/lbfalvy/web-process-host/rpcproto"
	"github.com/rs/zerolog"
)

// Conn is a channel.Target whose messages travel over a websocket
// connection. The root channel (spec's "the port itself") is channel id
// "", always present; every sub-channel offered across it mints a fresh
// uuid id multiplexed over the same socket.
type Conn struct {
	hub   *hub
	local *channel.Port
}

// Dial opens a client-side Conn against a ws:// or wss:// URL.
func Dial(ctx context.Context, url string, logger *zerolog.Logger) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	wsConn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return newConn(wsConn, logger), nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Accept upgrades an inbound HTTP request to a server-side Conn.
func Accept(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger) (*Conn, error) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newConn(wsConn, logger), nil
}

func newConn(wsConn *websocket.Conn, logger *zerolog.Logger) *Conn {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	h := &hub{
		ws:      wsConn,
		links:   map[string]channel.Target{},
		writeCh: make(chan envelope, 64),
		done:    make(chan struct{}),
		logger:  logger,
	}
	bridge, local := channel.NewPair()
	h.registerExisting("", bridge)

	go h.writePump()
	go h.readPump()

	return &Conn{hub: h, local: local}
}

func (c *Conn) Post(f channel.Frame) error { return c.local.Post(f) }

func (c *Conn) Subscribe(once bool, handler func(channel.Frame)) func() {
	return c.local.Subscribe(once, handler)
}

func (c *Conn) Start() { c.local.Start() }

func (c *Conn) Close() error {
	c.hub.shutdown()
	return c.local.Close()
}

var _ channel.Target = (*Conn)(nil)
var _ channel.Starter = (*Conn)(nil)
var _ channel.Closer = (*Conn)(nil)

// hub owns the websocket connection and demultiplexes every logical
// channel id over it.
type hub struct {
	ws      *websocket.Conn
	mu      sync.Mutex
	links   map[string]channel.Target
	writeCh chan envelope
	done    chan struct{}
	closed  bool
	logger  *zerolog.Logger
}

// registerExisting records bridge as the local-side end of channel id and
// wires its outbound forwarding. bridge is always the "other half" of a
// channel.NewPair() whose sibling is handed to application code (directly
// for the root channel, or as a Frame.Transfers entry for a sub-channel).
func (h *hub) registerExisting(id string, bridge channel.Target) {
	h.mu.Lock()
	h.links[id] = bridge
	h.mu.Unlock()
	bridge.Subscribe(false, h.forwarder(id))
}

func (h *hub) forwarder(id string) func(channel.Frame) {
	return func(f channel.Frame) {
		env, err := h.encode(id, f)
		if err != nil {
			h.logger.Warn().Err(err).Str("channel", id).Msg("transport/ws: dropping outbound frame, could not encode")
			return
		}
		h.mu.Lock()
		closed := h.closed
		h.mu.Unlock()
		if closed {
			return
		}
		select {
		case h.writeCh <- env:
		case <-h.done:
		default:
			h.logger.Warn().Str("channel", id).Msg("transport/ws: write queue full, dropping frame")
		}
		if channel.IsClose(f) {
			h.removeLink(id)
		}
	}
}

func (h *hub) removeLink(id string) {
	h.mu.Lock()
	delete(h.links, id)
	h.mu.Unlock()
}

// encode turns a local Frame into its wire envelope, minting a fresh uuid
// and registering a bridge for every transferred sub-channel target.
func (h *hub) encode(id string, f channel.Frame) (envelope, error) {
	env := envelope{Channel: id}
	for _, t := range f.Transfers {
		tid := uuid.NewString()
		h.registerExisting(tid, t)
		env.Transfers = append(env.Transfers, tid)
	}
	switch body := f.Body.(type) {
	case nil:
		env.Kind = kindNone
	case rpcproto.WireFrame:
		env.Kind = kindWire
		env.Wire = &body
	case property.TrackerFrame:
		env.Kind = kindTracker
		env.Tracker = &body
	default:
		if channel.IsClose(f) {
			env.Kind = kindClose
			break
		}
		raw, err := json.Marshal(body)
		if err != nil {
			return envelope{}, err
		}
		env.Kind = kindRaw
		env.Raw = raw
	}
	return env, nil
}

// deliver decodes an inbound envelope and injects it into the local bridge
// registered for its channel id, minting a fresh local pair (and handing
// its sibling onward inside Frame.Transfers) for every sub-channel id the
// envelope newly announces.
func (h *hub) deliver(env envelope) {
	var body any
	switch env.Kind {
	case kindNone:
		body = nil
	case kindWire:
		if env.Wire != nil {
			body = *env.Wire
		}
	case kindTracker:
		if env.Tracker != nil {
			body = *env.Tracker
		}
	case kindClose:
		body = channel.CloseFrame.Body
	case kindRaw:
		if len(env.Raw) > 0 {
			if err := json.Unmarshal(env.Raw, &body); err != nil {
				h.logger.Warn().Err(err).Msg("transport/ws: could not decode inbound raw frame body")
				return
			}
		}
	}

	frame := channel.Frame{Body: body}
	for _, tid := range env.Transfers {
		bridge, local := channel.NewPair()
		h.registerExisting(tid, bridge)
		frame.Transfers = append(frame.Transfers, local)
	}

	h.mu.Lock()
	target, ok := h.links[env.Channel]
	h.mu.Unlock()
	if !ok {
		h.logger.Warn().Str("channel", env.Channel).Msg(errUnknownChannel.Error())
		return
	}
	_ = target.Post(frame)
}

func (h *hub) readPump() {
	defer h.shutdown()
	for {
		msgType, data, err := h.ws.ReadMessage()
		if err != nil {
			h.logger.Debug().Err(err).Msg("transport/ws: read loop ended")
			return
		}
		if msgType == websocket.BinaryMessage {
			inflated, err := inflate(data)
			if err != nil {
				h.logger.Warn().Err(err).Msg("transport/ws: could not inflate inbound message")
				continue
			}
			data = inflated
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.logger.Warn().Err(err).Msg("transport/ws: could not decode inbound message")
			continue
		}
		h.deliver(env)
	}
}

func (h *hub) writePump() {
	for {
		select {
		case env, ok := <-h.writeCh:
			if !ok {
				return
			}
			data, err := json.Marshal(env)
			if err != nil {
				h.logger.Warn().Err(err).Msg("transport/ws: could not encode outbound message")
				continue
			}
			msgType := websocket.TextMessage
			if len(data) > compressThreshold {
				if compressed, err := deflate(data); err == nil {
					data = compressed
					msgType = websocket.BinaryMessage
				}
			}
			if err := h.ws.WriteMessage(msgType, data); err != nil {
				h.logger.Debug().Err(err).Msg("transport/ws: write failed, closing")
				h.shutdown()
				return
			}
		case <-h.done:
			return
		}
	}
}

func (h *hub) shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()
	close(h.done)
	_ = h.ws.Close()
}
