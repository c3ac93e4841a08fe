// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpcproto

import (
	"context"

	"github.com/lbfalvy/web-process-host/channel"
	"github.com/rs/zerolog"
)

type transferKeyType struct{}

var transferKey transferKeyType

// withTransfer scopes the current-transfer ambient binding to a single
// handler invocation, per spec §9's "never true global state" guidance:
// it lives only on the context the dispatcher constructs for that one
// call, never in a package-level variable.
func withTransfer(ctx context.Context, transfer []channel.Target) context.Context {
	return context.WithValue(ctx, transferKey, transfer)
}

// GetTransfer returns the transfer list that arrived with the request
// currently being handled. Valid only up to the first suspension point of
// a synchronous handler body. Calling it outside an active handler
// invocation is a misuse spec §7 defines as non-fatal: it logs and
// returns an empty list, never panics or errors.
func GetTransfer(ctx context.Context) []channel.Target {
	v, ok := ctx.Value(transferKey).([]channel.Target)
	if !ok {
		zerolog.Ctx(ctx).Warn().Msg("rpcproto: get-transfer called outside an active handler body")
		return nil
	}
	return v
}
