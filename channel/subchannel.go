// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

// OpenSubchannel constructs a fresh bidirectional channel, posts one end
// (p1) across t as a sub-channel offer, and returns the other end (p2) to
// the caller. This is the canonical mechanism spec §4.A describes for
// concurrent calls over one logical connection: "construct a fresh
// bidirectional channel with two ports, send P1 across T, retain P2
// locally".
func OpenSubchannel(t Target) (local *Port, err error) {
	p1, p2 := NewPair()
	if err := t.Post(Frame{Transfers: []Target{p1}}); err != nil {
		return nil, err
	}
	p2.Start()
	return p2, nil
}

// IsOffer reports whether f is a bare sub-channel offer: no body, exactly
// one transferred port.
func IsOffer(f Frame) bool {
	return f.Body == nil && len(f.Transfers) == 1
}
