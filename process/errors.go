// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package process is the process table of spec.md §4.D: PID allocation,
// parent/children bookkeeping, name registry and wait, reparenting, and
// subtree authority checks. Grounded on
// services/mounttable/lib/mounttable.go's node tree (parent pointers,
// children map, loop detection), translated from a string-path tree to a
// flat integer-PID forest.
package process

import "github.com/lbfalvy/web-process-host/wireerr"

// ErrNotFound, ErrTopologyViolation are the process-table corner of the
// §7 error taxonomy, reusing wireerr so they serialize identically to
// every other RPC failure.
var (
	ErrNotFound          = wireerr.NotFound
	ErrTopologyViolation = wireerr.TopologyViolation
)
