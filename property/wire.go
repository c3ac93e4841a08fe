// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package property

import (
	"reflect"

	"github.com/lbfalvy/web-process-host/wireerr"
	"github.com/spf13/cast"
)

// TrackerFrame is the wire shape of spec §6's tracker-port frames. It
// carries Value as `any` rather than a generic T: a real wire transport
// would decode JSON into exactly this shape, and keeping it untyped here
// is what lets a single dynamically-typed client (client/client.go) track
// properties of server-declared types it has never seen before.
type TrackerFrame struct {
	Value    any
	HasValue bool
	Err      *wireerr.Error
	Close    bool
}

func coerceTo[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	if rv, ok := v.(T); ok {
		return rv, nil
	}
	target := reflect.TypeOf(zero)
	if target == nil {
		// T is an interface type that v does not implement (for any, the
		// assertion above always succeeds): the zero value is returned
		// without an error.
		return zero, nil
	}
	switch target.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(v)
		return any(s).(T), err
	case reflect.Int:
		n, err := cast.ToIntE(v)
		return any(n).(T), err
	case reflect.Int64:
		n, err := cast.ToInt64E(v)
		return any(n).(T), err
	case reflect.Bool:
		b, err := cast.ToBoolE(v)
		return any(b).(T), err
	case reflect.Float64:
		f, err := cast.ToFloat64E(v)
		return any(f).(T), err
	}
	return zero, wireerr.New(wireerr.KindProtocolViolation, "cannot coerce %T into %s", v, target)
}
