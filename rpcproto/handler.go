// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpcproto

import (
	"context"
	"reflect"

	"github.com/lbfalvy/web-process-host/wireerr"
	"github.com/spf13/cast"
)

// Handler is the canonical adapted form every CallTable entry is reduced
// to before dispatch.
type Handler func(ctx context.Context, args []any) (any, error)

// CallTable is a server's named entries. Per spec §4.B, only callable
// entries are installed as handlers; non-callable entries (e.g. constants
// merged in from a host-supplied extension table) are silently ignored.
type CallTable map[string]any

var ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
var errType = reflect.TypeOf((*error)(nil)).Elem()

// wrap reflection-adapts an arbitrary Go function into a Handler, coercing
// decoded wire arguments (typically []any from a JSON-decoded frame) into
// the function's declared parameter types via spf13/cast. It returns
// ok=false for non-func values, which the server then skips.
func wrap(name string, fn any) (h Handler, ok bool) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, false
	}
	t := rv.Type()
	if t.IsVariadic() {
		// None of the host's call tables are variadic; keep this
		// adapter simple and explicit about the restriction rather
		// than silently mishandling it.
		return nil, false
	}
	return func(ctx context.Context, args []any) (any, error) {
		in := make([]reflect.Value, t.NumIn())
		argi := 0
		for i := 0; i < t.NumIn(); i++ {
			pt := t.In(i)
			if pt == ctxType {
				in[i] = reflect.ValueOf(ctx)
				continue
			}
			if argi >= len(args) {
				if pt.Kind() == reflect.Ptr {
					// Trailing optional argument omitted entirely
					// (e.g. JS's exit(target=pid) called with no
					// arguments at all): the handler sees nil and
					// applies its own default.
					in[i] = reflect.Zero(pt)
					continue
				}
				return nil, wireerr.New(wireerr.KindProtocolViolation,
					"%s: missing argument %d", name, argi)
			}
			v, err := coerce(args[argi], pt)
			if err != nil {
				return nil, wireerr.New(wireerr.KindProtocolViolation,
					"%s: argument %d: %v", name, argi, err)
			}
			in[i] = v
			argi++
		}
		out := rv.Call(in)
		return splitReturn(out)
	}, true
}

func coerce(v any, pt reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(pt), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(pt) {
		return rv, nil
	}
	switch pt.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(v)
		return reflect.ValueOf(s), err
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return reflect.Value{}, err
		}
		r := reflect.New(pt).Elem()
		r.SetInt(n)
		return r, nil
	case reflect.Bool:
		b, err := cast.ToBoolE(v)
		return reflect.ValueOf(b), err
	case reflect.Slice:
		s, err := cast.ToSliceE(v)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.MakeSlice(pt, len(s), len(s))
		for i, elem := range s {
			ev, err := coerce(elem, pt.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	case reflect.Ptr:
		if pt.Elem().Kind() == reflect.Int {
			n, err := cast.ToInt64E(v)
			if err != nil {
				return reflect.Value{}, err
			}
			// Elem()'s concrete type may be a named int type (e.g.
			// process.PID), not bare int — reflect.New(pt.Elem()) builds
			// a pointer of that exact type so the result stays
			// assignable to pt, unlike a always-*int reflect.ValueOf(&iv).
			ptr := reflect.New(pt.Elem())
			ptr.Elem().SetInt(n)
			return ptr, nil
		}
	}
	if rv.Type().ConvertibleTo(pt) {
		return rv.Convert(pt), nil
	}
	return reflect.Value{}, wireerr.New(wireerr.KindProtocolViolation,
		"cannot coerce %T into %s", v, pt)
}

func splitReturn(out []reflect.Value) (any, error) {
	var result any
	var err error
	for _, v := range out {
		if v.Type() == errType {
			if !v.IsNil() {
				err = v.Interface().(error)
			}
			continue
		}
		result = v.Interface()
	}
	return result, err
}
