/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package trc

import (
	"reflect"
)

// Compose builds a new *ClientTrace whose hooks call both primary's and
// fallback's corresponding hook (primary first), for any hook set on either
// side; a hook set on only one side passes through unchanged. If primary's
// hook returns a non-nil error (Got1xxResponse), that error is returned and
// fallback's hook is not called. Used to layer
// a per-request trace over a Manager-wide default trace.
func Compose(primary, fallback *ClientTrace) *ClientTrace {
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	merged := *primary
	merged.compose(fallback)
	return &merged
}

// compose modifies t such that it respects the previously-registered hooks in old,
// with t's hook called first (see Compose).
func (t *ClientTrace) compose(old *ClientTrace) {
	if old == nil {
		return
	}
	tv := reflect.ValueOf(t).Elem()
	ov := reflect.ValueOf(old).Elem()
	structType := tv.Type()
	for i := 0; i < structType.NumField(); i++ {
		tf := tv.Field(i)
		hookType := tf.Type()
		if hookType.Kind() != reflect.Func {
			continue
		}
		of := ov.Field(i)
		if of.IsNil() {
			continue
		}
		if tf.IsNil() {
			tf.Set(of)
			continue
		}

		// Make a copy of tf for tf to call. (Otherwise it
		// creates a recursive call cycle and stack overflows)
		tfCopy := reflect.ValueOf(tf.Interface())

		// We need to call both tf and of in some order.
		newFunc := reflect.MakeFunc(hookType, func(args []reflect.Value) []reflect.Value {
			ret := tfCopy.Call(args)
			if hookType.NumOut() > 0 && !ret[len(ret)-1].IsNil() {
				return ret
			}
			return of.Call(args)
		})
		tv.Field(i).Set(newFunc)
	}
}
