// Package atomkey computes stable identifiers for (template, params)
// pairs: a deep structural hash for plain data containers and
// primitives, and a memoized identity hash for opaque values such as
// functions, channels, or pointers to types the caller controls.
package atomkey

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// identityRegistry memoizes a stable uuid per opaque value, keyed by
// pointer identity, so the same closure or host object always hashes
// to the same string within a process even though its content cannot
// be structurally compared.
var (
	identityMu       sync.Mutex
	identityRegistry = make(map[uintptr]string)
)

// Hash returns a stable string key for params. Two calls with
// structurally equal plain-data params (after JSON normalization)
// return the same key; a func, chan, or unexported-field-bearing
// struct is hashed by pointer/value identity instead, memoized across
// calls within the process.
func Hash(params []any) string {
	if len(params) == 0 {
		return "-"
	}

	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = hashOne(p)
	}

	joined, _ := json.Marshal(parts)
	return string(joined)
}

func hashOne(p any) string {
	if p == nil {
		return "null"
	}

	v := reflect.ValueOf(p)
	switch v.Kind() {
	case reflect.Func, reflect.Chan:
		return identityHash(p)
	case reflect.Ptr:
		if v.IsNil() {
			return "nil-ptr"
		}
		// dereference plain data pointers structurally; values
		// json.Marshal cannot encode fall back to identity hashing.
	}

	// a struct, or pointer to one, with unexported fields (e.g. a
	// *sync.Mutex) is opaque: json.Marshal would silently drop those
	// fields, so it is hashed by identity instead.
	if t := reflect.Indirect(v).Type(); t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() {
				return identityHash(p)
			}
		}
	}

	b, err := json.Marshal(p)
	if err != nil {
		return identityHash(p)
	}
	return string(b)
}

// identityHash returns a per-process-stable id for an opaque value,
// memoized by pointer identity. Values that are not pointer-shaped
// (e.g. a bare func value with no addressable backing) fall back to
// their fmt representation, which is documented as unstable across
// runs — callers must not use anonymous closures as atom params if
// they need identity to survive process restarts.
func identityHash(p any) string {
	ptr := pointerOf(p)

	identityMu.Lock()
	defer identityMu.Unlock()

	if ptr != 0 {
		if id, ok := identityRegistry[ptr]; ok {
			return id
		}
		id := uuid.NewString()
		identityRegistry[ptr] = id
		return id
	}

	return fmt.Sprintf("opaque:%v", p)
}

func pointerOf(p any) uintptr {
	v := reflect.ValueOf(p)
	switch v.Kind() {
	case reflect.Ptr, reflect.Chan, reflect.Map, reflect.Slice, reflect.UnsafePointer:
		return v.Pointer()
	case reflect.Func:
		return v.Pointer()
	default:
		return 0
	}
}
