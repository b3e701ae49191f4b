// liborchard - C shared library exposing the flat Orchard API
//
// Build:
//
//	go build -buildmode=c-shared -o liborchard.so ./cmd/liborchard
//
// Every function returns an OrchardStatus. Functions producing bytes fill
// an OrchardBuffer the caller must release with orchard_free_bytes, which
// zeroes it first. On failure orchard_last_error_message returns a copy of
// the message, released with orchard_free_string.
package main

/*
#include <stdint.h>
#include <stdlib.h>
#include <string.h>
#include <stdbool.h>

typedef int32_t OrchardStatus;

typedef struct {
    uint8_t *data;
    size_t len;
} OrchardBuffer;
*/
import "C"

import (
	"unsafe"

	"github.com/suffix-labs/orchardlib/pkg/ffi"
	"github.com/suffix-labs/orchardlib/pkg/orchardlib"
)

func main() {}

// input copies a C buffer. A NULL pointer is only valid with zero length.
func input(p *C.uint8_t, n C.size_t) ([]byte, bool) {
	if p == nil {
		return nil, n == 0
	}
	return C.GoBytes(unsafe.Pointer(p), C.int(n)), true
}

// finish writes res into out and returns its status.
func finish(res ffi.Result, out *C.OrchardBuffer) C.OrchardStatus {
	if res.Status == ffi.StatusOK && out != nil {
		out.len = C.size_t(len(res.Data))
		out.data = nil
		if len(res.Data) > 0 {
			out.data = (*C.uint8_t)(C.CBytes(res.Data))
		}
		for i := range res.Data {
			res.Data[i] = 0
		}
	}
	return C.OrchardStatus(res.Status)
}

func call(out *C.OrchardBuffer, fn func() ([]byte, error)) C.OrchardStatus {
	if out == nil {
		return C.OrchardStatus(ffi.NullPointer().Status)
	}
	return finish(ffi.Call(fn), out)
}

//export orchard_free_bytes
func orchard_free_bytes(buf *C.OrchardBuffer) {
	if buf == nil || buf.data == nil {
		return
	}
	C.memset(unsafe.Pointer(buf.data), 0, buf.len)
	C.free(unsafe.Pointer(buf.data))
	buf.data = nil
	buf.len = 0
}

//export orchard_last_error_message
func orchard_last_error_message() *C.char {
	msg := ffi.LastError()
	if msg == "" {
		return nil
	}
	return C.CString(msg)
}

//export orchard_free_string
func orchard_free_string(s *C.char) {
	C.free(unsafe.Pointer(s))
}

//export orchard_derive_fvk
func orchard_derive_fvk(sk *C.uint8_t, skLen C.size_t, internal C.bool, out *C.OrchardBuffer) C.OrchardStatus {
	b, ok := input(sk, skLen)
	if !ok {
		return C.OrchardStatus(ffi.NullPointer().Status)
	}
	return call(out, func() ([]byte, error) { return orchardlib.DeriveFullViewingKey(b, bool(internal)) })
}

//export orchard_derive_ivk
func orchard_derive_ivk(fvk *C.uint8_t, fvkLen C.size_t, internal C.bool, out *C.OrchardBuffer) C.OrchardStatus {
	b, ok := input(fvk, fvkLen)
	if !ok {
		return C.OrchardStatus(ffi.NullPointer().Status)
	}
	return call(out, func() ([]byte, error) { return orchardlib.DeriveIncomingViewingKey(b, bool(internal)) })
}

//export orchard_derive_ovk
func orchard_derive_ovk(fvk *C.uint8_t, fvkLen C.size_t, internal C.bool, out *C.OrchardBuffer) C.OrchardStatus {
	b, ok := input(fvk, fvkLen)
	if !ok {
		return C.OrchardStatus(ffi.NullPointer().Status)
	}
	return call(out, func() ([]byte, error) { return orchardlib.DeriveOutgoingViewingKey(b, bool(internal)) })
}

//export orchard_derive_address
func orchard_derive_address(fvk *C.uint8_t, fvkLen C.size_t, index C.uint64_t, internal C.bool, out *C.OrchardBuffer) C.OrchardStatus {
	b, ok := input(fvk, fvkLen)
	if !ok {
		return C.OrchardStatus(ffi.NullPointer().Status)
	}
	return call(out, func() ([]byte, error) { return orchardlib.DeriveAddress(b, uint64(index), bool(internal)) })
}

//export orchard_f4jumble
func orchard_f4jumble(msg *C.uint8_t, msgLen C.size_t, out *C.OrchardBuffer) C.OrchardStatus {
	b, ok := input(msg, msgLen)
	if !ok {
		return C.OrchardStatus(ffi.NullPointer().Status)
	}
	return call(out, func() ([]byte, error) { return orchardlib.F4Jumble(b) })
}

//export orchard_f4jumble_inv
func orchard_f4jumble_inv(msg *C.uint8_t, msgLen C.size_t, out *C.OrchardBuffer) C.OrchardStatus {
	b, ok := input(msg, msgLen)
	if !ok {
		return C.OrchardStatus(ffi.NullPointer().Status)
	}
	return call(out, func() ([]byte, error) { return orchardlib.F4JumbleInv(b) })
}

//export orchard_shield
func orchard_shield(actionInfo *C.uint8_t, actionInfoLen C.size_t, rng *C.uint8_t, rngLen C.size_t, out *C.OrchardBuffer) C.OrchardStatus {
	ai, ok1 := input(actionInfo, actionInfoLen)
	rc, ok2 := input(rng, rngLen)
	if !ok1 || !ok2 {
		return C.OrchardStatus(ffi.NullPointer().Status)
	}
	return call(out, func() ([]byte, error) { return orchardlib.Shield(ai, rc) })
}

//export orchard_sign
func orchard_sign(sk *C.uint8_t, skLen C.size_t, alpha *C.uint8_t, alphaLen C.size_t,
	sighash *C.uint8_t, sighashLen C.size_t, rng *C.uint8_t, rngLen C.size_t, out *C.OrchardBuffer) C.OrchardStatus {
	k, ok1 := input(sk, skLen)
	a, ok2 := input(alpha, alphaLen)
	h, ok3 := input(sighash, sighashLen)
	rc, ok4 := input(rng, rngLen)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return C.OrchardStatus(ffi.NullPointer().Status)
	}
	defer zero(k)
	return call(out, func() ([]byte, error) { return orchardlib.Sign(k, a, h, rc) })
}

//export orchard_sign_binding
func orchard_sign_binding(bsk *C.uint8_t, bskLen C.size_t, sighash *C.uint8_t, sighashLen C.size_t,
	rng *C.uint8_t, rngLen C.size_t, out *C.OrchardBuffer) C.OrchardStatus {
	k, ok1 := input(bsk, bskLen)
	h, ok2 := input(sighash, sighashLen)
	rc, ok3 := input(rng, rngLen)
	if !ok1 || !ok2 || !ok3 {
		return C.OrchardStatus(ffi.NullPointer().Status)
	}
	defer zero(k)
	return call(out, func() ([]byte, error) { return orchardlib.SignBinding(k, h, rc) })
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
