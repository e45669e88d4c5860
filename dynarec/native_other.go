//go:build !amd64

package dynarec

import "unsafe"

const nativeSupported = false

func callNative(uintptr, unsafe.Pointer) {
	panic("dynarec: native code is only generated on amd64")
}
