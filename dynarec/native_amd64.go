package dynarec

import "unsafe"

const nativeSupported = true

// callNative runs generated code with regs in RDI.
//
//go:noescape
func callNative(code uintptr, regs unsafe.Pointer)
