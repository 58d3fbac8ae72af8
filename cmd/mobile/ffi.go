//go:build cgo

package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"unsafe"
)

//export Init
// Init opens the core with JSON options.
// Returns a JSON envelope that must be freed with FreeString.
func Init(options *C.char) *C.char {
	return C.CString(string(bridge.Init([]byte(C.GoString(options))).Encode()))
}

//export Cleanup
// Cleanup releases the core.
func Cleanup() *C.char {
	return C.CString(string(bridge.Close().Encode()))
}

//export Call
// Call dispatches a bridge method with a JSON payload.
// Returns a JSON envelope that must be freed with FreeString.
func Call(method, payload *C.char) *C.char {
	return C.CString(string(bridge.Call(C.GoString(method), []byte(C.GoString(payload))).Encode()))
}

//export FreeString
// FreeString frees a string returned by the bridge.
func FreeString(ptr *C.char) {
	if ptr != nil {
		C.free(unsafe.Pointer(ptr))
	}
}
