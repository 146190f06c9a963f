package main

import "borealos/kernel/kmain"

var multibootInfoPtr, kernelStart, kernelEnd uintptr

// main makes a dummy call to the actual kernel entrypoint. It is
// intentionally defined this way, with its arguments read from package
// variables, to keep the Go compiler from inlining the call and discarding
// kmain's code: rt0 never calls main itself, it jumps straight to
// kmain.Kmain with the real addresses, but the linker still needs main to
// exist and to look like it uses kmain for the package to end up in the
// final binary.
func main() {
	kmain.Kmain(multibootInfoPtr, kernelStart, kernelEnd)
}
