// Package main provides the entry point for n64core.
// n64core is an N64 R4300i CPU core with interpreter, cached-interpreter
// and dynarec backends.
//
// For the full CLI, use: go run ./cmd/n64sim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("n64core - N64 R4300i CPU core")
	fmt.Println("")
	fmt.Println("Usage: n64sim [options] <rom.z64|program.elf>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -backend   interpreter, cached or dynarec")
	fmt.Println("  -config    Path to a JSON or YAML machine configuration")
	fmt.Println("  -cycles    Cycle budget (0 runs until halt)")
	fmt.Println("  -dump      Write a compressed register snapshot on exit")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/n64sim' to execute an image and")
	fmt.Println("'go run ./cmd/n64diff' to compare the backends on it.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/n64sim' instead.")
	}
}
