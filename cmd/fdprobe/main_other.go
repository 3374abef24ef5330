//go:build !linux

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "fdprobe: only supported on linux")
	os.Exit(2)
}
