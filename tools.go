//go:build tools

package main

// Pin test tooling in go.mod.
import (
	_ "gotest.tools/gotestsum"
)
