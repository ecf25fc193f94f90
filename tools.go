//go:build tools
// +build tools

// Package tools tracks code generators used by go generate (mockgen) as
// module dependencies.
package backend

import (
	_ "go.uber.org/mock/mockgen"
)
