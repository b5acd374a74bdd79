package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/wippyai/archive-runtime/module"
	"github.com/wippyai/archive-runtime/native"
)

// runVersion prints the engine identification through the same namespace
// an embedding host would use.
func runVersion(stdout io.Writer) error {
	out, err := module.Open().Call("version")
	if err != nil {
		return err
	}
	parts := out[0].([]int)
	nums := make([]string, len(parts))
	for i, n := range parts {
		nums[i] = fmt.Sprint(n)
	}
	fmt.Fprintf(stdout, "%s\n", native.VersionDetails())
	fmt.Fprintf(stdout, "version %s\n", strings.Join(nums, "."))
	return nil
}
