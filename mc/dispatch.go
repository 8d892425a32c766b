package mc

import (
	"runtime"
	"strconv"
)

// vectorName is the widest vector extension detected on this CPU.
// Set by init() in dispatch_*.go files.
var vectorName = "scalar"

// VectorName returns the widest vector extension detected on this CPU, for
// example "avx512", "avx2", "neon" or "scalar".
func VectorName() string {
	return vectorName
}

// PlatformName describes the hardware the cores run on, for example
// "linux/amd64 avx2 x16", where the last field is the number of logical CPUs.
func PlatformName() string {
	return runtime.GOOS + "/" + runtime.GOARCH + " " + vectorName + " x" + strconv.Itoa(runtime.NumCPU())
}
