//go:build arm64

package mc

import "golang.org/x/sys/cpu"

func init() {
	// cpu.ARM64.HasASIMD is always true for ARMv8+.
	switch {
	case cpu.ARM64.HasSVE:
		vectorName = "sve"
	case cpu.ARM64.HasASIMD:
		vectorName = "neon"
	}
}
