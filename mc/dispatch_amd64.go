//go:build amd64

package mc

import "golang.org/x/sys/cpu"

func init() {
	switch {
	case cpu.X86.HasAVX512F:
		vectorName = "avx512"
	case cpu.X86.HasAVX2:
		vectorName = "avx2"
	case cpu.X86.HasSSE2:
		vectorName = "sse2"
	}
}
