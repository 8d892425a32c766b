//go:build !amd64 && !arm64

package mc

func init() {
	vectorName = "scalar"
}
