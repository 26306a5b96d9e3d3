//go:build !cgo || js

package embedding

func init() {
	MarkUnavailable(BackendONNX, "onnxruntime needs cgo")
}
