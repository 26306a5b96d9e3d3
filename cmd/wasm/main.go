//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/himanishpuri/voicematch/pkg/models"
	"github.com/himanishpuri/voicematch/pkg/voicematch"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorProcessing
	ErrorDegenerate
	ErrorInternal
)

var service voicematch.Service

// voicematchCompare compares two raw PCM recordings.
// Args: samples1, rate1, channels1, samples2, rate2, channels2, threshold?
// Returns: {error: number, data: result | string}
func voicematchCompare(this js.Value, args []js.Value) any {
	if len(args) < 6 {
		return makeErrorResponse(ErrorInvalidArgs,
			"Expected at least 6 arguments: samples1, rate1, channels1, samples2, rate2, channels2")
	}

	a, err := pcmFromJS("audio1", args[0], args[1], args[2])
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	b, err := pcmFromJS("audio2", args[3], args[4], args[5])
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	var threshold *float64
	if len(args) > 6 && !args[6].IsUndefined() && !args[6].IsNull() {
		if args[6].Type() != js.TypeNumber {
			return makeErrorResponse(ErrorInvalidArgs, "threshold must be a number")
		}
		t := args[6].Float()
		threshold = &t
	}

	res, err := service.Compare(context.Background(), a, b, threshold)
	code := ErrorNone
	if err != nil {
		switch models.KindOf(err) {
		case models.KindInvalidInput:
			code = ErrorInvalidArgs
		case models.KindDegenerateEmbedding:
			code = ErrorDegenerate
		case models.KindInternal, models.KindEmbedding:
			code = ErrorInternal
		default:
			code = ErrorProcessing
		}
	}

	data, merr := json.Marshal(res)
	if merr != nil {
		return makeErrorResponse(ErrorInternal, merr.Error())
	}
	result := js.Global().Get("Object").New()
	result.Set("error", code)
	result.Set("data", js.Global().Get("JSON").Call("parse", string(data)))
	return result
}

func pcmFromJS(label string, samplesJS, rateJS, channelsJS js.Value) (models.AudioBlob, error) {
	if samplesJS.Type() != js.TypeObject {
		return models.AudioBlob{}, fmt.Errorf("%s: samples must be an Array or Float32Array", label)
	}
	if rateJS.Type() != js.TypeNumber || channelsJS.Type() != js.TypeNumber {
		return models.AudioBlob{}, fmt.Errorf("%s: sample rate and channels must be numbers", label)
	}
	rate, channels := rateJS.Int(), channelsJS.Int()
	if rate <= 0 || channels <= 0 {
		return models.AudioBlob{}, fmt.Errorf("%s: sample rate and channels must be positive", label)
	}

	length := samplesJS.Length()
	if length == 0 {
		return models.AudioBlob{}, fmt.Errorf("%s: samples array is empty", label)
	}
	samples := make([]float32, length)
	for i := 0; i < length; i++ {
		v := samplesJS.Index(i)
		if v.Type() != js.TypeNumber {
			return models.AudioBlob{}, fmt.Errorf("%s: element %d is not a number", label, i)
		}
		samples[i] = float32(v.Float())
	}
	return pcmBlob(label, samples, rate, channels)
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	done := make(chan struct{})

	svc, err := newService()
	if err != nil {
		console.Call("error", "VoiceMatch initialisation failed: "+err.Error())
		return
	}
	service = svc

	js.Global().Set("voicematchCompare", js.FuncOf(voicematchCompare))

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
	} else if !console.IsUndefined() {
		console.Call("error", "window object is undefined")
	}

	if !console.IsUndefined() {
		console.Call("log", "VoiceMatch WASM module loaded and ready")
	}

	<-done
}
