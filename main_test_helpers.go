package main

import (
	"bytes"
	"testing"
)

// useBufferWriters swaps stdOut/stdErr with in-memory buffers for the duration
// of a test, allowing assertions on CLI banners and errors without polluting
// test logs.
func useBufferWriters(t *testing.T) {
	t.Helper()

	prevOut, prevErr := stdOut, stdErr
	stdOut = &bytes.Buffer{}
	stdErr = &bytes.Buffer{}

	t.Cleanup(func() {
		stdOut = prevOut
		stdErr = prevErr
	})
}

// stdOutText returns everything written to stdout since useBufferWriters ran.
func stdOutText() string {
	if buf, ok := stdOut.(*bytes.Buffer); ok {
		return buf.String()
	}
	return ""
}

// stdErrText returns everything written to stderr since useBufferWriters ran.
func stdErrText() string {
	if buf, ok := stdErr.(*bytes.Buffer); ok {
		return buf.String()
	}
	return ""
}
