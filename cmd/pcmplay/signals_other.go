//go:build windows || js

package main

import "os"

var (
	pauseSignal  os.Signal
	rewindSignal os.Signal

	controlSignals []os.Signal
)
