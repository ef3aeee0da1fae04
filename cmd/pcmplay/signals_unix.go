//go:build !windows && !js

package main

import (
	"os"
	"syscall"
)

var (
	pauseSignal  os.Signal = syscall.SIGUSR1
	rewindSignal os.Signal = syscall.SIGUSR2

	controlSignals = []os.Signal{pauseSignal, rewindSignal}
)
