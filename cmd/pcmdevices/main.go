package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gen2brain/pcmout"
	"github.com/gen2brain/pcmout/backend/alsa"
	"github.com/gen2brain/pcmout/cmd/internal/setup"
)

func main() {
	var caps bool

	opts := setup.Register(flag.CommandLine)
	flag.BoolVar(&caps, "caps", false, "Also print the hardware capabilities of every ALSA playback device")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Lists the audio backends that can be started and the ALSA playback devices.")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
	}

	flag.Parse()

	if err := setup.Logging(opts.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Backends:")
	for _, info := range opts.BackendList() {
		fmt.Printf("  %-12s %s\n", info.Name, tryBackend(info))
	}

	devices, err := alsa.PlaybackDevices()
	if err != nil {
		fmt.Printf("\nNo ALSA devices: %v\n", err)

		return
	}

	fmt.Println("\nALSA playback devices:")
	for _, d := range devices {
		fmt.Printf("  %s\n", d)

		if !caps {
			continue
		}

		c, err := alsa.Query(uint(d.Card), uint(d.ID))
		if err != nil {
			fmt.Printf("    %v\n", err)

			continue
		}

		fmt.Print(c)
	}
}

// tryBackend starts and ends one backend.
func tryBackend(info pcmout.BackendInfo) string {
	b, err := info.Create()
	if err != nil {
		return fmt.Sprintf("unavailable: %v", err)
	}

	if err := b.End(); err != nil {
		return fmt.Sprintf("available, end failed: %v", err)
	}

	return "available"
}
