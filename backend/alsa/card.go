package alsa

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// SoundCardDevice is a playback PCM device on a sound card.
type SoundCardDevice struct {
	Card        int
	ID          int
	Description string
}

// Name returns the "hw:C,D" name of the device.
func (d SoundCardDevice) Name() string {
	return fmt.Sprintf("hw:%d,%d", d.Card, d.ID)
}

func (d SoundCardDevice) String() string {
	return fmt.Sprintf("%s: %s", d.Name(), d.Description)
}

var (
	cardRegex = regexp.MustCompile(`^\s*(\d+)\s+\[\s*([^]]*?)\s*\]:\s*(.*)`)

	// Lines look like "02-00: Loopback PCM : Loopback PCM : playback 8 : capture 8".
	pcmRegex = regexp.MustCompile(`^(\d+)-(\d+): (.*?) :.*`)
)

// PlaybackDevices lists the playback devices found in /proc/asound, ordered by card and device.
func PlaybackDevices() ([]SoundCardDevice, error) {
	cards, err := os.ReadFile("/proc/asound/cards")
	if err != nil {
		return nil, fmt.Errorf("could not read /proc/asound/cards: %w", err)
	}

	pcms, err := os.ReadFile("/proc/asound/pcm")
	if err != nil {
		return nil, fmt.Errorf("could not read /proc/asound/pcm: %w", err)
	}

	return parseDevices(string(cards), string(pcms)), nil
}

// parseDevices extracts playback devices from the contents of /proc/asound/cards and /proc/asound/pcm.
func parseDevices(cardsContent, pcmContent string) []SoundCardDevice {
	cardNames := make(map[int]string)
	for _, line := range strings.Split(cardsContent, "\n") {
		matches := cardRegex.FindStringSubmatch(line)
		if len(matches) != 4 {
			continue
		}

		id, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		cardNames[id] = strings.TrimSpace(matches[2])
	}

	var devices []SoundCardDevice
	for _, line := range strings.Split(pcmContent, "\n") {
		matches := pcmRegex.FindStringSubmatch(line)
		if len(matches) < 4 || !strings.Contains(line, "playback") {
			continue
		}

		cardID, _ := strconv.Atoi(matches[1])
		devID, _ := strconv.Atoi(matches[2])

		name, ok := cardNames[cardID]
		if !ok {
			continue
		}

		devices = append(devices, SoundCardDevice{
			Card:        cardID,
			ID:          devID,
			Description: name + " " + strings.TrimSpace(matches[3]),
		})
	}

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Card != devices[j].Card {
			return devices[i].Card < devices[j].Card
		}

		return devices[i].ID < devices[j].ID
	})

	return devices
}

// ParseName parses a PCM name in the format "hw:C,D". "hw:C" selects device 0.
func ParseName(name string) (card, device uint, err error) {
	if !strings.HasPrefix(name, "hw:") {
		return 0, 0, fmt.Errorf("invalid PCM name format: missing 'hw:' prefix")
	}

	parts := strings.Split(strings.TrimPrefix(name, "hw:"), ",")
	if len(parts) > 2 {
		return 0, 0, fmt.Errorf("invalid PCM name format: expected 'hw:card,device'")
	}

	c, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid card number '%s': %w", parts[0], err)
	}

	if len(parts) == 1 {
		return uint(c), 0, nil
	}

	d, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid device number '%s': %w", parts[1], err)
	}

	return uint(c), uint(d), nil
}

// errNoDevice is returned when no playback device exists.
var errNoDevice = errors.New("no ALSA playback device found")

// resolveName picks the device to open: name if set, otherwise the first playback device.
func resolveName(name string) (card, device uint, err error) {
	if name != "" {
		return ParseName(name)
	}

	devices, err := PlaybackDevices()
	if err != nil {
		return 0, 0, err
	}

	if len(devices) == 0 {
		return 0, 0, errNoDevice
	}

	return uint(devices[0].Card), uint(devices[0].ID), nil
}
