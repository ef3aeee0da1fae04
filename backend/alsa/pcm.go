//go:build linux && (amd64 || arm64 || 386 || arm)

package alsa

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/gen2brain/pcmout"
)

// hwConfig is the stream shape requested from the driver.
type hwConfig struct {
	Format       PcmFormat
	Channels     uint32
	Rate         uint32
	PeriodFrames uint32
	Periods      uint32
}

// pcm is an open playback stream on /dev/snd/pcmC*D*p.
// It is the Sink of the production loop.
type pcm struct {
	file      *os.File
	name      string
	config    hwConfig
	frameSize int
	xruns     int
}

// pcmPath returns the device node of a playback PCM.
func pcmPath(card, device uint) string {
	return fmt.Sprintf("/dev/snd/pcmC%dD%dp", card, device)
}

// openPCM opens and configures a playback PCM. Channels and rate are moved
// into the ranges the hardware reports; the values the driver accepted are
// returned in pcm.config.
func openPCM(card, device uint, cfg hwConfig) (*pcm, error) {
	path := pcmPath(card, device)

	// Open non-blocking so a busy device does not hang, then switch to blocking I/O.
	file, err := os.OpenFile(path, os.O_RDWR|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCM device %s: %w", path, err)
	}

	currentFlags, err := unix.FcntlInt(file.Fd(), unix.F_GETFL, 0)
	if err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("fcntl F_GETFL for %s failed: %w", path, err)
	}

	if _, err = unix.FcntlInt(file.Fd(), unix.F_SETFL, currentFlags&^syscall.O_NONBLOCK); err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("failed to set blocking mode on %s: %w", path, err)
	}

	var info sndPcmInfo
	if err := ioctl(file.Fd(), SNDRV_PCM_IOCTL_INFO, uintptr(unsafe.Pointer(&info))); err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("ioctl INFO failed: %w", err)
	}

	p := &pcm{
		file: file,
		name: cString(info.Name[:]),
	}

	if err := p.setParams(cfg); err != nil {
		_ = p.close()

		return nil, err
	}

	if err := p.prepare(); err != nil {
		_ = p.close()

		return nil, err
	}

	return p, nil
}

// errUnsupportedFormat is returned when the hardware lacks the requested sample format.
var errUnsupportedFormat = errors.New("sample format not supported by hardware")

// setParams negotiates the hardware and software parameters.
func (p *pcm) setParams(cfg hwConfig) error {
	refine := &sndPcmHwParams{}
	paramInit(refine)
	paramSetMask(refine, SNDRV_PCM_HW_PARAM_ACCESS, SNDRV_PCM_ACCESS_RW_INTERLEAVED)

	if err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_HW_REFINE, uintptr(unsafe.Pointer(refine))); err != nil {
		return fmt.Errorf("ioctl HW_REFINE failed: %w", err)
	}

	if !paramTestMask(refine, SNDRV_PCM_HW_PARAM_FORMAT, uint32(cfg.Format)) {
		return fmt.Errorf("format %d: %w", cfg.Format, errUnsupportedFormat)
	}

	lo, hi := paramRange(refine, SNDRV_PCM_HW_PARAM_CHANNELS)
	cfg.Channels = clamp(cfg.Channels, lo, hi)

	lo, hi = paramRange(refine, SNDRV_PCM_HW_PARAM_RATE)
	cfg.Rate = clamp(cfg.Rate, lo, hi)

	hwParams := &sndPcmHwParams{}
	paramInit(hwParams)

	paramSetMask(hwParams, SNDRV_PCM_HW_PARAM_ACCESS, SNDRV_PCM_ACCESS_RW_INTERLEAVED)
	paramSetMask(hwParams, SNDRV_PCM_HW_PARAM_FORMAT, uint32(cfg.Format))
	paramSetMin(hwParams, SNDRV_PCM_HW_PARAM_PERIOD_SIZE, cfg.PeriodFrames)
	paramSetInt(hwParams, SNDRV_PCM_HW_PARAM_CHANNELS, cfg.Channels)
	paramSetInt(hwParams, SNDRV_PCM_HW_PARAM_PERIODS, cfg.Periods)
	paramSetInt(hwParams, SNDRV_PCM_HW_PARAM_RATE, cfg.Rate)

	if err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_HW_PARAMS, uintptr(unsafe.Pointer(hwParams))); err != nil {
		return fmt.Errorf("ioctl HW_PARAMS failed: %w", err)
	}

	// Update the config with the refined parameters from the driver.
	p.config = cfg
	p.config.PeriodFrames = paramGetInt(hwParams, SNDRV_PCM_HW_PARAM_PERIOD_SIZE)
	p.config.Periods = paramGetInt(hwParams, SNDRV_PCM_HW_PARAM_PERIODS)
	p.config.Channels = paramGetInt(hwParams, SNDRV_PCM_HW_PARAM_CHANNELS)
	p.config.Rate = paramGetInt(hwParams, SNDRV_PCM_HW_PARAM_RATE)

	if p.config.Channels == 0 || p.config.Rate == 0 || p.config.PeriodFrames == 0 || p.config.Periods == 0 {
		return fmt.Errorf("driver finalized invalid PCM configuration (Channels=%d, Rate=%d, PeriodSize=%d, PeriodCount=%d)",
			p.config.Channels, p.config.Rate, p.config.PeriodFrames, p.config.Periods)
	}

	bits := paramGetInt(hwParams, SNDRV_PCM_HW_PARAM_SAMPLE_BITS)
	p.frameSize = int(bits / 8 * p.config.Channels)

	bufferFrames := p.config.PeriodFrames * p.config.Periods

	swParams := &sndPcmSwParams{}
	swParams.TstampMode = SNDRV_PCM_TSTAMP_ENABLE
	swParams.PeriodStep = 1
	swParams.AvailMin = sndPcmUframesT(p.config.PeriodFrames)
	swParams.StartThreshold = sndPcmUframesT(bufferFrames / 2)
	swParams.StopThreshold = sndPcmUframesT(bufferFrames)
	swParams.XferAlign = sndPcmUframesT(p.config.PeriodFrames / 2) // Needed for old kernels

	if err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_SW_PARAMS, uintptr(unsafe.Pointer(swParams))); err != nil {
		return fmt.Errorf("ioctl SW_PARAMS failed: %w", err)
	}

	return nil
}

// Wait polls until one period can be written or the timeout expires.
// POLLERR means the stream left the running state, which is reported as an underrun;
// recovery fails if the device is gone.
func (p *pcm) Wait(timeout time.Duration) (bool, error) {
	pfd := []unix.PollFd{
		{
			Fd:     int32(p.file.Fd()),
			Events: unix.POLLOUT | unix.POLLERR | unix.POLLNVAL,
		},
	}

	var n int
	var err error

	// Loop to handle EINTR (interrupted system call)
	for {
		n, err = unix.Poll(pfd, int(timeout/time.Millisecond))
		if !errors.Is(err, syscall.EINTR) {
			break
		}
	}

	if err != nil {
		return false, fmt.Errorf("poll failed: %w", err)
	}

	if n == 0 {
		return false, nil
	}

	revents := pfd[0].Revents
	if revents&unix.POLLNVAL != 0 {
		return false, fmt.Errorf("poll: invalid file descriptor: %w", syscall.EBADF)
	}

	if revents&unix.POLLERR != 0 {
		return false, fmt.Errorf("poll: stream error: %w", pcmout.ErrUnderrun)
	}

	return revents&unix.POLLOUT != 0, nil
}

// Write submits frames interleaved frames from buf.
func (p *pcm) Write(buf []byte, frames int) error {
	if frames <= 0 || len(buf) < frames*p.frameSize {
		return fmt.Errorf("invalid data for Write: %d frames in %d bytes", frames, len(buf))
	}

	defer runtime.KeepAlive(buf)

	written := 0
	for written < frames {
		xfer := sndXferi{
			Frames: sndPcmUframesT(frames - written),
			Buf:    uintptr(unsafe.Pointer(&buf[written*p.frameSize])),
		}

		err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_WRITEI_FRAMES, uintptr(unsafe.Pointer(&xfer)))

		if xfer.Result > 0 {
			written += xfer.Result
		}

		if err != nil {
			switch {
			case errors.Is(err, syscall.EINTR):
				continue
			case errors.Is(err, syscall.EPIPE), errors.Is(err, syscall.ESTRPIPE):
				return fmt.Errorf("ioctl WRITEI_FRAMES: %w: %w", pcmout.ErrUnderrun, err)
			default:
				return fmt.Errorf("ioctl WRITEI_FRAMES failed: %w", err)
			}
		}
	}

	return nil
}

// Recover re-prepares the stream after an underrun or a suspend.
func (p *pcm) Recover(err error) error {
	p.xruns++

	if errors.Is(err, syscall.ESTRPIPE) {
		p.resume()
	}

	return p.prepare()
}

// resume waits for a suspended stream to come back. Drivers without resume
// support fail immediately; the following PREPARE restarts them.
func (p *pcm) resume() {
	for i := 0; i < 100; i++ {
		err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_RESUME, 0)
		if !errors.Is(err, syscall.EAGAIN) {
			return
		}

		time.Sleep(10 * time.Millisecond)
	}
}

func (p *pcm) prepare() error {
	if err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_PREPARE, 0); err != nil {
		return fmt.Errorf("ioctl PREPARE failed: %w", err)
	}

	return nil
}

// drain blocks until all pending frames have been played.
func (p *pcm) drain() error {
	if err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_DRAIN, 0); err != nil {
		return fmt.Errorf("ioctl DRAIN failed: %w", err)
	}

	return nil
}

// drop stops the stream immediately, discarding pending frames.
func (p *pcm) drop() error {
	if err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_DROP, 0); err != nil {
		return fmt.Errorf("ioctl DROP failed: %w", err)
	}

	return nil
}

func (p *pcm) close() error {
	if p.file == nil {
		return nil
	}

	_ = ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_HW_FREE, 0)

	err := p.file.Close()
	p.file = nil

	return err
}

// cString converts a NUL-terminated byte array to a string.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}

	return string(b)
}
