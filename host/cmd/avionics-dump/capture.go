package main

import (
	"errors"
	"io"
	"time"

	"avionics/dump"
	"avionics/flash"
)

var errIdle = errors.New("no data from flight computer")

// idleReader turns timed-out empty reads into data waits, failing once
// nothing has arrived for the idle period.
type idleReader struct {
	r    io.Reader
	idle time.Duration
	now  func() time.Time
}

func (ir *idleReader) Read(p []byte) (int, error) {
	start := ir.now()
	for {
		n, err := ir.r.Read(p)
		if n > 0 {
			return n, nil
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
		if ir.now().Sub(start) >= ir.idle {
			return 0, errIdle
		}
	}
}

type captureStats struct {
	frames  int
	bad     int // frames dropped on checksum
	skipped int // noise bytes between frames
}

// capture sends the start byte the board waits for and collects the dump
// stream into an image. Frames that fail their checksum are dropped and
// the capture continues.
func capture(port io.ReadWriter, capacity uint32, idle time.Duration) ([]byte, captureStats, error) {
	var stats captureStats
	if _, err := port.Write([]byte{'D'}); err != nil {
		return nil, stats, err
	}

	rd := dump.NewReader(&idleReader{r: port, idle: idle, now: time.Now})
	img := make([]byte, capacity)
	for i := range img {
		img[i] = flash.ErasedByte
	}
	for {
		f, err := rd.Next()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			stats.skipped = rd.Skipped
			return img, stats, nil
		case errors.Is(err, dump.ErrChecksum):
			stats.bad++
			continue
		default:
			stats.skipped = rd.Skipped
			return nil, stats, err
		}
		if uint64(f.Addr)+uint64(len(f.Data)) > uint64(capacity) {
			return nil, stats, dump.ErrOutOfImage
		}
		copy(img[f.Addr:], f.Data)
		stats.frames++
	}
}
