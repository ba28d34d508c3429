package main

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"avionics/dump"
	"avionics/flash"
)

// fakePort replays a canned stream and records what the tool sends.
type fakePort struct {
	in   *bytes.Reader
	sent bytes.Buffer
}

func (p *fakePort) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *fakePort) Write(b []byte) (int, error) { return p.sent.Write(b) }

func TestCapture(t *testing.T) {
	var stream []byte
	stream = append(stream, 0x00, 0x11)
	stream = dump.AppendFrame(stream, 0x0000, []byte{0x5A, 0x01})
	bad := dump.AppendFrame(nil, 0x0100, []byte{0x77})
	bad[len(bad)-1] ^= 0xFF
	stream = append(stream, bad...)
	stream = dump.AppendFrame(stream, 0x1000, []byte("log"))
	stream = dump.AppendFrame(stream, 0x2000, nil)

	port := &fakePort{in: bytes.NewReader(stream)}
	img, stats, err := capture(port, 0x2000, time.Second)
	require.NoError(t, err)
	require.Equal(t, []byte{'D'}, port.sent.Bytes())

	require.Equal(t, 2, stats.frames)
	require.Equal(t, 1, stats.bad)
	require.Equal(t, 2, stats.skipped)

	require.Len(t, img, 0x2000)
	require.Equal(t, []byte{0x5A, 0x01}, img[:2])
	require.Equal(t, byte(flash.ErasedByte), img[0x100])
	require.Equal(t, []byte("log"), img[0x1000:0x1003])
}

func TestCaptureOutOfImage(t *testing.T) {
	stream := dump.AppendFrame(nil, 0x3000, []byte{1})
	port := &fakePort{in: bytes.NewReader(stream)}
	_, _, err := capture(port, 0x2000, time.Second)
	require.ErrorIs(t, err, dump.ErrOutOfImage)
}

func TestIdleReaderGivesUp(t *testing.T) {
	now := time.Unix(0, 0)
	ir := &idleReader{
		r:    bytes.NewReader(nil),
		idle: time.Second,
		now: func() time.Time {
			now = now.Add(300 * time.Millisecond)
			return now
		},
	}
	_, err := ir.Read(make([]byte, 4))
	require.ErrorIs(t, err, errIdle)
}

func TestIdleReaderPassesData(t *testing.T) {
	ir := &idleReader{r: bytes.NewReader([]byte("ab")), idle: time.Second, now: time.Now}
	buf := make([]byte, 4)
	n, err := ir.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ab", string(buf[:n]))
}

func TestIdleReaderPassesErrors(t *testing.T) {
	ir := &idleReader{r: errReader{}, idle: time.Second, now: time.Now}
	_, err := ir.Read(make([]byte, 1))
	require.ErrorIs(t, err, io.ErrClosedPipe)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }
