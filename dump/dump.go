// Package dump streams flash contents off the unit after a flight.
//
// The stream is a sequence of frames:
//
//	0xA5 | addr u32 LE | len u16 LE | data[len] | crc16 LE
//
// The checksum covers everything from the sync byte through the data. A
// frame with len 0 ends the stream; its address is the end of the region.
package dump

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"avionics/flash"
)

const (
	Sync       = 0xA5
	headerSize = 7
	crcSize    = 2

	// MaxData is the largest payload the writer emits
	MaxData = flash.PageSize
)

var (
	ErrChecksum   = errors.New("dump: frame checksum mismatch")
	ErrTooLarge   = errors.New("dump: frame payload too large")
	ErrOutOfImage = errors.New("dump: frame outside image")
)

// PageReader reads flash contents. *flash.Device satisfies it.
type PageReader interface {
	ReadPage(addr uint32, buf []byte) error
}

// Frame is one decoded chunk of flash
type Frame struct {
	Addr uint32
	Data []byte
}

// AppendFrame encodes a frame onto dst.
func AppendFrame(dst []byte, addr uint32, data []byte) []byte {
	start := len(dst)
	dst = append(dst, Sync)
	dst = binary.LittleEndian.AppendUint32(dst, addr)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(data)))
	dst = append(dst, data...)
	return binary.LittleEndian.AppendUint16(dst, CRC16(dst[start:]))
}

// Writer emits frames to an output stream such as the USB serial port.
type Writer struct {
	w   io.Writer
	buf []byte

	// SkipErased leaves fully erased pages out of the stream
	SkipErased bool
}

// NewWriter creates a Writer on w
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, buf: make([]byte, 0, headerSize+MaxData+crcSize)}
}

// WriteFrame emits a single frame
func (wr *Writer) WriteFrame(addr uint32, data []byte) error {
	if len(data) > MaxData {
		return ErrTooLarge
	}
	wr.buf = AppendFrame(wr.buf[:0], addr, data)
	_, err := wr.w.Write(wr.buf)
	return err
}

// WriteRegion streams [start, end) in page-sized reads followed by the end
// frame. Flash errors, including busy, abort the stream.
func (wr *Writer) WriteRegion(dev PageReader, start, end uint32) error {
	page := make([]byte, MaxData)
	for addr := start; addr < end; {
		n := flash.PageBase(addr) + flash.PageSize - addr
		if n > end-addr {
			n = end - addr
		}
		chunk := page[:n]
		if err := dev.ReadPage(addr, chunk); err != nil {
			return err
		}
		if !(wr.SkipErased && erased(chunk)) {
			if err := wr.WriteFrame(addr, chunk); err != nil {
				return err
			}
		}
		addr += n
	}
	return wr.WriteFrame(end, nil)
}

func erased(b []byte) bool {
	for _, v := range b {
		if v != flash.ErasedByte {
			return false
		}
	}
	return true
}

// Reader decodes frames, resynchronizing on the sync byte after noise.
type Reader struct {
	r   *bufio.Reader
	buf []byte

	// Skipped counts bytes discarded while hunting for a frame
	Skipped int
}

// NewReader creates a Reader on r
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r), buf: make([]byte, headerSize+MaxData+crcSize)}
}

// Next returns the next data frame, or io.EOF after the end frame. A frame
// that fails its checksum returns ErrChecksum; calling Next again resumes
// at the following sync byte. Frame data is only valid until the next call.
func (rd *Reader) Next() (Frame, error) {
	for {
		b, err := rd.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return Frame{}, io.ErrUnexpectedEOF
			}
			return Frame{}, err
		}
		if b == Sync {
			break
		}
		rd.Skipped++
	}

	hdr := rd.buf[:headerSize]
	hdr[0] = Sync
	if _, err := io.ReadFull(rd.r, hdr[1:]); err != nil {
		return Frame{}, eof(err)
	}
	addr := binary.LittleEndian.Uint32(hdr[1:])
	n := int(binary.LittleEndian.Uint16(hdr[5:]))
	if n > MaxData {
		return Frame{}, ErrTooLarge
	}

	body := rd.buf[headerSize : headerSize+n+crcSize]
	if _, err := io.ReadFull(rd.r, body); err != nil {
		return Frame{}, eof(err)
	}
	want := binary.LittleEndian.Uint16(body[n:])
	if CRC16(rd.buf[:headerSize+n]) != want {
		return Frame{}, ErrChecksum
	}

	if n == 0 {
		return Frame{Addr: addr}, io.EOF
	}
	return Frame{Addr: addr, Data: body[:n]}, nil
}

func eof(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Collect reads frames until the end frame and returns an image of the
// given capacity. Bytes not present in the stream read as erased.
func Collect(rd *Reader, capacity uint32) ([]byte, error) {
	img := make([]byte, capacity)
	for i := range img {
		img[i] = flash.ErasedByte
	}
	for {
		f, err := rd.Next()
		if err == io.EOF {
			return img, nil
		}
		if err != nil {
			return img, err
		}
		if uint64(f.Addr)+uint64(len(f.Data)) > uint64(capacity) {
			return img, ErrOutOfImage
		}
		copy(img[f.Addr:], f.Data)
	}
}
