// Package logscan finds where the append-only data log ends.
//
// The data region is written strictly in increasing page order with no
// holes, so every page before the resume point has been programmed and
// every page from it onwards still reads as erased. Both strategies rely on
// that boundary.
package logscan

import (
	"errors"

	"avionics/flash"
)

var (
	// ErrFull means no erased page is left in the region. The returned
	// address is the region end.
	ErrFull = errors.New("logscan: data region full")

	ErrBadRegion = errors.New("logscan: region not page aligned or empty")
)

// PageReader reads flash contents. *flash.Device satisfies it.
type PageReader interface {
	ReadPage(addr uint32, buf []byte) error
}

// Region is a half-open address range [Start, End) of whole pages.
type Region struct {
	Start uint32
	End   uint32
}

// DataRegion returns the log region of a chip of the given capacity.
func DataRegion(capacity uint32) Region {
	return Region{Start: flash.DataRegionStart, End: capacity}
}

// Pages returns the number of pages in the region.
func (r Region) Pages() uint32 {
	if r.End <= r.Start {
		return 0
	}
	return (r.End - r.Start) / flash.PageSize
}

func (r Region) valid() bool {
	return r.End > r.Start &&
		r.Start%flash.PageSize == 0 &&
		r.End%flash.PageSize == 0
}

func (r Region) page(i uint32) uint32 {
	return r.Start + i*flash.PageSize
}

// Strategy selects how the boundary is searched.
type Strategy uint8

const (
	// Linear reads every page from the start until an erased one.
	Linear Strategy = iota
	// Binary bisects on the written/erased boundary, O(log pages) reads.
	Binary
)

func (s Strategy) String() string {
	switch s {
	case Linear:
		return "linear"
	case Binary:
		return "binary"
	}
	return "unknown"
}

// Erased reports whether every byte of buf is in the erased state.
func Erased(buf []byte) bool {
	for _, b := range buf {
		if b != flash.ErasedByte {
			return false
		}
	}
	return true
}

// Scan returns the address of the first erased page in region. A fully
// erased region yields region.Start; a fully written one yields region.End
// and ErrFull. Read errors, including flash.ErrBusy, are returned as-is.
func Scan(dev PageReader, region Region, strategy Strategy) (uint32, error) {
	if !region.valid() {
		return 0, ErrBadRegion
	}

	buf := make([]byte, flash.PageSize)
	erased := func(i uint32) (bool, error) {
		if err := dev.ReadPage(region.page(i), buf); err != nil {
			return false, err
		}
		return Erased(buf), nil
	}

	var (
		idx uint32
		err error
	)
	switch strategy {
	case Binary:
		idx, err = bisect(region.Pages(), erased)
	default:
		idx, err = walk(region.Pages(), erased)
	}
	if err != nil {
		return 0, err
	}
	if idx == region.Pages() {
		return region.End, ErrFull
	}
	return region.page(idx), nil
}

func walk(pages uint32, erased func(uint32) (bool, error)) (uint32, error) {
	for i := uint32(0); i < pages; i++ {
		ok, err := erased(i)
		if err != nil {
			return 0, err
		}
		if ok {
			return i, nil
		}
	}
	return pages, nil
}

// bisect finds the smallest index whose page is erased, or pages if none is
func bisect(pages uint32, erased func(uint32) (bool, error)) (uint32, error) {
	lo, hi := uint32(0), pages
	for lo < hi {
		mid := lo + (hi-lo)/2
		ok, err := erased(mid)
		if err != nil {
			return 0, err
		}
		if ok {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo, nil
}
