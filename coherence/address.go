package coherence

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrInvalidAddressWidth is returned when an address does not fit the
// configured address width.
var ErrInvalidAddressWidth = errors.New("invalid address width")

// Geometry describes how an address is split into offset, index and tag.
type Geometry struct {
	// AddressWidth is the total number of address bits.
	AddressWidth int
	// OffsetBits selects the byte within a cache line.
	OffsetBits int
	// IndexBits selects the line slot within a cache.
	IndexBits int
}

// DefaultGeometry returns 32-bit addresses, 32B lines and 16KB caches.
func DefaultGeometry() Geometry {
	return Geometry{
		AddressWidth: 32,
		OffsetBits:   5, // 32B line
		IndexBits:    9, // 16KB / 32B = 512 lines
	}
}

// NewGeometry derives a geometry from byte sizes. Both sizes must be powers
// of two and the cache must hold at least one line.
func NewGeometry(addressWidth, lineSize, cacheSize int) (Geometry, error) {
	if !isPowerOfTwo(lineSize) {
		return Geometry{}, fmt.Errorf("line size %d is not a power of two", lineSize)
	}
	if !isPowerOfTwo(cacheSize) {
		return Geometry{}, fmt.Errorf("cache size %d is not a power of two", cacheSize)
	}
	if cacheSize < lineSize {
		return Geometry{}, fmt.Errorf("cache size %d is smaller than line size %d", cacheSize, lineSize)
	}

	g := Geometry{
		AddressWidth: addressWidth,
		OffsetBits:   bits.TrailingZeros(uint(lineSize)),
		IndexBits:    bits.TrailingZeros(uint(cacheSize / lineSize)),
	}
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}

	return g, nil
}

// Validate checks that the three fields fit in the address.
func (g Geometry) Validate() error {
	if g.AddressWidth < 1 || g.AddressWidth > 64 {
		return fmt.Errorf("address width %d out of range 1..64", g.AddressWidth)
	}
	if g.OffsetBits < 0 || g.IndexBits < 0 {
		return fmt.Errorf("negative field width (offset %d, index %d)", g.OffsetBits, g.IndexBits)
	}
	if g.OffsetBits+g.IndexBits >= g.AddressWidth {
		return fmt.Errorf("offset %d + index %d bits leave no tag in a %d-bit address",
			g.OffsetBits, g.IndexBits, g.AddressWidth)
	}
	return nil
}

// TagBits returns the number of high address bits that form the tag.
func (g Geometry) TagBits() int {
	return g.AddressWidth - g.OffsetBits - g.IndexBits
}

// NumIndices returns the number of line slots per cache.
func (g Geometry) NumIndices() int {
	return 1 << g.IndexBits
}

// LineSize returns the cache line size in bytes.
func (g Geometry) LineSize() int {
	return 1 << g.OffsetBits
}

// Address is an address split into its three fields.
type Address struct {
	Offset uint64
	Index  uint64
	Tag    uint64
}

// Decode splits address into offset, index and tag.
func (g Geometry) Decode(address uint64) (Address, error) {
	if g.AddressWidth < 64 && address>>g.AddressWidth != 0 {
		return Address{}, fmt.Errorf("%w: 0x%x exceeds %d bits",
			ErrInvalidAddressWidth, address, g.AddressWidth)
	}

	return Address{
		Offset: address & mask(g.OffsetBits),
		Index:  (address >> g.OffsetBits) & mask(g.IndexBits),
		Tag:    address >> (g.OffsetBits + g.IndexBits),
	}, nil
}

// Compose concatenates the fields back into an address.
func (g Geometry) Compose(a Address) uint64 {
	return a.Tag<<(g.OffsetBits+g.IndexBits) | a.Index<<g.OffsetBits | a.Offset
}

// LineAddress returns the line-aligned address of (index, tag).
func (g Geometry) LineAddress(index, tag uint64) uint64 {
	return g.Compose(Address{Index: index, Tag: tag})
}

func mask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<width - 1
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
