package hll

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrRegionFull is returned when a sketch that accumulates inside a caller
// owned region needs more bytes than the region has.  The update that hit the
// ceiling is rolled back.  Copy the sketch onto the heap to keep going.
var ErrRegionFull = errors.New("region too small for the next sketch layout")

// memory is a view over a caller owned byte region.  Every multi byte value is
// little endian.  The view never allocates or resizes the region.
type memory []byte

func (m memory) uint32At(offset int) uint32 {
	return binary.LittleEndian.Uint32(m[offset : offset+4])
}

func (m memory) putUint32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(m[offset:offset+4], v)
}

// getUint32s fills dst with consecutive values starting at offset.
func (m memory) getUint32s(offset int, dst []uint32) {
	for i := range dst {
		dst[i] = m.uint32At(offset + (i << 2))
	}
}

// putUint32s writes src as consecutive values starting at offset.
func (m memory) putUint32s(offset int, src []uint32) {
	for i, v := range src {
		m.putUint32(offset+(i<<2), v)
	}
}

func (m memory) clear(offset, n int) {
	b := m[offset : offset+n]
	for i := range b {
		b[i] = 0
	}
}

// ensure checks that the region holds at least n bytes.
func (m memory) ensure(n int) error {
	if len(m) < n {
		return errors.Wrapf(ErrRegionFull, "need %d bytes but the region has %d", n, len(m))
	}
	return nil
}

// directCoupons is a couponStore whose slots, size exponent and count all live
// in a caller owned region, so that the region is always a valid updatable
// image.
type directCoupons struct {
	mem  memory
	list bool
}

func (d *directCoupons) start() int {
	if d.list {
		return listIntArrStart
	}
	return hashSetIntArrStart
}

func (d *directCoupons) lgArr() int {
	return int(d.mem[lgArrByte])
}

func (d *directCoupons) count() int {
	if d.list {
		return int(d.mem[listCountByte])
	}
	return int(d.mem.uint32At(hashSetCountInt))
}

func (d *directCoupons) setCount(n int) {
	if d.list {
		d.mem[listCountByte] = byte(n)
		return
	}
	d.mem.putUint32(hashSetCountInt, uint32(n))
}

func (d *directCoupons) get(i int) uint32 {
	return d.mem.uint32At(d.start() + (i << 2))
}

func (d *directCoupons) set(i int, coupon uint32) {
	d.mem.putUint32(d.start()+(i<<2), coupon)
}

func (d *directCoupons) resize(lgArr int) error {
	n := 4 << uint(lgArr)
	if err := d.mem.ensure(d.start() + n); err != nil {
		return err
	}
	d.mem[lgArrByte] = byte(lgArr)
	d.mem.clear(d.start(), n)
	return nil
}

func (d *directCoupons) coupons() []uint32 {
	o := make([]uint32, 1<<uint(d.lgArr()))
	d.mem.getUint32s(d.start(), o)
	return o
}

// directBacking lays every tier out inside the caller's region.  Switching
// tiers rewrites the preamble for the new tier and clears its data area.
type directBacking struct {
	mem memory
}

func (b directBacking) coupons(settings *settings, m Mode, lgArr int, outOfOrder bool) (couponStore, error) {
	list := m == ModeList
	start := hashSetIntArrStart
	if list {
		start = listIntArrStart
	}

	if err := b.mem.ensure(start + (4 << uint(lgArr))); err != nil {
		return nil, err
	}

	writePreamble(b.mem, preamble{
		lgConfigK:  settings.lgConfigK,
		width:      settings.width,
		mode:       m,
		lgArr:      lgArr,
		outOfOrder: outOfOrder,
	})
	b.mem.clear(start, 4<<uint(lgArr))

	return &directCoupons{mem: b.mem, list: list}, nil
}

func (b directBacking) registers(settings *settings, outOfOrder bool) ([]byte, error) {
	end := hllByteArrStart + settings.registerBytes
	if err := b.mem.ensure(end); err != nil {
		return nil, err
	}

	writePreamble(b.mem, preamble{
		lgConfigK:  settings.lgConfigK,
		width:      settings.width,
		mode:       ModeHll,
		outOfOrder: outOfOrder,
	})
	b.mem.clear(hllByteArrStart, settings.registerBytes)

	// NOTE : the full slice expression keeps appends from spilling into the
	//        rest of the region.
	return b.mem[hllByteArrStart:end:end], nil
}
