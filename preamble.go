package hll

import (
	"fmt"

	"github.com/pkg/errors"
)

// byte offsets of the preamble fields.  All multi byte fields are little
// endian.
//
//	+--------+---------+--------+-----+-------+-------+-----------+-----------+
//	| 0      | 1       | 2      | 3   | 4     | 5     | 6         | 7         |
//	+--------+---------+--------+-----+-------+-------+-----------+-----------+
//	| preInt | version | family | lgK | lgArr | flags | listCount | mode/tag  |
//	+--------+---------+--------+-----+-------+-------+-----------+-----------+
//	| 8..11: hash set count (SET only)                                        |
//	+-------------------------------------------------------------------------+
//
// The list coupons start at byte 8, the hash set coupons at byte 12 and the
// dense registers at byte 8.
const (
	preIntsByte     = 0
	serVerByte      = 1
	familyByte      = 2
	lgKByte         = 3
	lgArrByte       = 4
	flagsByte       = 5
	listCountByte   = 6
	modeByte        = 7
	hashSetCountInt = 8

	listIntArrStart    = 8
	hashSetIntArrStart = 12
	hllByteArrStart    = 8

	listPreInts    = 2
	hashSetPreInts = 3
	hllPreInts     = 2

	serVer   = 1
	familyID = 7

	compactFlagMask    = 1 << 3
	outOfOrderFlagMask = 1 << 4
)

// preamble holds the fields read from or written to the head of an image.
type preamble struct {
	lgConfigK  int
	width      Width
	mode       Mode
	lgArr      int
	compact    bool
	outOfOrder bool
	count      int
}

// dataStart returns the offset of the payload for the mode.
func dataStart(m Mode) int {
	switch m {
	case ModeList:
		return listIntArrStart
	case ModeSet:
		return hashSetIntArrStart
	default:
		return hllByteArrStart
	}
}

func preInts(m Mode) int {
	switch m {
	case ModeList:
		return listPreInts
	case ModeSet:
		return hashSetPreInts
	default:
		return hllPreInts
	}
}

// writePreamble writes every preamble field of the mode.  The list count and
// the hash set count share no bytes with the other mode's payload, so only the
// count of p.mode is written.
func writePreamble(m memory, p preamble) {
	m[preIntsByte] = byte(preInts(p.mode))
	m[serVerByte] = serVer
	m[familyByte] = familyID
	m[lgKByte] = byte(p.lgConfigK)
	m[lgArrByte] = byte(p.lgArr)

	var flags byte
	if p.compact {
		flags |= compactFlagMask
	}
	if p.outOfOrder {
		flags |= outOfOrderFlagMask
	}
	m[flagsByte] = flags

	m[listCountByte] = 0
	m[modeByte] = byte(p.mode) | byte(p.width.tag()<<2)

	switch p.mode {
	case ModeList:
		m[listCountByte] = byte(p.count)
	case ModeSet:
		m.putUint32(hashSetCountInt, uint32(p.count))
	}
}

// readPreamble parses and validates the preamble at the head of m.  It checks
// that m is long enough to hold the payload that the preamble describes.
func readPreamble(m memory) (preamble, error) {

	if len(m) < listIntArrStart {
		return preamble{}, ErrInsufficientBytes
	}

	if v := int(m[serVerByte]); v != serVer {
		return preamble{}, fmt.Errorf("unsupported Sketch version: %d", v)
	}
	if f := int(m[familyByte]); f != familyID {
		return preamble{}, fmt.Errorf("invalid Sketch family: %d", f)
	}

	p := preamble{
		lgConfigK:  int(m[lgKByte]),
		lgArr:      int(m[lgArrByte]),
		compact:    m[flagsByte]&compactFlagMask != 0,
		outOfOrder: m[flagsByte]&outOfOrderFlagMask != 0,
		mode:       Mode(m[modeByte] & 0x3),
	}

	if p.mode > ModeHll {
		return preamble{}, fmt.Errorf("invalid Sketch mode: %d", p.mode)
	}
	if pi := int(m[preIntsByte]); pi != preInts(p.mode) {
		return preamble{}, fmt.Errorf("invalid preamble ints for %s mode: %d", p.mode, pi)
	}

	width, ok := widthFromTag(int(m[modeByte]>>2) & 0x3)
	if !ok {
		return preamble{}, fmt.Errorf("invalid Sketch width tag: %d", m[modeByte]>>2)
	}
	p.width = width

	if p.lgConfigK < minimumLgConfigK || p.lgConfigK > maximumLgConfigK {
		return preamble{}, fmt.Errorf("invalid Sketch LgConfigK: %d", p.lgConfigK)
	}

	switch p.mode {
	case ModeList:
		p.count = int(m[listCountByte])
		if p.lgArr != lgInitListSize {
			return preamble{}, fmt.Errorf("invalid list size exponent: %d", p.lgArr)
		}
		if p.count >= 1<<lgInitListSize {
			return preamble{}, fmt.Errorf("invalid list count: %d", p.count)
		}
	case ModeSet:
		if len(m) < hashSetIntArrStart {
			return preamble{}, ErrInsufficientBytes
		}
		p.count = int(m.uint32At(hashSetCountInt))
		if p.lgConfigK <= minimumSetLgConfigK {
			return preamble{}, fmt.Errorf("SET mode requires LgConfigK above %d but got %d", minimumSetLgConfigK, p.lgConfigK)
		}
		if p.lgArr < lgInitSetSize || p.lgArr > p.lgConfigK-3 {
			return preamble{}, fmt.Errorf("invalid hash set size exponent: %d", p.lgArr)
		}
		// a set that crossed the load factor at its largest size would have
		// been promoted.
		if resizeDenom*p.count > resizeNumer*(1<<uint(p.lgConfigK-3)) {
			return preamble{}, fmt.Errorf("invalid hash set count: %d", p.count)
		}
		// a live table never stays past the load factor, so an updatable
		// image always has room for the next insert.
		if !p.compact && resizeDenom*p.count > resizeNumer*(1<<uint(p.lgArr)) {
			return preamble{}, fmt.Errorf("invalid hash set count: %d", p.count)
		}
	case ModeHll:
		p.lgArr = 0
	}

	if need := imageSize(p); len(m) < need {
		return preamble{}, errors.Wrapf(ErrInsufficientBytes, "%s image needs %d bytes but got %d", p.mode, need, len(m))
	}

	return p, nil
}

// imageSize returns the length of the image that the preamble describes.
func imageSize(p preamble) int {
	switch p.mode {
	case ModeList, ModeSet:
		if p.compact {
			return dataStart(p.mode) + (p.count << 2)
		}
		return dataStart(p.mode) + (4 << uint(p.lgArr))
	default:
		return hllByteArrStart + registerBytes(p.lgConfigK, p.width)
	}
}
