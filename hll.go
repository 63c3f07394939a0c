package hll

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// Mode is the tier a Sketch is currently accumulating in.  A Sketch starts in
// ModeList and only ever moves forward:  ModeList -> ModeSet -> ModeHll, or
// ModeList -> ModeHll when LgConfigK is 7 or less.
type Mode int

const (
	// ModeList holds up to 7 coupons in insertion order.
	ModeList Mode = iota
	// ModeSet holds coupons in an open addressed hash set.
	ModeSet
	// ModeHll holds the dense register array.
	ModeHll
)

func (m Mode) String() string {
	switch m {
	case ModeList:
		return "LIST"
	case ModeSet:
		return "SET"
	case ModeHll:
		return "HLL"
	}
	return "UNKNOWN"
}

// ErrInsufficientBytes is returned by FromBytes and Wrap in cases where the
// provided byte slice is truncated.
var ErrInsufficientBytes = errors.New("insufficient bytes to deserialize Sketch")

// ErrCompactImage is returned by Wrap when the region holds a compact image,
// which can be read with FromBytes but not updated in place.
var ErrCompactImage = errors.New("cannot wrap a compact Sketch image")

// Sketch estimates the number of distinct values added to it.  Each value is
// hashed into a coupon that packs a register address and a magnitude.  Small
// sets of coupons are kept exactly in a list and then in a hash set.  Once the
// hash set is too large, the coupons are folded into a dense HyperLogLog array.
//
// The zero value is an empty Sketch, provided that Defaults has been invoked
// with default settings.  Otherwise, operations on the zero value will cause a
// panic as it would be a coding error to attempt operations without first
// configuring the library.
//
// A Sketch is meant for a single owner.  It is not safe for concurrent use.
type Sketch struct {
	settings *settings
	state    state

	// region is the caller owned memory of a direct Sketch.  It is nil when
	// the Sketch lives on the heap.
	region memory
}

// NewSketch creates a new Sketch with the provided settings.  It will return
// an error if the settings are invalid.
func NewSketch(s Settings) (Sketch, error) {

	settings, err := s.toInternal()
	if err != nil {
		return Sketch{}, err
	}

	return Sketch{settings: settings}, nil
}

// NewDirectSketch creates a new Sketch that accumulates inside region instead
// of on the heap.  The region is overwritten with an empty image and from then
// on always holds a valid updatable image that Wrap can reopen.  The caller
// keeps ownership of the region and must keep it alive and unshared for as
// long as the Sketch is used.
//
// A region of MaxUpdatableBytes never runs out of room.  With a smaller one,
// the update that needs more room fails with ErrRegionFull and leaves the
// Sketch unchanged.  Use Copy to continue on the heap.
func NewDirectSketch(s Settings, region []byte) (Sketch, error) {

	settings, err := s.toInternal()
	if err != nil {
		return Sketch{}, err
	}

	list, err := newCouponList(settings, directBacking{mem: region})
	if err != nil {
		return Sketch{}, err
	}

	return Sketch{settings: settings, state: list, region: region}, nil
}

// Wrap reopens the updatable image in region as a direct Sketch.  Like
// NewDirectSketch, the Sketch keeps working inside the region.  It returns
// ErrCompactImage for compact images.  As with FromBytes, the header of the
// image is validated but its slots are trusted.
func Wrap(region []byte) (Sketch, error) {

	m := memory(region)

	p, err := readPreamble(m)
	if err != nil {
		return Sketch{}, err
	}

	if p.compact {
		return Sketch{}, ErrCompactImage
	}

	settings, err := Settings{LgConfigK: p.lgConfigK, Width: p.width}.toInternal()
	if err != nil {
		return Sketch{}, err
	}

	alloc := directBacking{mem: m}

	var st state
	switch p.mode {
	case ModeList:
		st = &couponList{settings: settings, store: &directCoupons{mem: m, list: true}, alloc: alloc}
	case ModeSet:
		st = &couponHashSet{settings: settings, store: &directCoupons{mem: m}, alloc: alloc, outOfOrder: p.outOfOrder}
	case ModeHll:
		end := hllByteArrStart + settings.registerBytes
		st = &hllArray{settings: settings, regs: m[hllByteArrStart:end:end], outOfOrder: p.outOfOrder}
	}

	return Sketch{settings: settings, state: st, region: m}, nil
}

// FromBytes deserializes the provided byte slice into a Sketch on the heap.
// Both compact and updatable images are accepted.  It will return an error if
// the version is anything other than 1, if the leading bytes specify an
// invalid configuration, or if the byte slice is truncated.  The slice is not
// retained.
//
// The coupon count of an updatable image is trusted.  An image whose slots
// disagree with its header passes validation but may make a later Add panic
// with ErrProbeExhausted.
func FromBytes(bytes []byte) (Sketch, error) {

	m := memory(bytes)

	p, err := readPreamble(m)
	if err != nil {
		return Sketch{}, err
	}

	settings, err := Settings{LgConfigK: p.lgConfigK, Width: p.width}.toInternal()
	if err != nil {
		return Sketch{}, err
	}

	s := Sketch{settings: settings}

	switch p.mode {
	case ModeList:
		s.state = heapifyList(settings, p, m)
	case ModeSet:
		s.state = heapifySet(settings, p, m)
	case ModeHll:
		s.state = heapifyDense(settings, p, m)
	}

	return s, nil
}

// Settings returns the Settings for this Sketch.
func (s *Sketch) Settings() Settings {
	s.initOrPanic()
	return s.settings.toExternal()
}

// Mode returns the tier the Sketch is accumulating in.
func (s *Sketch) Mode() Mode {
	s.initOrPanic()
	return s.state.mode()
}

// IsEmpty reports whether nothing has been added to the Sketch.
func (s *Sketch) IsEmpty() bool {
	s.initOrPanic()
	return s.state.mode() == ModeList && s.state.couponCount() == 0
}

// IsDirect reports whether the Sketch accumulates inside a caller owned
// region.
func (s *Sketch) IsDirect() bool {
	return s.region != nil
}

// IsOutOfOrder reports whether the Sketch was rebuilt from a compact image, in
// which case its internal layout may differ from one built by adding the same
// values.  Membership and estimates are unaffected.
func (s *Sketch) IsOutOfOrder() bool {
	s.initOrPanic()
	return s.state.isOutOfOrder()
}

// CouponCount returns the number of distinct coupons in the list and set
// modes and the number of non-zero registers in ModeHll.
func (s *Sketch) CouponCount() int {
	s.initOrPanic()
	return s.state.couponCount()
}

// Iterator returns a PairIterator over the coupons or non-zero registers of the
// Sketch.
func (s *Sketch) Iterator() *PairIterator {
	s.initOrPanic()
	return s.state.iterator()
}

// AddUint64 adds the value to the Sketch.
func (s *Sketch) AddUint64(value uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	return s.AddBytes(buf[:])
}

// AddString adds the value to the Sketch.  The empty string is ignored.
func (s *Sketch) AddString(value string) error {
	if len(value) == 0 {
		return nil
	}
	return s.AddCoupon(hashCoupon(xxhash.Sum64String(value)))
}

// AddBytes adds the value to the Sketch.  An empty slice is ignored.
func (s *Sketch) AddBytes(value []byte) error {
	if len(value) == 0 {
		return nil
	}
	return s.AddCoupon(hashCoupon(xxhash.Sum64(value)))
}

// AddCoupon adds a coupon that was already built from a hash.  The empty
// coupon 0 is ignored.  The only error is ErrRegionFull from a direct Sketch,
// in which case the Sketch is left exactly as it was.
func (s *Sketch) AddCoupon(coupon uint32) error {

	s.initOrPanic()

	// by contract...ignore the empty coupon.
	if coupon == empty {
		return nil
	}

	st, err := s.state.update(coupon)
	if err != nil {
		return err
	}

	s.state = st
	return nil
}

// Estimate returns the estimated number of distinct values added to the
// Sketch.
func (s *Sketch) Estimate() float64 {
	s.initOrPanic()
	return s.state.estimate()
}

// Cardinality returns Estimate rounded to the nearest integer.
func (s *Sketch) Cardinality() uint64 {
	return uint64(math.Round(s.Estimate()))
}

// Copy returns a deep copy of the Sketch.  The copy always lives on the heap,
// even when the Sketch is direct, so it is the way to keep going after
// ErrRegionFull.
func (s *Sketch) Copy() Sketch {
	s.initOrPanic()
	return Sketch{settings: s.settings, state: s.state.copyAs(s.settings)}
}

// CopyAs returns a deep copy of the Sketch on the heap that promotes into
// registers of the provided width.  If the Sketch is already in ModeHll, the
// registers are repacked and saturate at the largest value of the new width.
func (s *Sketch) CopyAs(width Width) (Sketch, error) {

	s.initOrPanic()

	settings, err := Settings{LgConfigK: s.settings.lgConfigK, Width: width}.toInternal()
	if err != nil {
		return Sketch{}, err
	}

	return Sketch{settings: settings, state: s.state.copyAs(settings)}, nil
}

// ToCompactBytes returns the serialized Sketch without empty slots.  It is the
// smallest image, but can only be read back with FromBytes.
func (s *Sketch) ToCompactBytes() []byte {
	return s.toBytes(true)
}

// ToUpdatableBytes returns the serialized Sketch with its full coupon array.
// The image can be read back with FromBytes or updated in place with Wrap.
func (s *Sketch) ToUpdatableBytes() []byte {
	return s.toBytes(false)
}

// UpdatableBytes returns the length of ToUpdatableBytes.
func (s *Sketch) UpdatableBytes() int {
	s.initOrPanic()
	return dataStart(s.state.mode()) + s.state.sizeInBytes(false)
}

func (s *Sketch) toBytes(compact bool) []byte {

	s.initOrPanic()

	start := dataStart(s.state.mode())
	bytes := make([]byte, start+s.state.sizeInBytes(compact))

	writePreamble(bytes, preamble{
		lgConfigK:  s.settings.lgConfigK,
		width:      s.settings.width,
		mode:       s.state.mode(),
		lgArr:      s.state.lgArr(),
		compact:    compact,
		outOfOrder: s.state.isOutOfOrder(),
		count:      s.state.couponCount(),
	})

	s.state.writeBytes(bytes[start:], compact)

	return bytes
}

// Clear resets this Sketch to empty.  A direct Sketch rewrites its region as an
// empty image, which fails with ErrRegionFull if the region is too small to
// hold one.
func (s *Sketch) Clear() error {

	s.initOrPanic()

	var alloc backing = heapBacking{}
	if s.region != nil {
		alloc = directBacking{mem: s.region}
	}

	list, err := newCouponList(s.settings, alloc)
	if err != nil {
		return err
	}

	s.state = list
	return nil
}

// initOrPanic is used to lazily initialize a zero value to an empty Sketch (in
// the presence of default settings) or to panic if the operation is being
// evaluated against an undefined Sketch.
func (s *Sketch) initOrPanic() {

	if s.settings == nil {
		defaults := getDefaults()
		if defaults == nil {
			panic("attempted operation on empty Sketch without default settings")
		}
		s.settings = defaults
	}

	// NOTE : a heap list can't fail to allocate.
	if s.state == nil {
		s.state, _ = newCouponList(s.settings, heapBacking{})
	}
}
