package hll

import (
	"math"
)

// hllArray is the dense tier of a Sketch:  2^LgConfigK registers of Width bits
// each, bit packed into a byte slice.  The slice is either owned by the array
// or is a window into a caller owned region, which is why the registers are
// read and written in place through readBits and writeBits instead of being
// unpacked into words.
type hllArray struct {
	settings *settings
	regs     []byte

	// outOfOrder is carried over from the tier that promoted into this one.
	outOfOrder bool
}

func newHllArray(settings *settings, alloc backing, outOfOrder bool) (*hllArray, error) {
	regs, err := alloc.registers(settings, outOfOrder)
	if err != nil {
		return nil, err
	}
	return &hllArray{settings: settings, regs: regs, outOfOrder: outOfOrder}, nil
}

// promoteToDense builds the dense tier out of the coupons of a list or set.
func promoteToDense(settings *settings, alloc backing, coupons []uint32, outOfOrder bool) (*hllArray, error) {

	arr, err := newHllArray(settings, alloc, outOfOrder)
	if err != nil {
		return nil, err
	}

	for _, coupon := range coupons {
		arr.add(coupon)
	}

	return arr, nil
}

// heapifyDense copies the registers out of an image.
func heapifyDense(settings *settings, p preamble, m memory) state {
	regs := make([]byte, settings.registerBytes)
	copy(regs, m[hllByteArrStart:])
	return &hllArray{settings: settings, regs: regs, outOfOrder: p.outOfOrder}
}

func (a *hllArray) mode() Mode {
	return ModeHll
}

// update never promotes and never fails.  There is no tier past this one.
func (a *hllArray) update(coupon uint32) (state, error) {
	a.add(coupon)
	return a, nil
}

func (a *hllArray) add(coupon uint32) {

	if coupon == empty {
		return
	}

	// NOTE : the register index is the low LgConfigK bits of the 26 bit
	//        coupon address.
	regnum := int(coupon & a.settings.slotMask)

	value := couponValue(coupon)
	if value > a.settings.registerMax {
		value = a.settings.registerMax
	}

	a.setIfGreater(regnum, value)
}

// get extracts a single register value.
func (a *hllArray) get(regnum int) uint32 {
	width := int(a.settings.width)
	return uint32(readBits(a.regs, regnum*width, width))
}

// setIfGreater sets the register value of register regnum to the provided
// value if and only if it's greater than the current value.
func (a *hllArray) setIfGreater(regnum int, value uint32) {
	if value > a.get(regnum) {
		width := int(a.settings.width)
		writeBits(a.regs, regnum*width, uint64(value), width)
	}
}

// indicator computes the "indicator function" (Z in the HLL paper).  It
// additionally returns the number of registers whose value is zero (V in the
// paper).
func (a *hllArray) indicator() (float64, int) {

	numReg := 1 << uint(a.settings.lgConfigK)

	sum := float64(0)
	numberOfZeros := 0

	for i := 0; i < numReg; i++ {
		// compute the "indicator function" -- indicator(2^(-M[j])) where M[j]
		// is the 'j'th register value
		value := a.get(i)
		sum += 1.0 / float64(uint64(1)<<value)
		if value == 0 {
			numberOfZeros++
		}
	}

	return sum, numberOfZeros
}

func (a *hllArray) estimate() float64 {

	sum, numberOfZeroes /*"V" in the paper*/ := a.indicator()

	// apply the estimate and correction to the indicator function
	estimator := a.settings.alphaMSquared / sum

	if (numberOfZeroes != 0) && (estimator < a.settings.smallEstimatorCutoff) {
		// the "small range correction" formula (linear counting).  only
		// applies while some registers are still zero and the estimator is
		// below (5/2) * m.
		m := float64(int(1) << uint(a.settings.lgConfigK))
		return m * math.Log(m/float64(numberOfZeroes))
	}

	if estimator <= a.settings.largeEstimatorCutoff {
		return estimator
	}

	// the "large range correction" formula, adapted for the hash bits that a
	// register can actually observe.
	return -1 * a.settings.twoToL * math.Log(1.0-(estimator/a.settings.twoToL))
}

// couponCount returns the number of registers that have been set.
func (a *hllArray) couponCount() int {
	_, zeros := a.indicator()
	return (1 << uint(a.settings.lgConfigK)) - zeros
}

func (a *hllArray) lgArr() int {
	return 0
}

func (a *hllArray) isOutOfOrder() bool {
	return a.outOfOrder
}

// sizeInBytes is the same for both layouts.  Every register is written.
func (a *hllArray) sizeInBytes(compact bool) int {
	return a.settings.registerBytes
}

func (a *hllArray) writeBytes(bytes []byte, compact bool) {
	copy(bytes, a.regs)
}

func (a *hllArray) iterator() *PairIterator {
	return newRegisterIterator(a)
}

// copyAs copies the registers into a heap owned array.  When the width
// changes, every register is repacked and clamped to the new maximum.
func (a *hllArray) copyAs(settings *settings) state {

	o := &hllArray{
		settings:   settings,
		regs:       make([]byte, settings.registerBytes),
		outOfOrder: a.outOfOrder,
	}

	if settings.width == a.settings.width {
		copy(o.regs, a.regs)
		return o
	}

	for i := 0; i < 1<<uint(a.settings.lgConfigK); i++ {
		value := a.get(i)
		if value > settings.registerMax {
			value = settings.registerMax
		}
		o.setIfGreater(i, value)
	}

	return o
}
