package hll

import (
	"math"
	"math/bits"
)

const (
	// empty is the reserved coupon value of an unoccupied slot.  A real update
	// never produces it because every coupon value is at least 1.
	empty uint32 = 0

	keyBits26 = 26
	keyMask26 = (1 << keyBits26) - 1

	// maxCouponValue is the largest value hashCoupon can produce:  the 38
	// bits above the address plus one.
	maxCouponValue = 64 - keyBits26

	// couponAddresses is the size of the address space that coupons are drawn
	// from.  the coupon estimators invert the collision rate in this space.
	couponAddresses = 1 << keyBits26
)

// pack builds a coupon from a slot address and a value.  The address is
// truncated to 26 bits.
func pack(slot uint32, value uint32) uint32 {
	return (value << keyBits26) | (slot & keyMask26)
}

// couponSlot returns the 26 bit address of the coupon.
func couponSlot(coupon uint32) uint32 {
	return coupon & keyMask26
}

// couponValue returns the magnitude stored above the address.
func couponValue(coupon uint32) uint32 {
	return coupon >> keyBits26
}

// hashCoupon turns a 64 bit hash into a coupon.  The low bits become the
// address and the value is one more than the number of trailing zeros in the
// remaining bits, capped so that it always fits.
func hashCoupon(hash uint64) uint32 {
	addr := uint32(hash & keyMask26)
	// NOTE : the sentinel bit caps the trailing zeros at 37 when the upper bits
	//        are all zero.
	w := (hash >> keyBits26) | (1 << (maxCouponValue - 1))
	value := uint32(1 + bits.TrailingZeros64(w))
	return pack(addr, value)
}

// couponEstimate is the coupon collector estimate for n distinct coupons
// drawn from the 2^26 address space.  For the small counts held by the list
// and the hash set it is within a fraction of a coupon of n.
func couponEstimate(n int) float64 {
	if n == 0 {
		return 0
	}
	k := float64(couponAddresses)
	return -k * math.Log1p(-float64(n)/k)
}
