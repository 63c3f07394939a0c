package hll

import "github.com/pkg/errors"

// ErrProbeExhausted is the panic value raised when a coupon table has neither
// the coupon nor an empty slot.  The grow policy keeps the load factor below
// 3/4 so this only happens if the table was already corrupt.
var ErrProbeExhausted = errors.New("coupon not found and no empty slots")

// probeResult is the outcome of find.  When found is true, index holds the slot
// of the matching coupon.  Otherwise index is the empty slot where the coupon
// belongs.
type probeResult struct {
	index int
	found bool
}

// find searches the open addressed coupon table for the coupon.  The home slot
// is the low bits of the coupon, which are already well mixed because they
// come from a hash.  Collisions are resolved by double hashing with an odd
// stride taken from the address bits above the table size, so the probe visits
// every slot of the power of two table before coming back to the start.
func find(store couponStore, coupon uint32) probeResult {
	lgArr := store.lgArr()
	arrMask := (1 << uint(lgArr)) - 1
	probe := int(coupon) & arrMask
	loopIndex := probe

	for {
		fetched := store.get(probe)
		if fetched == empty {
			return probeResult{index: probe}
		} else if fetched == coupon {
			return probeResult{index: probe, found: true}
		}

		stride := int((coupon&keyMask26)>>uint(lgArr)) | 1
		probe = (probe + stride) & arrMask

		if probe == loopIndex {
			panic(ErrProbeExhausted)
		}
	}
}
