package hll

// PairIterator walks the non-empty entries of a Sketch.  In the list and set
// modes every entry is a coupon; in ModeHll every entry is a non-zero
// register.  It reads the live storage, so the Sketch must not be updated
// while iterating.
//
//	it := sketch.Iterator()
//	for it.Next() {
//		fmt.Println(it.Index(), it.Key(), it.Value())
//	}
type PairIterator struct {
	slotMask uint32
	size     int
	get      func(i int) uint32

	index int
	pair  uint32
}

func newCouponIterator(settings *settings, store couponStore) *PairIterator {
	return &PairIterator{
		slotMask: settings.slotMask,
		size:     1 << uint(store.lgArr()),
		get:      store.get,
		index:    -1,
	}
}

func newRegisterIterator(a *hllArray) *PairIterator {
	// NOTE : registers are handed out as coupons so that Key, Slot and Value
	//        mean the same thing in every mode.
	get := func(i int) uint32 {
		return pack(uint32(i), a.get(i))
	}

	return &PairIterator{
		slotMask: a.settings.slotMask,
		size:     1 << uint(a.settings.lgConfigK),
		get:      get,
		index:    -1,
	}
}

// Next advances to the next non-empty entry.  It returns false once there are
// none left.
func (it *PairIterator) Next() bool {
	for it.index+1 < it.size {
		it.index++
		if pair := it.get(it.index); couponValue(pair) != 0 {
			it.pair = pair
			return true
		}
	}
	return false
}

// Index returns the position of the entry in the coupon array or the register
// number in ModeHll.
func (it *PairIterator) Index() int {
	return it.index
}

// Pair returns the entry as a coupon.
func (it *PairIterator) Pair() uint32 {
	return it.pair
}

// Key returns the 26 bit address of the coupon.  In ModeHll it is the register
// number.
func (it *PairIterator) Key() uint32 {
	return couponSlot(it.pair)
}

// Slot returns the register that the entry maps to.
func (it *PairIterator) Slot() uint32 {
	return it.pair & it.slotMask
}

// Value returns the magnitude of the coupon or the register value.
func (it *PairIterator) Value() uint32 {
	return couponValue(it.pair)
}
