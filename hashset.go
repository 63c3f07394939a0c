package hll

import "github.com/pkg/errors"

const (
	// lgInitSetSize is log2 of the number of slots in a new hash set.
	lgInitSetSize = 5

	// the hash set grows once more than resizeNumer/resizeDenom of its slots
	// are taken.
	resizeNumer = 3
	resizeDenom = 4
)

// ErrRehashDuplicate is the panic value raised when growing a hash set finds
// the same coupon twice.  Coupons are deduplicated on the way in, so the table
// was corrupt.
var ErrRehashDuplicate = errors.New("found duplicate coupon while growing the hash set")

// couponHashSet is the second tier of a Sketch:  an open addressed set of
// coupons.  It doubles when its load factor passes 3/4 and promotes to the
// dense array instead once it is 2^(LgConfigK-3) slots long.
type couponHashSet struct {
	settings *settings
	store    couponStore
	alloc    backing

	// outOfOrder is set when the set was rebuilt from a compact image, which
	// keeps the membership but not the slot layout.
	outOfOrder bool
}

// newCouponHashSet creates an empty hash set in storage from alloc.  The hash
// set is only meant for LgConfigK above 7 and it panics otherwise.
func newCouponHashSet(settings *settings, alloc backing) (*couponHashSet, error) {

	if settings.lgConfigK <= minimumSetLgConfigK {
		panic(errors.Errorf("hash set requires LgConfigK above %d but got %d", minimumSetLgConfigK, settings.lgConfigK))
	}

	store, err := alloc.coupons(settings, ModeSet, lgInitSetSize, false)
	if err != nil {
		return nil, err
	}

	return &couponHashSet{settings: settings, store: store, alloc: alloc}, nil
}

// heapifySet rebuilds a hash set from an image.  A compact image only holds
// the live coupons, so they are replayed through update.  That yields the same
// membership, but maybe not the same slots, so the result is flagged out of
// order.  An updatable image is copied slot for slot and its count is trusted.
func heapifySet(settings *settings, p preamble, m memory) state {

	set, _ := newCouponHashSet(settings, heapBacking{})

	if p.compact {
		set.outOfOrder = true

		var st state = set
		for i := 0; i < p.count; i++ {
			coupon := m.uint32At(hashSetIntArrStart + (i << 2))
			if coupon == empty {
				continue
			}
			// NOTE : heap states can't fail and the validated count is at or
			//        below the promotion point.
			st, _ = st.update(coupon)
		}
		return st
	}

	store := newHeapCoupons(p.lgArr)
	m.getUint32s(hashSetIntArrStart, store.arr)
	store.n = p.count

	set.store = store
	set.outOfOrder = p.outOfOrder

	return set
}

func (h *couponHashSet) mode() Mode {
	return ModeSet
}

func (h *couponHashSet) update(coupon uint32) (state, error) {

	if coupon == empty {
		return h, nil
	}

	r := find(h.store, coupon)
	if r.found {
		return h, nil
	}

	h.store.set(r.index, coupon)
	h.store.setCount(h.store.count() + 1)

	promote, err := h.checkGrowOrPromote()
	if err == nil && !promote {
		return h, nil
	}

	var promoted state
	if err == nil {
		promoted, err = promoteToDense(h.settings, h.alloc, h.liveCoupons(), h.outOfOrder)
	}

	if err != nil {
		// the bigger layout didn't fit.  the slot was empty before and nothing
		// has probed past it since, so clearing it restores the previous table.
		h.store.set(r.index, empty)
		h.store.setCount(h.store.count() - 1)
		return h, err
	}

	return promoted, nil
}

// checkGrowOrPromote grows the table when the load factor crossed 3/4.  It
// returns true when the table is already at its largest size and the set must
// promote instead.
func (h *couponHashSet) checkGrowOrPromote() (bool, error) {

	lgArr := h.store.lgArr()

	if resizeDenom*h.store.count() <= resizeNumer*(1<<uint(lgArr)) {
		return false, nil
	}

	if lgArr >= h.settings.lgMaxSetArr {
		return true, nil
	}

	return false, growHashSet(h.store, lgArr+1)
}

// growHashSet moves every coupon of the store into a table of 2^lgArr slots.
func growHashSet(store couponStore, lgArr int) error {

	old := store.coupons()

	if err := store.resize(lgArr); err != nil {
		return err
	}

	for _, fetched := range old {
		if fetched == empty {
			continue
		}

		r := find(store, fetched)
		if r.found {
			panic(ErrRehashDuplicate)
		}
		store.set(r.index, fetched)
	}

	return nil
}

// liveCoupons returns the coupons of every occupied slot in slot order.
func (h *couponHashSet) liveCoupons() []uint32 {
	live := make([]uint32, 0, h.store.count())
	for _, coupon := range h.store.coupons() {
		if coupon != empty {
			live = append(live, coupon)
		}
	}
	return live
}

func (h *couponHashSet) estimate() float64 {
	return couponEstimate(h.store.count())
}

func (h *couponHashSet) couponCount() int {
	return h.store.count()
}

func (h *couponHashSet) lgArr() int {
	return h.store.lgArr()
}

func (h *couponHashSet) isOutOfOrder() bool {
	return h.outOfOrder
}

func (h *couponHashSet) sizeInBytes(compact bool) int {
	if compact {
		return h.store.count() << 2
	}
	return 4 << uint(h.store.lgArr())
}

// writeBytes copies the table as is for the updatable layout and only the
// occupied slots for the compact one.
func (h *couponHashSet) writeBytes(bytes []byte, compact bool) {
	if compact {
		memory(bytes).putUint32s(0, h.liveCoupons())
		return
	}
	memory(bytes).putUint32s(0, h.store.coupons())
}

func (h *couponHashSet) iterator() *PairIterator {
	return newCouponIterator(h.settings, h.store)
}

func (h *couponHashSet) copyAs(settings *settings) state {
	return &couponHashSet{
		settings:   settings,
		store:      copyCoupons(h.store),
		alloc:      heapBacking{},
		outOfOrder: h.outOfOrder,
	}
}
