package hll

// lgInitListSize is log2 of the number of slots in the coupon list.
const lgInitListSize = 3

// couponList is the first tier of a Sketch.  It fills its slots in order and
// finds duplicates with a linear scan, which beats hashing for a handful of
// coupons.  Once every slot is taken, it promotes.
type couponList struct {
	settings *settings
	store    couponStore
	alloc    backing
}

func newCouponList(settings *settings, alloc backing) (*couponList, error) {
	store, err := alloc.coupons(settings, ModeList, lgInitListSize, false)
	if err != nil {
		return nil, err
	}
	return &couponList{settings: settings, store: store, alloc: alloc}, nil
}

// heapifyList rebuilds a list from an image.  Both layouts keep the coupons in
// insertion order at the head of the array, so the compact form is replayed
// and the updatable form is copied.
func heapifyList(settings *settings, p preamble, m memory) state {

	list := &couponList{
		settings: settings,
		store:    newHeapCoupons(lgInitListSize),
		alloc:    heapBacking{},
	}

	if p.compact {
		var st state = list
		for i := 0; i < p.count; i++ {
			// NOTE : heap states can't fail and the validated count is below
			//        the promotion point.
			st, _ = st.update(m.uint32At(listIntArrStart + (i << 2)))
		}
		return st
	}

	store := list.store.(*heapCoupons)
	m.getUint32s(listIntArrStart, store.arr)
	store.n = p.count

	return list
}

func (l *couponList) mode() Mode {
	return ModeList
}

func (l *couponList) update(coupon uint32) (state, error) {

	if coupon == empty {
		return l, nil
	}

	length := 1 << lgInitListSize
	for i := 0; i < length; i++ {
		fetched := l.store.get(i)

		if fetched == coupon {
			return l, nil
		}

		if fetched != empty {
			continue
		}

		l.store.set(i, coupon)
		l.store.setCount(l.store.count() + 1)

		if l.store.count() < length {
			return l, nil
		}

		promoted, err := l.promote()
		if err != nil {
			// the new tier didn't fit.  undo the insert so the list stays as it
			// was before this call.
			l.store.set(i, empty)
			l.store.setCount(l.store.count() - 1)
			return l, err
		}

		return promoted, nil
	}

	// every slot is taken but the list should have promoted when it filled up.
	panic(ErrProbeExhausted)
}

// promote moves the coupons into the next tier:  a hash set when LgConfigK is
// large enough to warrant one, otherwise straight to the dense array.
func (l *couponList) promote() (state, error) {

	// take the coupons out first.  a direct backing reuses the same region for
	// the next tier.
	coupons := l.store.coupons()[:l.store.count()]

	if l.settings.lgConfigK <= minimumSetLgConfigK {
		return promoteToDense(l.settings, l.alloc, coupons, false)
	}

	set, err := newCouponHashSet(l.settings, l.alloc)
	if err != nil {
		return nil, err
	}

	var st state = set
	for _, coupon := range coupons {
		if st, err = st.update(coupon); err != nil {
			return nil, err
		}
	}

	return st, nil
}

func (l *couponList) estimate() float64 {
	return couponEstimate(l.store.count())
}

func (l *couponList) couponCount() int {
	return l.store.count()
}

func (l *couponList) lgArr() int {
	return l.store.lgArr()
}

// isOutOfOrder is always false.  Replaying a compact list rebuilds the exact
// same layout.
func (l *couponList) isOutOfOrder() bool {
	return false
}

func (l *couponList) sizeInBytes(compact bool) int {
	if compact {
		return l.store.count() << 2
	}
	return 4 << uint(l.store.lgArr())
}

func (l *couponList) writeBytes(bytes []byte, compact bool) {
	coupons := l.store.coupons()
	if compact {
		coupons = coupons[:l.store.count()]
	}
	memory(bytes).putUint32s(0, coupons)
}

func (l *couponList) iterator() *PairIterator {
	return newCouponIterator(l.settings, l.store)
}

func (l *couponList) copyAs(settings *settings) state {
	return &couponList{
		settings: settings,
		store:    copyCoupons(l.store),
		alloc:    heapBacking{},
	}
}
