package hll

// state is the interface shared by the three tiers of a Sketch:  the coupon
// list, the coupon hash set and the dense register array.  A Sketch holds
// exactly one of them at a time and only ever moves forward through the tiers.
type state interface {

	// mode returns the tier of this state.
	mode() Mode

	// update offers a coupon to the state.  It returns the state that the
	// Sketch must hold from now on, which is the receiver unless the coupon
	// caused a promotion.  An error means that nothing changed.
	update(coupon uint32) (state, error)

	// estimate returns the cardinality estimate of the state.
	estimate() float64

	// couponCount returns the number of distinct coupons held by a coupon tier
	// or the number of non-zero registers of the dense tier.
	couponCount() int

	// lgArr returns log2 of the coupon array length.  It is 0 for the dense
	// tier.
	lgArr() int

	// isOutOfOrder reports whether the layout may differ from what live
	// sequential insertion would have produced.
	isOutOfOrder() bool

	// sizeInBytes returns the number of bytes that writeBytes needs past the
	// preamble.
	sizeInBytes(compact bool) int

	// writeBytes serializes the payload into bytes, which starts right past the
	// preamble and is at least sizeInBytes long.
	writeBytes(bytes []byte, compact bool)

	// iterator walks the non-empty entries of the state.
	iterator() *PairIterator

	// copyAs returns a deep, heap owned copy of the state that uses the
	// provided settings.
	copyAs(settings *settings) state
}

// couponStore is the storage behind the list and the hash set:  a power of two
// sized array of coupon slots together with its size exponent and occupancy.
// It is implemented on the heap and over a caller owned region.
type couponStore interface {
	lgArr() int
	count() int
	setCount(n int)

	get(i int) uint32
	set(i int, coupon uint32)

	// resize replaces the slots with 2^lgArr empty slots.  The count is left
	// alone.  It returns ErrRegionFull without touching anything when the
	// backing can't hold the new array.
	resize(lgArr int) error

	// coupons returns a copy of every slot, empty ones included.
	coupons() []uint32
}

// backing hands out the storage for each tier.  Promotions go through the
// backing of the promoted state so that a direct sketch stays inside its
// region.
type backing interface {

	// coupons returns an empty couponStore for the list or set tier.
	coupons(settings *settings, m Mode, lgArr int, outOfOrder bool) (couponStore, error)

	// registers returns zeroed storage for the dense tier.
	registers(settings *settings, outOfOrder bool) ([]byte, error)
}

// heapCoupons is a couponStore that owns its slots.
type heapCoupons struct {
	arr []uint32
	lg  int
	n   int
}

func newHeapCoupons(lgArr int) *heapCoupons {
	return &heapCoupons{arr: make([]uint32, 1<<uint(lgArr)), lg: lgArr}
}

func (h *heapCoupons) lgArr() int               { return h.lg }
func (h *heapCoupons) count() int               { return h.n }
func (h *heapCoupons) setCount(n int)           { h.n = n }
func (h *heapCoupons) get(i int) uint32         { return h.arr[i] }
func (h *heapCoupons) set(i int, coupon uint32) { h.arr[i] = coupon }

func (h *heapCoupons) resize(lgArr int) error {
	h.arr = make([]uint32, 1<<uint(lgArr))
	h.lg = lgArr
	return nil
}

func (h *heapCoupons) coupons() []uint32 {
	o := make([]uint32, len(h.arr))
	copy(o, h.arr)
	return o
}

// copyCoupons deep copies any couponStore onto the heap.
func copyCoupons(src couponStore) *heapCoupons {
	return &heapCoupons{arr: src.coupons(), lg: src.lgArr(), n: src.count()}
}

// heapBacking allocates every tier on the heap.
type heapBacking struct{}

func (heapBacking) coupons(settings *settings, m Mode, lgArr int, outOfOrder bool) (couponStore, error) {
	return newHeapCoupons(lgArr), nil
}

func (heapBacking) registers(settings *settings, outOfOrder bool) ([]byte, error) {
	return make([]byte, settings.registerBytes), nil
}
