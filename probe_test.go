package hll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_find(t *testing.T) {
	store := newHeapCoupons(5)

	first := pack(1, 1)
	r := find(store, first)
	assert.False(t, r.found)
	assert.Equal(t, 1, r.index, "empty table lands on the home slot")

	store.set(r.index, first)

	r = find(store, first)
	assert.True(t, r.found)
	assert.Equal(t, 1, r.index)

	// same home slot, so this one has to probe past the first coupon.
	second := pack(1+(1<<5), 1)
	r = find(store, second)
	assert.False(t, r.found)
	assert.Equal(t, 2, r.index)

	store.set(r.index, second)

	r = find(store, second)
	assert.True(t, r.found)
	assert.Equal(t, 2, r.index)

	r = find(store, first)
	assert.True(t, r.found)
	assert.Equal(t, 1, r.index)
}

func Test_find_VisitsEverySlot(t *testing.T) {
	store := newHeapCoupons(5)

	// every coupon shares home slot 0.  the strides are odd so they still
	// reach every slot of the table.
	for i := 0; i < 31; i++ {
		coupon := pack(uint32(i)<<5, 1)
		r := find(store, coupon)
		require.False(t, r.found, "i == %d", i)
		store.set(r.index, coupon)
	}

	for i := 0; i < 31; i++ {
		r := find(store, pack(uint32(i)<<5, 1))
		assert.True(t, r.found, "i == %d", i)
	}
}

func Test_find_FullTablePanics(t *testing.T) {
	store := newHeapCoupons(5)
	for i := 0; i < 32; i++ {
		store.set(i, pack(uint32(i), 2))
	}

	defer func() {
		r := recover()
		require.NotNil(t, r, "find should have panicked")
		assert.Equal(t, ErrProbeExhausted, r)
	}()

	find(store, pack(3, 1))
}
