package hll

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_memory(t *testing.T) {
	m := memory(make([]byte, 16))

	m.putUint32(4, 0xdeadbeef)
	assert.Equal(t, []byte{0xef, 0xbe, 0xad, 0xde}, []byte(m[4:8]), "little endian")
	assert.Equal(t, uint32(0xdeadbeef), m.uint32At(4))

	m.putUint32s(8, []uint32{1, 2})
	dst := make([]uint32, 2)
	m.getUint32s(8, dst)
	assert.Equal(t, []uint32{1, 2}, dst)

	m.clear(4, 12)
	assert.Equal(t, make([]byte, 16), []byte(m))

	assert.NoError(t, m.ensure(16))
	err := m.ensure(17)
	assert.ErrorIs(t, err, ErrRegionFull)
	assert.Contains(t, err.Error(), "need 17 bytes")
}

// Test_Direct_MatchesHeap feeds the same values to a heap Sketch and a direct
// Sketch and checks that they serialize to identical bytes in every mode.
func Test_Direct_MatchesHeap(t *testing.T) {

	for _, width := range []Width{Width4, Width6, Width8} {
		for _, n := range []int{0, 7, 8, 24, 25, 1000} {
			t.Run(fmt.Sprintf("Width%d-%d", width, n), func(t *testing.T) {
				s := Settings{LgConfigK: 8, Width: width}

				heap, err := NewSketch(s)
				require.NoError(t, err)

				size, err := MaxUpdatableBytes(s)
				require.NoError(t, err)

				region := make([]byte, size)
				direct, err := NewDirectSketch(s, region)
				require.NoError(t, err)
				assert.True(t, direct.IsDirect())
				assert.False(t, heap.IsDirect())

				for i := 0; i < n; i++ {
					require.NoError(t, heap.AddUint64(uint64(i)))
					require.NoError(t, direct.AddUint64(uint64(i)))
				}

				assert.Equal(t, heap.Mode(), direct.Mode())
				assert.Equal(t, heap.Estimate(), direct.Estimate())
				assert.Equal(t, heap.ToUpdatableBytes(), direct.ToUpdatableBytes())
				assert.Equal(t, heap.ToCompactBytes(), direct.ToCompactBytes())

				// the region itself always holds the updatable image.
				image := heap.ToUpdatableBytes()
				assert.Equal(t, image, region[:len(image)])
			})
		}
	}
}

func Test_Direct_RegionFull(t *testing.T) {
	s := Settings{LgConfigK: 8, Width: Width8}

	// room for the list and the hash set, but not the 264 byte dense image.
	region := make([]byte, hashSetIntArrStart+(4<<5))
	sketch, err := NewDirectSketch(s, region)
	require.NoError(t, err)

	for i := 0; i < 24; i++ {
		require.NoError(t, sketch.AddUint64(uint64(i)))
	}
	require.Equal(t, ModeSet, sketch.Mode())

	before := append([]byte(nil), region...)

	err = sketch.AddUint64(24)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegionFull)

	// the failed update left everything as it was.
	assert.Equal(t, before, region)
	assert.Equal(t, ModeSet, sketch.Mode())
	assert.Equal(t, 24, sketch.CouponCount())

	// a heap copy picks up where the region left off.
	c := sketch.Copy()
	assert.False(t, c.IsDirect())
	require.NoError(t, c.AddUint64(24))
	assert.Equal(t, ModeHll, c.Mode())
	assert.InEpsilon(t, 25, c.Estimate(), 0.1)

	// and the region can still be reopened.
	wrapped, err := Wrap(region)
	require.NoError(t, err)
	assert.Equal(t, ModeSet, wrapped.Mode())
	assert.Equal(t, 24, wrapped.CouponCount())
}

func Test_Direct_SetGrowRegionFull(t *testing.T) {
	s := Settings{LgConfigK: 10, Width: Width4}

	// room for the smallest hash set only.  LgConfigK 10 lets the set grow to
	// 2^7 slots, so the 25th coupon asks for a bigger table.
	region := make([]byte, hashSetIntArrStart+(4<<5))
	sketch, err := NewDirectSketch(s, region)
	require.NoError(t, err)

	for i := 0; i < 24; i++ {
		require.NoError(t, sketch.AddUint64(uint64(i)))
	}
	require.Equal(t, ModeSet, sketch.Mode())
	require.Equal(t, 24, sketch.CouponCount())

	before := append([]byte(nil), region...)

	err = sketch.AddUint64(24)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegionFull)
	assert.Contains(t, err.Error(), "need 268 bytes")

	assert.Equal(t, before, region)
	assert.Equal(t, ModeSet, sketch.Mode())
	assert.Equal(t, 24, sketch.CouponCount())

	wrapped, err := Wrap(region)
	require.NoError(t, err)
	assert.Equal(t, 24, wrapped.CouponCount())

	// on the heap the same coupon just grows the table.
	c := sketch.Copy()
	require.NoError(t, c.AddUint64(24))
	assert.Equal(t, ModeSet, c.Mode())
	assert.Equal(t, 25, c.CouponCount())
	assert.Equal(t, hashSetIntArrStart+(4<<6), c.UpdatableBytes())
}

func Test_Direct_ListRegionFull(t *testing.T) {
	s := Settings{LgConfigK: 10, Width: Width4}

	region := make([]byte, listIntArrStart+(4<<lgInitListSize))
	sketch, err := NewDirectSketch(s, region)
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		require.NoError(t, sketch.AddUint64(uint64(i)))
	}

	before := append([]byte(nil), region...)
	assert.ErrorIs(t, sketch.AddUint64(7), ErrRegionFull)
	assert.Equal(t, before, region)
	assert.Equal(t, ModeList, sketch.Mode())
	assert.Equal(t, 7, sketch.CouponCount())

	// duplicates never need more room.
	assert.NoError(t, sketch.AddUint64(3))
}

func Test_NewDirectSketch_TooSmall(t *testing.T) {
	_, err := NewDirectSketch(Settings{LgConfigK: 8, Width: Width4}, make([]byte, 20))
	assert.ErrorIs(t, err, ErrRegionFull)
}

func Test_Wrap(t *testing.T) {
	s := Settings{LgConfigK: 9, Width: Width6}
	size, err := MaxUpdatableBytes(s)
	require.NoError(t, err)

	heap, err := NewSketch(s)
	require.NoError(t, err)

	region := make([]byte, size)
	direct, err := NewDirectSketch(s, region)
	require.NoError(t, err)

	// reopen the region between every batch, crossing every mode.
	for batch := 0; batch < 10; batch++ {
		for i := batch * 20; i < (batch+1)*20; i++ {
			require.NoError(t, heap.AddUint64(uint64(i)))
			require.NoError(t, direct.AddUint64(uint64(i)))
		}

		direct, err = Wrap(region)
		require.NoError(t, err)
		require.True(t, direct.IsDirect())
		require.Equal(t, s, direct.Settings())
		require.Equal(t, heap.ToUpdatableBytes(), direct.ToUpdatableBytes(), "batch %d", batch)
	}
	assert.Equal(t, ModeHll, direct.Mode())
}

func Test_Wrap_Errors(t *testing.T) {
	sketch, err := NewSketch(Settings{LgConfigK: 8, Width: Width4})
	require.NoError(t, err)
	require.NoError(t, sketch.AddString("hello"))

	_, err = Wrap(sketch.ToCompactBytes())
	assert.Equal(t, ErrCompactImage, err)

	_, err = Wrap(nil)
	assert.ErrorIs(t, err, ErrInsufficientBytes)

	// an updatable image can be wrapped as is, as long as it doesn't need to
	// grow.
	wrapped, err := Wrap(sketch.ToUpdatableBytes())
	require.NoError(t, err)
	assert.NoError(t, wrapped.AddString("hello"))
	assert.Equal(t, 1, wrapped.CouponCount())
}

func Test_Direct_Clear(t *testing.T) {
	s := Settings{LgConfigK: 8, Width: Width4}
	size, err := MaxUpdatableBytes(s)
	require.NoError(t, err)

	region := make([]byte, size)
	sketch, err := NewDirectSketch(s, region)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		require.NoError(t, sketch.AddUint64(uint64(i)))
	}
	require.Equal(t, ModeHll, sketch.Mode())

	require.NoError(t, sketch.Clear())
	assert.True(t, sketch.IsEmpty())
	assert.True(t, sketch.IsDirect())

	cleared, err := NewSketch(s)
	require.NoError(t, err)
	assert.Equal(t, cleared.ToUpdatableBytes(), region[:listIntArrStart+(4<<lgInitListSize)])
}
