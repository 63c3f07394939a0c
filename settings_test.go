package hll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SettingsValidate(t *testing.T) {

	defaults := Settings{
		LgConfigK: 11,
		Width:     Width6,
	}
	// sanity check...ensure defaults are valid since we will use it as a base for all the tests.
	require.NoError(t, defaults.validate())

	t.Run("LgConfigK", func(t *testing.T) {
		settings := defaults // copy known good settings

		settings.LgConfigK = minimumLgConfigK - 1
		err := settings.validate()
		assert.Error(t, err, "one less than minimum value")
		assert.Contains(t, err.Error(), "LgConfigK")
		assert.Contains(t, err.Error(), "Requires at least")

		settings.LgConfigK = minimumLgConfigK
		assert.NoError(t, settings.validate(), "minimum value")

		settings.LgConfigK = maximumLgConfigK
		assert.NoError(t, settings.validate(), "maximum value")

		settings.LgConfigK = maximumLgConfigK + 1
		err = settings.validate()
		assert.Error(t, err, "one more than maximum value")
		assert.Contains(t, err.Error(), "LgConfigK")
		assert.Contains(t, err.Error(), "Allows at most")
	})

	t.Run("Width", func(t *testing.T) {
		for _, width := range []Width{Width4, Width6, Width8} {
			settings := defaults
			settings.Width = width
			assert.NoError(t, settings.validate(), "width %d", width)
		}

		for _, width := range []Width{0, 3, 5, 7, 16} {
			settings := defaults
			settings.Width = width
			err := settings.validate()
			assert.Error(t, err, "width %d", width)
			assert.Contains(t, err.Error(), "Width is invalid")
		}
	})
}

func Test_SettingsToFromInternal(t *testing.T) {

	originalSettings := []Settings{
		{
			LgConfigK: 4,
			Width:     Width4,
		},
		{
			LgConfigK: 8,
			Width:     Width6,
		},
		{
			LgConfigK: 21,
			Width:     Width8,
		},
	}

	for _, settings := range originalSettings {
		internalSettings, err := settings.toInternal()
		require.NoError(t, err)
		assert.Equal(t, settings, internalSettings.toExternal())

		// the cache hands back the same instance.
		again, err := settings.toInternal()
		require.NoError(t, err)
		assert.True(t, internalSettings == again)
	}
}

func Test_SettingsDerivedValues(t *testing.T) {
	s, err := Settings{LgConfigK: 12, Width: Width4}.toInternal()
	require.NoError(t, err)

	assert.Equal(t, 9, s.lgMaxSetArr)
	assert.Equal(t, uint32(4095), s.slotMask)
	assert.Equal(t, uint32(15), s.registerMax)
	assert.Equal(t, 2048, s.registerBytes)

	s, err = Settings{LgConfigK: 12, Width: Width8}.toInternal()
	require.NoError(t, err)
	assert.Equal(t, uint32(255), s.registerMax)
	assert.Equal(t, 4096, s.registerBytes)
}

func Test_MaxUpdatableBytes(t *testing.T) {

	tests := []struct {
		settings Settings
		expected int
	}{
		{
			// the list image is the largest.
			settings: Settings{LgConfigK: 4, Width: Width4},
			expected: 40,
		},
		{
			// the hash set image is the largest.
			settings: Settings{LgConfigK: 8, Width: Width4},
			expected: 140,
		},
		{
			settings: Settings{LgConfigK: 8, Width: Width8},
			expected: 264,
		},
		{
			settings: Settings{LgConfigK: 12, Width: Width6},
			expected: 3080,
		},
		{
			settings: Settings{LgConfigK: 21, Width: Width8},
			expected: 8 + (1 << 21),
		},
	}

	for _, tt := range tests {
		size, err := MaxUpdatableBytes(tt.settings)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, size, "%+v", tt.settings)
	}

	_, err := MaxUpdatableBytes(Settings{LgConfigK: 3, Width: Width4})
	assert.Error(t, err)
}

func Test_Defaults(t *testing.T) {
	s := Settings{
		LgConfigK: 11,
		Width:     Width6,
	}

	// reset the defaults on the way out of this function
	defer resetDefaults()

	err := Defaults(s)
	require.NoError(t, err)

	// this is allowed b/c the settings are the same.
	err = Defaults(s)
	require.NoError(t, err)

	// this is not allowed!
	s.Width = Width4
	err = Defaults(s)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already been installed")

	// this is also not allowed b/c settings are bad.
	s.Width = 0
	err = Defaults(s)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Width is invalid")
}

func resetDefaults() {
	defaultSettingsLock.Lock()
	defaultSettings = nil
	defaultSettingsLock.Unlock()
}

func BenchmarkSettingsToInternal(b *testing.B) {
	s := Settings{
		LgConfigK: 11,
		Width:     Width6,
	}

	for i := 0; i < b.N; i++ {
		s.toInternal()
	}
}
