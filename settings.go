package hll

import (
	"fmt"
	"math"
	"sync"

	"github.com/pkg/errors"
)

const (
	// minimum and maximum values for the log-base-2 of the number of registers
	// in the dense representation
	minimumLgConfigK = 4
	maximumLgConfigK = 21

	// the hash set tier is only used above this LgConfigK.  at or below it, the
	// list promotes straight to the dense representation.
	minimumSetLgConfigK = 7
)

// Width is the number of bits per register of the dense representation that a
// Sketch promotes into.  Given the same LgConfigK and input, all three widths
// produce the same estimates until registers saturate.
type Width int

const (
	// Width4 uses 4 bits per register.  Register values saturate at 15.
	Width4 Width = 4
	// Width6 uses 6 bits per register.
	Width6 Width = 6
	// Width8 uses a byte per register.
	Width8 Width = 8
)

// tag returns the 2 bit code of the width in serialized images.
func (w Width) tag() int {
	switch w {
	case Width4:
		return 0
	case Width6:
		return 1
	default:
		return 2
	}
}

func widthFromTag(tag int) (Width, bool) {
	switch tag {
	case 0:
		return Width4, true
	case 1:
		return Width6, true
	case 2:
		return Width8, true
	}
	return 0, false
}

func (w Width) valid() bool {
	return w == Width4 || w == Width6 || w == Width8
}

// Settings are used to configure the Sketch.
type Settings struct {
	// LgConfigK determines the number of registers in the dense representation
	// as 2^LgConfigK.  The minimum value is 4 and the maximum value is 21.  It
	// also bounds the hash set, which promotes once it would need more than
	// 2^(LgConfigK-3) slots.
	LgConfigK int

	// Width is the register width of the dense representation.  It must be one
	// of Width4, Width6 or Width8.
	Width Width
}

var defaultSettings *settings
var defaultSettingsLock sync.RWMutex

var settingsCache map[Settings]*settings
var settingsCacheLock sync.RWMutex

func init() {
	settingsCache = make(map[Settings]*settings)
}

// Defaults installs settings that will be used by the zero value Sketch.  It
// recommended to call this function once at initialization time and never
// again.  It will return an error if the provided settings are invalid or if a
// different set of defaults has already been installed.
func Defaults(settings Settings) error {

	s, err := settings.toInternal()
	if err != nil {
		return err
	}

	defaultSettingsLock.Lock()
	defer defaultSettingsLock.Unlock()

	if defaultSettings != nil && s != defaultSettings {
		return errors.New("different default settings have already been installed")
	}

	defaultSettings = s

	return nil
}

// getDefaults will return the default settings or nil if they haven't been
// configured.
func getDefaults() *settings {
	defaultSettingsLock.RLock()
	defer defaultSettingsLock.RUnlock()
	return defaultSettings
}

type settings struct {
	lgConfigK int
	width     Width

	// lgMaxSetArr is the largest size exponent of the hash set.
	lgMaxSetArr int

	// slotMask selects the register index from the low bits of a coupon.
	slotMask uint32

	// registerMax is the largest value a register can hold.
	registerMax uint32

	// registerBytes is the size of the bit packed register array.
	registerBytes int

	// alpha * m^2 (the constant in the "'raw' HyperLogLog estimator")
	alphaMSquared float64

	// smallEstimatorCutoff is the cutoff value of the estimator for using the
	// "small" range cardinality correction formula
	smallEstimatorCutoff float64

	// largeEstimatorCutoff is the cutoff value of the estimator for using the
	// "large" range cardinality correction formula
	largeEstimatorCutoff float64

	twoToL float64
}

// toInternal translates Settings to settings, validating them in the process.
// This function will also compute the constant values used by the Sketch
// calculations and cache the result.
func (s Settings) toInternal() (*settings, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	settingsCacheLock.RLock()
	cachedSettings := settingsCache[s]
	settingsCacheLock.RUnlock()

	if cachedSettings != nil {
		return cachedSettings, nil
	}

	lgConfigK := s.LgConfigK
	regwidth := int(s.Width)

	twoToL := twoToL(lgConfigK, regwidth)

	settings := settings{
		lgConfigK:            lgConfigK,
		width:                s.Width,
		lgMaxSetArr:          lgConfigK - 3,
		slotMask:             uint32((1 << uint(lgConfigK)) - 1),
		registerMax:          uint32((1 << uint(regwidth)) - 1),
		registerBytes:        registerBytes(lgConfigK, s.Width),
		alphaMSquared:        alphaMSquared(lgConfigK),
		smallEstimatorCutoff: smallEstimatorCutoff(1 << uint(lgConfigK)),
		largeEstimatorCutoff: largeEstimatorCutoff(twoToL),
		twoToL:               twoToL,
	}

	// install the settings.  note that if another equal set of settings had
	// been installed between our critical sections, the result is idempotent.
	settingsCacheLock.Lock()
	settingsCache[s] = &settings
	settingsCacheLock.Unlock()

	return &settings, nil
}

// validate ensures that all of the settings in s are within bounds.  It will
// throw an error if any of them are not.
func (s *Settings) validate() error {

	if s.LgConfigK < minimumLgConfigK {
		return fmt.Errorf("LgConfigK is too small.  Requires at least %d but got %d", minimumLgConfigK, s.LgConfigK)
	} else if s.LgConfigK > maximumLgConfigK {
		return fmt.Errorf("LgConfigK is too large.  Allows at most %d but got %d", maximumLgConfigK, s.LgConfigK)
	}

	if !s.Width.valid() {
		return fmt.Errorf("Width is invalid.  Requires one of %d, %d or %d but got %d", Width4, Width6, Width8, s.Width)
	}

	return nil
}

// toExternal translates the internal settings back to their exported version.
func (s *settings) toExternal() Settings {
	return Settings{
		LgConfigK: s.lgConfigK,
		Width:     s.width,
	}
}

// MaxUpdatableBytes returns the size of the largest updatable image a Sketch
// with the provided settings can produce.  A region of this size never makes a
// direct Sketch fail with ErrRegionFull.
func MaxUpdatableBytes(s Settings) (int, error) {
	internal, err := s.toInternal()
	if err != nil {
		return 0, err
	}
	return internal.maxUpdatableBytes(), nil
}

func (s *settings) maxUpdatableBytes() int {
	size := listIntArrStart + (4 << lgInitListSize)

	if s.lgConfigK > minimumSetLgConfigK {
		if set := hashSetIntArrStart + (4 << uint(s.lgMaxSetArr)); set > size {
			size = set
		}
	}

	if dense := hllByteArrStart + s.registerBytes; dense > size {
		size = dense
	}

	return size
}

// registerBytes returns the number of bytes needed to pack every register.
func registerBytes(lgConfigK int, width Width) int {
	return divideBy8RoundUp((1 << uint(lgConfigK)) * int(width))
}

// alphaMSquared calculates the 'alpha-m-squared' constant (gamma times
// registerCount squared where gamma is based on the value of registerCount)
// used by the HyperLogLog algorithm.
func alphaMSquared(log2m int) float64 {

	m := float64(int(1) << uint(log2m))

	switch log2m {
	case 4:
		return 0.673 * m * m
	case 5:
		return 0.697 * m * m
	case 6:
		return 0.709 * m * m
	default:
		return (0.7213 / (1.0 + 1.079/m)) * m * m
	}
}

// smallEstimatorCutoff calculates the "small range correction" formula, in the
// HyperLogLog algorith based on the total number of registers (m)
func smallEstimatorCutoff(m int) float64 {
	return (float64(m) * 5) / 2
}

// largeEstimatorCutoff calculates The cutoff for using the "large range
// correction" formula, from the HyperLogLog algorithm, adapted for 64 bit
// hashes.  See http://research.neustar.biz/2013/01/24/hyperloglog-googles-take-on-engineering-hll.
func largeEstimatorCutoff(twoToL float64) float64 {
	return twoToL / 30.0
}

// twoToL calculates 2 raised to L where L is the "large range correction
// boundary" described at http://research.neustar.biz/2013/01/24/hyperloglog-googles-take-on-engineering-hll.
func twoToL(log2m int, regwidth int) float64 {

	// the register can't hold more than the largest coupon value.
	maxRegisterValue := (1 << uint(regwidth)) - 1
	if maxRegisterValue > maxCouponValue {
		maxRegisterValue = maxCouponValue
	}

	// Since 1 is added to p(w) in the insertion algorithm, only
	// (maxRegisterValue - 1) bits are inspected hence the hash
	// space is one power of two smaller.
	pwBits := maxRegisterValue - 1
	totalBits := pwBits + log2m

	// NOTE : this can get larger than fits in a 64 bit integer.
	return math.Pow(2, float64(totalBits))
}
