// Package currentlimit converts between encoded hardware current-limit codes
// and milliamps.
package currentlimit

import (
	"slices"

	"github.com/OpenTraceLab/motorctl/pkg/names"
	"github.com/OpenTraceLab/motorctl/pkg/settings"
)

// Milliamps per code on products with a linear current-limit DAC.
const (
	step18v19 = 250
	step24v13 = 160

	maxFormulaCode = 95
)

// Current limits in mA for each code on products with a gain-switched
// current sense. Repeated values mark the codes where the gain changes; only
// the first of each pair is recommended.
var table18v27 = [32]uint32{
	0, 1100, 2200, 3300, 4400, 5500, 6600, 7700,
	8800, 9900, 11000, 12100, 13200, 14300, 15400, 16500,
	16500, 17600, 18700, 19800, 20900, 22000, 22000, 24200,
	26400, 28600, 30800, 33000, 33000, 35200, 37400, 39600,
}

var table24v21 = [32]uint32{
	0, 880, 1760, 2640, 3520, 4400, 5280, 6160,
	7040, 7920, 8800, 9680, 10560, 11440, 12320, 13200,
	13200, 14080, 14960, 15840, 16720, 17600, 17600, 19360,
	21120, 22880, 24640, 26400, 26400, 28160, 29920, 31680,
}

var (
	recommended18v27  = recommendedFromTable(table18v27[:])
	recommended24v21  = recommendedFromTable(table24v21[:])
	recommendedLinear = linearCodes()
)

func recommendedFromTable(t []uint32) []uint16 {
	var codes []uint16
	for i, ma := range t {
		if i > 0 && ma <= t[i-1] {
			continue
		}
		codes = append(codes, uint16(i))
	}
	return codes
}

func linearCodes() []uint16 {
	codes := make([]uint16, maxFormulaCode+1)
	for i := range codes {
		codes[i] = uint16(i)
	}
	return codes
}

// RecommendedCodes returns the codes Encode chooses from, ascending by
// current. It is empty for products without a hardware current limit.
func RecommendedCodes(product names.Product) []uint16 {
	return slices.Clone(recommended(product))
}

func recommended(product names.Product) []uint16 {
	switch product {
	case names.Product18v19, names.Product24v13:
		return recommendedLinear
	case names.Product18v27:
		return recommended18v27
	case names.Product24v21:
		return recommended24v21
	}
	return nil
}

func uncalibrated(product names.Product, code uint16) uint32 {
	switch product {
	case names.Product18v19:
		if code > maxFormulaCode {
			code = maxFormulaCode
		}
		return uint32(code) * step18v19
	case names.Product24v13:
		if code > maxFormulaCode {
			code = maxFormulaCode
		}
		return uint32(code) * step24v13
	case names.Product18v27:
		return table18v27[min(int(code), len(table18v27)-1)]
	case names.Product24v21:
		return table24v21[min(int(code), len(table24v21)-1)]
	}
	return 0
}

// Decode returns the current limit in mA that code represents on s.Product,
// adjusted by the current scale calibration.
func Decode(s *settings.Settings, code uint16) uint32 {
	ma := int64(uncalibrated(s.Product, code))
	ma = ma * (32768 + int64(s.CurrentScaleCalibration)) / 32768
	if ma < 0 {
		return 0
	}
	return uint32(ma)
}

// Encode returns the recommended code whose decoded current is the largest
// one not exceeding ma. It returns 0 when no code fits.
func Encode(s *settings.Settings, ma uint32) uint16 {
	var best uint16
	for _, code := range recommended(s.Product) {
		if Decode(s, code) > ma {
			break
		}
		best = code
	}
	return best
}
