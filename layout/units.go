package layout

import (
	"strconv"
	"strings"
)

// This file defines unit-safe types and helpers for lengths used by the planner.
// All page geometry is expressed in millimetres; captured bitmaps arrive in pixels.

// Unit represents the original unit of a length value.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers like factors
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
	UnitPX               // CSS reference pixels (96 per inch)
)

// Conversion constants between pt, px and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm

	// PxToMm maps one reference pixel at 96 dpi to millimetres.
	PxToMm = 25.4 / 96
	MmToPx = 1.0 / PxToMm
)

// PxToUnits converts a pixel extent to page units (mm). The same factor applies
// to both axes so aspect ratios survive the conversion.
func PxToUnits(px float64) float64 { return px * PxToMm }

// UnitsToPx is the inverse of PxToUnits.
func UnitsToPx(mm float64) float64 { return mm * MmToPx }

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	case UnitPX:
		return "px"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// To converts this length to target unit. Supported targets: UnitMM, UnitPT, UnitPX.
func (l Length) To(target Unit) float64 {
	var mm float64
	switch l.Unit {
	case UnitMM, UnitNone:
		mm = l.Value
	case UnitCM:
		mm = l.Value * 10
	case UnitIN:
		mm = l.Value * 25.4
	case UnitPT:
		if target == UnitPT {
			return l.Value
		}
		mm = l.Value * PtToMm
	case UnitPX:
		if target == UnitPX {
			return l.Value
		}
		mm = PxToUnits(l.Value)
	default:
		return l.Value
	}
	switch target {
	case UnitPT:
		return mm * MmToPt
	case UnitPX:
		return UnitsToPx(mm)
	default:
		return mm
	}
}

func (l Length) ToMM() float64 { return l.To(UnitMM) }
func (l Length) ToPT() float64 { return l.To(UnitPT) }

// ParseRawLengthStr parses a length string preserving its unit.
// A bare number is reported with UnitNone and treated as millimetres by To.
func ParseRawLengthStr(value string) Length {
	v := strings.TrimSpace(value)
	if v == "" {
		return Length{Value: 0, Unit: UnitNone}
	}
	lower := strings.ToLower(v)
	unit := UnitNone
	num := lower
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"px", UnitPX}} {
		if strings.HasSuffix(lower, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(lower, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{Value: 0, Unit: UnitNone}
	}
	return Length{Value: f, Unit: unit}
}
