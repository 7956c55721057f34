package engine

import (
	"math"

	"github.com/piwi3910/cutopt/internal/model"
)

// makeUnits converts the validated box list into placement units for one
// stacking mode. With stacking disabled every box becomes its own unit;
// otherwise boxes of identical dimensions and rotation policy are collapsed
// into stacked SuperBoxes along the preferred axis, bounded by the largest
// usable bin extent. Grouping preserves input order, so unit expansion is
// deterministic. The unit's rotation permission combines the box flag with
// the global policy; the constituent boxes stay untouched.
func makeUnits(boxes []model.Box, stacking model.StackingPref, kerf, maxLength, maxWidth float64, allowRotation bool) []model.SuperBox {
	if stacking != model.StackingLength && stacking != model.StackingWidth {
		units := make([]model.SuperBox, 0, len(boxes))
		for _, b := range boxes {
			u := model.NewSuperBox(b)
			u.Rotatable = u.Rotatable && allowRotation
			units = append(units, u)
		}
		return units
	}

	type key struct {
		length, width float64
		rotatable     bool
	}
	groupIdx := make(map[key]int)
	var groups [][]model.Box
	for _, b := range boxes {
		k := key{b.Length, b.Width, b.Rotatable && allowRotation}
		// Rotation-equivalent duplicates stack together: a rotatable
		// 400x600 and 600x400 are the same part.
		if k.rotatable && k.width > k.length {
			k.length, k.width = k.width, k.length
		}
		idx, ok := groupIdx[k]
		if !ok {
			idx = len(groups)
			groupIdx[k] = idx
			groups = append(groups, nil)
		}
		groups[idx] = append(groups[idx], b)
	}

	alongLength := stacking == model.StackingLength
	var units []model.SuperBox
	for _, group := range groups {
		b := group[0]
		// Largest stack that still fits the biggest bin along the
		// stacking axis, one kerf between consecutive boxes.
		var side, limit float64
		if alongLength {
			side, limit = b.Length, maxLength
		} else {
			side, limit = b.Width, maxWidth
		}
		maxCount := int(math.Floor((limit + kerf + model.DimEps) / (side + kerf)))
		if maxCount < 1 {
			maxCount = 1
		}

		for start := 0; start < len(group); start += maxCount {
			end := start + maxCount
			if end > len(group) {
				end = len(group)
			}
			u := newStack(group[start:end], alongLength, kerf)
			u.Rotatable = u.Rotatable && allowRotation
			units = append(units, u)
		}
	}
	return units
}

// newStack builds a SuperBox from equal-dimension boxes laid out along
// the given axis with one kerf between consecutive boxes.
func newStack(boxes []model.Box, alongLength bool, kerf float64) model.SuperBox {
	b := boxes[0]
	n := float64(len(boxes))
	s := model.SuperBox{
		Length:      b.Length,
		Width:       b.Width,
		Rotatable:   b.Rotatable,
		Boxes:       append([]model.Box(nil), boxes...),
		AlongLength: alongLength,
	}
	for i, bb := range boxes {
		if bb.Length != b.Length {
			if s.Flipped == nil {
				s.Flipped = make([]bool, len(boxes))
			}
			s.Flipped[i] = true
		}
	}
	if len(boxes) > 1 {
		if alongLength {
			s.Length = n*b.Length + (n-1)*kerf
		} else {
			s.Width = n*b.Width + (n-1)*kerf
		}
	}
	return s
}

// expandBoxes flattens placement units back to their constituent boxes.
func expandBoxes(units []model.SuperBox) []model.Box {
	var boxes []model.Box
	for _, u := range units {
		boxes = append(boxes, u.Boxes...)
	}
	return boxes
}
