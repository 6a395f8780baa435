package forecast

// SaturatingEffect models diminishing returns from posting frequency:
// posts/(posts+halfSat), in [0,1).
func SaturatingEffect(postsPerWeek, halfSat float64) float64 {
	if halfSat <= 0 {
		return 0
	}
	posts := clampNonNegative(postsPerWeek)
	return posts / (posts + halfSat)
}

// BlendedContentMultiplier is the mix-weighted average of the per-type
// multipliers. The denominator falls back to 1 when the mix is empty.
func BlendedContentMultiplier(mix map[ContentType]float64, mult map[ContentType]float64) float64 {
	sum := 0.0
	weighted := 0.0
	for _, ct := range ContentTypes {
		share := clampNonNegative(mix[ct])
		sum += share
		weighted += mult[ct] * share
	}
	if sum <= 0 {
		sum = 1
	}
	return weighted / sum
}

// HHI is the Herfindahl-Hirschman concentration of a content mix.
func HHI(mix map[ContentType]float64) float64 {
	sum := 0.0
	for _, ct := range ContentTypes {
		sum += clampNonNegative(mix[ct])
	}
	if sum <= 0 {
		sum = 1
	}
	hhi := 0.0
	for _, ct := range ContentTypes {
		f := clampNonNegative(mix[ct]) / sum
		hhi += f * f
	}
	return hhi
}

const (
	diversityFreeHHI  = 0.5
	diversityFloorHHI = 0.9
	diversityFloor    = 0.85
)

// DiversityFactor penalises single-format reliance: 1.0 up to an HHI of
// 0.5, 0.85 from 0.9, linear in between.
func DiversityFactor(mix map[ContentType]float64) float64 {
	hhi := HHI(mix)
	switch {
	case hhi <= diversityFreeHHI:
		return 1
	case hhi >= diversityFloorHHI:
		return diversityFloor
	}
	penalty := 1 - (hhi-diversityFreeHHI)*((1-diversityFloor)/(diversityFloorHHI-diversityFreeHHI))
	return clamp(penalty, diversityFloor, 1)
}

const oversaturationFloor = 0.6

// OversaturationPenalty is 1.0 at or below soft, 0.6 at or above hard and
// linear in between.
func OversaturationPenalty(postsPerWeek, soft, hard float64) float64 {
	if postsPerWeek <= soft {
		return 1
	}
	if postsPerWeek >= hard {
		return oversaturationFloor
	}
	span := hard - soft
	if span < 1e-6 {
		span = 1e-6
	}
	return 1 - (1-oversaturationFloor)*(postsPerWeek-soft)/span
}

const (
	consistencyBelowBand = 0.95
	consistencyInBand    = 1.08
	consistencyAboveBand = 1.0
)

// ConsistencyBoost rewards posting inside the recommended band.
func ConsistencyBoost(postsPerWeek, min, max float64) float64 {
	if postsPerWeek < min {
		return consistencyBelowBand
	}
	if postsPerWeek <= max {
		return consistencyInBand
	}
	return consistencyAboveBand
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
