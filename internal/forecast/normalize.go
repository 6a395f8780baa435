package forecast

// Normalize turns raw percentages into fractions over keys that sum to 1.
// Negative and non-finite values count as 0. When nothing positive
// remains, every key gets an equal share. Keys of raw outside keys are
// ignored; callers validate them separately.
func Normalize[K comparable](keys []K, raw map[K]float64) map[K]float64 {
	out := make(map[K]float64, len(keys))
	if len(keys) == 0 {
		return out
	}

	sum := 0.0
	for _, k := range keys {
		v := clampNonNegative(raw[k])
		out[k] = v
		sum += v
	}

	if sum <= 0 {
		share := 1.0 / float64(len(keys))
		for _, k := range keys {
			out[k] = share
		}
		return out
	}

	for _, k := range keys {
		out[k] /= sum
	}
	return out
}

func clampNonNegative(v float64) float64 {
	if !isFinite(v) || v < 0 {
		return 0
	}
	return v
}
