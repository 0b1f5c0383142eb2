package tracker

import "math"

// Band buckets a 10 point rating for display
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandAverage   Band = "average"
	BandPoor      Band = "poor"
)

// RatingBand returns the display band of rating.
func RatingBand(rating float64) Band {
	switch {
	case rating >= 9:
		return BandExcellent
	case rating >= 7:
		return BandGood
	case rating >= 5:
		return BandAverage
	default:
		return BandPoor
	}
}

// Star is one of the five rating slots
type Star int

const (
	StarEmpty Star = iota
	StarHalf
	StarFull
)

// Stars maps a 10 point rating onto five slots: one full star per two
// points, and a half star when the remainder is at least one point.
func Stars(rating float64) [5]Star {
	var stars [5]Star
	if math.IsNaN(rating) || rating <= 0 {
		return stars
	}

	full := int(math.Floor(rating / 2))
	half := math.Mod(rating, 2) >= 1

	for i := range stars {
		switch {
		case i < full:
			stars[i] = StarFull
		case i == full && half:
			stars[i] = StarHalf
		}
	}
	return stars
}

// StarString renders Stars as text, e.g. "★★★★½" padded with "☆".
func StarString(rating float64) string {
	var out []rune
	for _, s := range Stars(rating) {
		switch s {
		case StarFull:
			out = append(out, '★')
		case StarHalf:
			out = append(out, '½')
		default:
			out = append(out, '☆')
		}
	}
	return string(out)
}
