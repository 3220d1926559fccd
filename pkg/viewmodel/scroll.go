package viewmodel

// DefaultLoadMoreThreshold is the remaining scroll distance, in points, at
// which the next page is requested.
const DefaultLoadMoreThreshold = 600.0

// ScrollPosition describes a vertical scroll view.
type ScrollPosition struct {
	ContentHeight  float64
	ViewportHeight float64
	Offset         float64
}

// RemainingDistance is the distance between the bottom of the viewport and
// the end of the content.
func (s ScrollPosition) RemainingDistance() float64 {
	return s.ContentHeight - (s.Offset + s.ViewportHeight)
}

// NearBottom reports whether the viewport is within threshold of the end of
// the content. A non-positive threshold means DefaultLoadMoreThreshold.
func NearBottom(pos ScrollPosition, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultLoadMoreThreshold
	}
	return pos.RemainingDistance() <= threshold
}
