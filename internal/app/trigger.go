package app

// DefaultLoadThreshold is the number of viewport heights left below the
// visible area at which the next page is requested.
const DefaultLoadThreshold = 2.5

// ShouldLoadNextPage reports whether the remaining scroll distance is within
// threshold viewport heights. Firing it repeatedly is safe: LoadNextPage is
// gated by ShouldLoad.
func ShouldLoadNextPage(viewportHeight, contentHeight, offsetY, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultLoadThreshold
	}
	remaining := contentHeight - offsetY - viewportHeight
	return remaining <= viewportHeight*threshold
}
