package auction

import "time"

// MaybeExtend applies the anti-sniping policy: a bid landing inside the
// configured window before the scheduled end pushes the end time out by the
// configured extension. The check runs against the *current* end time on
// every accepted bid, so an auction keeps extending for as long as bids keep
// arriving inside the window. There is deliberately no cap on the number of
// extensions.
//
// The extension is additive (endTime + extension, not bidTime + extension).
func MaybeExtend(endTime, bidTime time.Time, window, extension time.Duration) (time.Time, bool) {
	if window <= 0 || extension <= 0 {
		return endTime, false
	}
	if bidTime.Before(endTime.Add(-window)) {
		return endTime, false
	}
	return endTime.Add(extension), true
}
