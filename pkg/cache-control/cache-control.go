// Package cachecontrol parses the caching policy a client requests with the
// X-Stalier-Cache-Control header. Ages use the delta-seconds notation of "Cache-Control".
package cachecontrol

import (
	"strconv"
)

// maxDeltaSeconds is used for values too large to represent.
const maxDeltaSeconds = 2147483648

// deltaSeconds parses a non-negative number of seconds.
// Overflowing values are capped, invalid ones are zero.
func deltaSeconds(secondsStr string) int {
	seconds, err := strconv.ParseUint(secondsStr, 10, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return maxDeltaSeconds
		}
		return 0
	}
	if seconds > maxDeltaSeconds {
		return maxDeltaSeconds
	}
	return int(seconds)
}
