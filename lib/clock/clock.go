// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts time reads for testability. Every production
// function that would call time.Now or time.Since accepts a Clock (or
// is a method on a struct with a Clock field) instead.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Since returns the time elapsed since start according to c.
func Since(c Clock, start time.Time) time.Duration {
	return c.Now().Sub(start)
}
