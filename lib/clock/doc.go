// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts wall-clock reads so that build timing and
// cache entry timestamps are deterministic in tests.
//
// Production code injects [Real]; tests inject [Fake] and move time
// with [FakeClock.Advance] or [FakeClock.Set].
package clock
