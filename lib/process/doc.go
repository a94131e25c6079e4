// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package process maps a command's returned error to the process exit
// status. It runs after the structured logger is gone, so it writes
// to stderr directly.
package process
