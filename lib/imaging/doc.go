// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

// Package imaging prepares the pixel data that goes into a title's
// three atlases: segment tiles cut from rasterized layers, brightened
// background photos with a derived alpha channel, and the console
// photo. It also composes atlases and encodes them as PNG.
//
// Every image produced here is [image.NRGBA]. Pixels whose alpha falls
// below 30 are treated as fully transparent, both on input and after
// resampling, so faint resampling fringes never become segment area.
package imaging
