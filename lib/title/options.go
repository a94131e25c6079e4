// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package title

import (
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/retrovalou/yokoi/lib/config"
	"github.com/retrovalou/yokoi/lib/geom"
)

// Manufacturer ids understood by the runtime.
const (
	ManufacturerNintendo    uint32 = 0
	ManufacturerTronica     uint32 = 1
	ManufacturerElektronika uint32 = 2
)

// DefaultDate is used for titles without a known release date.
const DefaultDate = "198X-XX-XX"

// Transform is a per-screen crop expressed in source units: the full
// extent and the amount cut from each side.
type Transform struct {
	_         struct{} `cbor:",toarray"`
	Width     int
	CutLeft   int
	CutRight  int
	Height    int
	CutTop    int
	CutBottom int
}

// Identity reports whether the transform leaves the image unchanged.
func (t Transform) Identity() bool {
	return t == Transform{}
}

// Options is a fully resolved title. Every field has its final value;
// nothing downstream applies defaults. The CBOR form is the title part
// of a cache signature.
type Options struct {
	Key         string `cbor:"key"`
	Ref         string `cbor:"ref"`
	DisplayName string `cbor:"display_name"`
	Date        string `cbor:"date"`

	ROM        string   `cbor:"rom"`
	Melody     string   `cbor:"melody"`
	Visual     []string `cbor:"visual"`
	Background []string `cbor:"background"`
	Console    string   `cbor:"console"`

	Rotate            bool    `cbor:"rotate"`
	Mask              bool    `cbor:"mask"`
	ColorSegment      bool    `cbor:"color_segment"`
	TwoInOneScreen    bool    `cbor:"two_in_one_screen"`
	AlphaBright       float64 `cbor:"alpha_bright"`
	FondBright        float64 `cbor:"fond_bright"`
	Shadow            bool    `cbor:"shadow"`
	BackgroundInFront bool    `cbor:"background_in_front"`
	Camera            bool    `cbor:"camera"`

	// Transforms has one entry per screen, or none.
	Transforms []Transform `cbor:"transform_visual"`

	// SizeVisual is already multiplied by the knobs' size scale.
	SizeVisual []geom.Size `cbor:"size_visual"`

	Manufacturer uint32 `cbor:"manufacturer"`
}

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Resolve validates entry and applies every default.
func Resolve(entry Entry, knobs config.Knobs) (Options, error) {
	var errs []error
	if !keyPattern.MatchString(entry.Key) {
		errs = append(errs, fmt.Errorf("key %q must be a C identifier", entry.Key))
	}
	if entry.Ref == "" {
		errs = append(errs, errors.New("ref is required"))
	}
	if entry.ROM == "" {
		errs = append(errs, errors.New("rom is required"))
	}
	if len(entry.Visual) == 0 {
		errs = append(errs, errors.New("visual needs at least one file"))
	}
	for index, path := range entry.Visual {
		if path == "" {
			errs = append(errs, fmt.Errorf("visual[%d] is empty", index))
		}
	}

	options := Options{
		Key:               entry.Key,
		Ref:               strings.ToUpper(strings.ReplaceAll(entry.Ref, "-", "_")),
		DisplayName:       orDefault(entry.DisplayName, entry.Key),
		Date:              orDefault(entry.Date, DefaultDate),
		ROM:               entry.ROM,
		Melody:            entry.Melody,
		Visual:            nonNil(entry.Visual),
		Background:        nonNil(entry.Background),
		Console:           orDefault(entry.Console, knobs.DefaultConsole),
		Rotate:            boolOr(entry.Rotate, knobs.DefaultRotate),
		Mask:              boolOr(entry.Mask, false),
		ColorSegment:      boolOr(entry.ColorSegment, false),
		TwoInOneScreen:    boolOr(entry.TwoInOneScreen, false),
		AlphaBright:       floatOr(entry.AlphaBright, knobs.DefaultAlphaBright),
		FondBright:        floatOr(entry.FondBright, knobs.DefaultFondBright),
		Shadow:            boolOr(entry.Shadow, true),
		BackgroundInFront: boolOr(entry.BackgroundInFront, false),
		Camera:            boolOr(entry.Camera, false),
		Manufacturer:      NormalizeManufacturer(entry.Manufacturer),
	}

	sizes := entry.SizeVisual
	if len(sizes) == 0 {
		sizes = []geom.Size{knobs.ResolutionUp, knobs.ResolutionDown}
	}
	scale := max(knobs.SizeScale, 1)
	options.SizeVisual = make([]geom.Size, len(sizes))
	for index, size := range sizes {
		if !size.Positive() {
			errs = append(errs, fmt.Errorf("size_visual[%d] %v must be positive", index, size))
		}
		options.SizeVisual[index] = size.Scale(scale)
	}
	if len(options.SizeVisual) < len(entry.Visual) {
		errs = append(errs, fmt.Errorf("size_visual has %d sizes for %d visuals",
			len(options.SizeVisual), len(entry.Visual)))
	}

	if len(entry.TransformVisual) > 0 {
		if len(entry.TransformVisual) < len(entry.Visual) {
			errs = append(errs, fmt.Errorf("transform_visual has %d entries for %d visuals",
				len(entry.TransformVisual), len(entry.Visual)))
		}
		for index, raw := range entry.TransformVisual {
			transform, err := parseTransform(raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("transform_visual[%d]: %w", index, err))
				continue
			}
			options.Transforms = append(options.Transforms, transform)
		}
	}
	if options.Transforms == nil {
		options.Transforms = []Transform{}
	}

	if options.Console == "" {
		errs = append(errs, errors.New("console is required when no default console is configured"))
	}
	if options.AlphaBright <= 0 || options.FondBright <= 0 {
		errs = append(errs, errors.New("alpha_bright and fond_bright must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return Options{}, fmt.Errorf("title %s: %w", entry.Key, err)
	}
	return options, nil
}

func parseTransform(raw [][]int) (Transform, error) {
	if len(raw) != 2 || len(raw[0]) != 3 || len(raw[1]) != 3 {
		return Transform{}, errors.New("want [[width, cutLeft, cutRight], [height, cutTop, cutBottom]]")
	}
	transform := Transform{
		Width: raw[0][0], CutLeft: raw[0][1], CutRight: raw[0][2],
		Height: raw[1][0], CutTop: raw[1][1], CutBottom: raw[1][2],
	}
	if transform.Width <= 0 || transform.Height <= 0 {
		return Transform{}, errors.New("width and height must be positive")
	}
	if transform.Width-transform.CutLeft-transform.CutRight <= 0 ||
		transform.Height-transform.CutTop-transform.CutBottom <= 0 {
		return Transform{}, errors.New("cuts leave nothing of the image")
	}
	return transform, nil
}

// NormalizeManufacturer coerces a manifest value into a known id.
// Unknown or non-numeric values map to [ManufacturerNintendo].
func NormalizeManufacturer(value any) uint32 {
	var numeric int64
	switch typed := value.(type) {
	case int:
		numeric = int64(typed)
	case int64:
		numeric = typed
	case uint64:
		if typed > math.MaxInt64 {
			return ManufacturerNintendo
		}
		numeric = int64(typed)
	case float64:
		if typed != math.Trunc(typed) {
			return ManufacturerNintendo
		}
		numeric = int64(typed)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return ManufacturerNintendo
		}
		numeric = parsed
	default:
		return ManufacturerNintendo
	}

	if numeric < int64(ManufacturerNintendo) || numeric > int64(ManufacturerElektronika) {
		return ManufacturerNintendo
	}
	return uint32(numeric)
}

// HasBackground reports whether a background atlas is produced for
// the title. Mask titles consume their background while building the
// segment atlas instead.
func (o Options) HasBackground() bool {
	return len(o.Background) > 0 && o.Background[0] != "" && !o.Mask
}

// ScreenSizes returns the logical size of each screen, one per visual.
func (o Options) ScreenSizes() []geom.Size {
	return o.SizeVisual[:len(o.Visual)]
}

// Transform returns the crop for screen, or the identity.
func (o Options) Transform(screen int) Transform {
	if screen < len(o.Transforms) {
		return o.Transforms[screen]
	}
	return Transform{}
}

// Input is one file a title reads.
type Input struct {
	Kind string
	Path string
}

// Inputs returns every referenced file in signature order: ROM,
// melody if present, visuals, non-empty backgrounds, console.
func (o Options) Inputs() []Input {
	inputs := []Input{{Kind: "ROM", Path: o.ROM}}
	if o.Melody != "" {
		inputs = append(inputs, Input{Kind: "Melody", Path: o.Melody})
	}
	for _, path := range o.Visual {
		inputs = append(inputs, Input{Kind: "Visual", Path: path})
	}
	for _, path := range o.Background {
		if path != "" {
			inputs = append(inputs, Input{Kind: "Background", Path: path})
		}
	}
	if o.Console != "" {
		inputs = append(inputs, Input{Kind: "Console", Path: o.Console})
	}
	return inputs
}

// Missing returns a "Kind: path" line for every input that does not
// exist, in [Options.Inputs] order.
func (o Options) Missing() []string {
	var missing []string
	for _, input := range o.Inputs() {
		if _, err := os.Stat(input.Path); err != nil {
			missing = append(missing, input.Kind+": "+input.Path)
		}
	}
	return missing
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func floatOr(value *float64, fallback float64) float64 {
	if value == nil {
		return fallback
	}
	return *value
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return append([]string(nil), values...)
}
