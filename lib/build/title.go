// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/retrovalou/yokoi/lib/atlas"
	"github.com/retrovalou/yokoi/lib/atomicfile"
	"github.com/retrovalou/yokoi/lib/clock"
	"github.com/retrovalou/yokoi/lib/geom"
	"github.com/retrovalou/yokoi/lib/imaging"
	"github.com/retrovalou/yokoi/lib/raster"
	"github.com/retrovalou/yokoi/lib/record"
	"github.com/retrovalou/yokoi/lib/title"
)

// titleBuilder builds single titles. It holds no per-title state and
// is shared by all workers.
type titleBuilder struct {
	options Options
	logger  *slog.Logger
}

// fromCache resolves a title that was not selected for rebuilding.
func (b *titleBuilder) fromCache(options title.Options) TitleResult {
	lookup := b.options.Cache.TryLoad(options)
	if !lookup.Hit {
		return TitleResult{Key: options.Key, Status: StatusSkipped, Cache: lookup}
	}
	return TitleResult{Key: options.Key, Status: StatusCached, Cache: lookup, Metadata: lookup.Metadata}
}

func (b *titleBuilder) build(ctx context.Context, options title.Options) TitleResult {
	started := b.options.Clock.Now()
	result := b.run(ctx, options)
	result.Key = options.Key
	result.Duration = clock.Since(b.options.Clock, started)
	return result
}

func (b *titleBuilder) run(ctx context.Context, options title.Options) TitleResult {
	logger := b.logger.With("key", options.Key)

	if missing := options.Missing(); len(missing) > 0 {
		return TitleResult{
			Status:  StatusFailed,
			Err:     fmt.Errorf("%w: %s", ErrMissingInput, strings.Join(missing, ", ")),
			Missing: missing,
		}
	}

	lookup := b.options.Cache.TryLoad(options)
	if lookup.Hit {
		logger.Debug("title from cache")
		return TitleResult{Status: StatusCached, Cache: lookup, Metadata: lookup.Metadata}
	}

	if b.options.Clean {
		b.removeOutputs(options.Key)
	}
	metadata, err := b.compile(ctx, options)
	if err != nil {
		return TitleResult{Status: StatusFailed, Cache: lookup, Err: err}
	}
	logger.Info("title built", "segments", len(metadata.Segments), "cache", string(lookup.Reason))
	return TitleResult{Status: StatusBuilt, Cache: lookup, Metadata: metadata}
}

// compile produces a title's textures, descriptors, and sources, and
// returns its pack metadata.
func (b *titleBuilder) compile(ctx context.Context, options title.Options) (record.Metadata, error) {
	knobs := b.options.Knobs
	key := options.Key
	addressing := record.Addressing{Prefix: knobs.TexturePrefix, Ext: knobs.TextureExt}

	tiles, images, screens, err := b.segments(ctx, options)
	if err != nil {
		return record.Metadata{}, err
	}

	placement, err := atlas.Pack(record.Rects(tiles, knobs.Pad), knobs.AtlasSizes)
	if err != nil {
		return record.Metadata{}, fmt.Errorf("segment atlas: %w", err)
	}
	segments, segmentInfo, err := record.EncodeSegments(placement, tiles, knobs.Pad, screens,
		record.SegmentFlags(options.Mask, options.TwoInOneScreen))
	if err != nil {
		return record.Metadata{}, err
	}
	pieces := make([]imaging.Piece, len(tiles))
	for index, tile := range tiles {
		position := placement.Positions[tile.Name]
		pieces[index] = imaging.Piece{
			Image: images[index],
			At:    image.Pt(position.X+knobs.Pad, position.Y+knobs.Pad),
		}
	}
	if err := b.writeTexture(record.KindSegment, key, options.Mask, geom.Sz(placement.Width, placement.Height), pieces); err != nil {
		return record.Metadata{}, err
	}

	metadata := record.Metadata{
		SegmentPath: addressing.TexturePath(record.KindSegment, key),
		Segments:    segments,
		SegmentInfo: segmentInfo,
		Textures:    []string{record.TextureFile(record.KindSegment, key)},
	}

	if err := b.background(options, screens, &metadata); err != nil {
		return record.Metadata{}, err
	}
	if err := b.console(options, &metadata); err != nil {
		return record.Metadata{}, err
	}
	metadata.ConsolePath = addressing.TexturePath(record.KindConsole, key)
	metadata.Textures = append(metadata.Textures, record.TextureFile(record.KindConsole, key))

	if err := b.writeSources(options, metadata); err != nil {
		return record.Metadata{}, err
	}
	return metadata, nil
}

// segments rasterizes the title's artwork and turns every layer into a
// tile. It returns the tiles and their images in layer order, and the
// transformed size of each screen.
func (b *titleBuilder) segments(ctx context.Context, options title.Options) ([]record.Tile, []*image.NRGBA, []geom.Size, error) {
	knobs := b.options.Knobs
	layerDir := filepath.Join(b.options.Paths.Work, options.Key)
	if err := os.RemoveAll(layerDir); err != nil {
		return nil, nil, nil, fmt.Errorf("clearing layers: %w", err)
	}

	requests := make([]raster.Request, len(options.Visual))
	for screen, input := range options.Visual {
		requests[screen] = raster.Request{Input: input, Screen: screen, DPI: knobs.ExportDPI, Output: layerDir}
	}
	if err := b.options.Rasterizer.Rasterize(ctx, requests); err != nil {
		return nil, nil, nil, err
	}
	layers, err := raster.ReadLayers(layerDir)
	if err != nil {
		return nil, nil, nil, err
	}

	sizes := options.ScreenSizes()
	screens := make([]geom.Size, len(options.Visual))
	var tiles []record.Tile
	var images []*image.NRGBA
	var mask *image.NRGBA

	for _, layer := range layers {
		if layer.Screen >= len(options.Visual) {
			return nil, nil, nil, fmt.Errorf("layer %s is for screen %d, title has %d", layer.Name, layer.Screen, len(options.Visual))
		}
		source, err := imaging.Load(layer.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		segment, err := imaging.PrepareSegment(source, segmentFit(options, layer.Screen, sizes[layer.Screen]))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("layer %s: %w", layer.Name, err)
		}

		if screens[layer.Screen] == (geom.Size{}) {
			screens[layer.Screen] = segment.Screen
			mask = nil
			if options.Mask {
				if mask, err = b.maskImage(options, layer.Screen, segment.Screen); err != nil {
					return nil, nil, nil, err
				}
			}
		}
		if mask != nil {
			imaging.Tint(segment.Image, mask, segment.Origin)
		}

		bounds := segment.Image.Bounds()
		tile := record.Tile{
			Name:    layer.Name,
			ID:      layer.ID,
			Screen:  uint8(layer.Screen),
			ScreenX: segment.Screen.Width - segment.Origin.X - bounds.Dx(),
			ScreenY: segment.Origin.Y,
			Width:   bounds.Dx(),
			Height:  bounds.Dy(),
		}
		if options.ColorSegment {
			tile.Color = layer.Color
		}
		tiles = append(tiles, tile)
		images = append(images, segment.Image)
	}

	for screen, size := range screens {
		if size == (geom.Size{}) {
			return nil, nil, nil, fmt.Errorf("%w: screen %d (%s)", ErrNoScreens, screen, options.Visual[screen])
		}
	}
	return tiles, images, screens, nil
}

// segmentFit is the transform applied to every layer of a screen.
func segmentFit(options title.Options, screen int, size geom.Size) imaging.Fit {
	fit := imaging.Fit{
		Size:      size,
		KeepRatio: true,
		Mirror:    true,
		Rotate:    options.Rotate,
		Sharpen:   true,
	}
	if transform := options.Transform(screen); !transform.Identity() {
		keptWidth := transform.Width - transform.CutLeft - transform.CutRight
		keptHeight := transform.Height - transform.CutTop - transform.CutBottom
		fit.Ratio = float64(keptWidth) / float64(keptHeight)
		fit.Crop = imaging.Crop{
			Left:   float64(transform.CutLeft) / float64(transform.Width),
			Right:  float64(transform.CutRight) / float64(transform.Width),
			Top:    float64(transform.CutTop) / float64(transform.Height),
			Bottom: float64(transform.CutBottom) / float64(transform.Height),
		}
	}
	return fit
}

func (b *titleBuilder) maskImage(options title.Options, screen int, size geom.Size) (*image.NRGBA, error) {
	if screen >= len(options.Background) || options.Background[screen] == "" {
		return nil, fmt.Errorf("mask title has no background for screen %d", screen)
	}
	photo, err := imaging.Load(options.Background[screen])
	if err != nil {
		return nil, err
	}
	return imaging.PrepareMask(photo, size, options.Rotate, options.FondBright)
}

// background fills in the background fields of metadata, writing the
// background texture when the title has one.
func (b *titleBuilder) background(options title.Options, screens []geom.Size, metadata *record.Metadata) error {
	knobs := b.options.Knobs
	sizes := append([]geom.Size(nil), screens...)
	if options.TwoInOneScreen && len(sizes) > 1 {
		sizes[0] = sizes[1]
	}
	flags := record.BackgroundFlags{
		Shadow:  options.Shadow,
		InFront: options.BackgroundInFront,
		Camera:  options.Camera,
	}

	if !options.HasBackground() {
		info, err := record.EncodeBackground(record.LayoutBackground(sizes, knobs.BackgroundSizes), nil, sizes, flags)
		if err != nil {
			return err
		}
		metadata.BackgroundInfo = info
		return nil
	}

	count := min(len(options.Background), len(sizes))
	photos := make([]*image.NRGBA, count)
	placed := make([]geom.Size, count)
	for index := range count {
		photo, err := imaging.Load(options.Background[index])
		if err != nil {
			return err
		}
		photos[index], err = imaging.PrepareBackground(photo, sizes[index], options.Rotate, options.FondBright, options.AlphaBright)
		if err != nil {
			return fmt.Errorf("background %d: %w", index, err)
		}
		bounds := photos[index].Bounds()
		placed[index] = geom.Sz(bounds.Dx(), bounds.Dy())
	}

	layout := record.LayoutBackground(placed, knobs.BackgroundSizes)
	info, err := record.EncodeBackground(layout, placed, sizes, flags)
	if err != nil {
		return err
	}
	pieces := make([]imaging.Piece, count)
	for index := range count {
		pieces[index] = imaging.Piece{
			Image: photos[index],
			At:    image.Pt(layout.Positions[index].X, layout.Positions[index].Y),
		}
	}
	if err := b.writeTexture(record.KindBackground, options.Key, false, layout.Atlas, pieces); err != nil {
		return err
	}

	addressing := record.Addressing{Prefix: knobs.TexturePrefix, Ext: knobs.TextureExt}
	metadata.BackgroundPath = addressing.TexturePath(record.KindBackground, options.Key)
	metadata.BackgroundInfo = info
	metadata.Textures = append(metadata.Textures, record.TextureFile(record.KindBackground, options.Key))
	return nil
}

func (b *titleBuilder) console(options title.Options, metadata *record.Metadata) error {
	knobs := b.options.Knobs
	if options.Console == "" {
		return fmt.Errorf("%w: no console photo", ErrMissingInput)
	}
	photo, err := imaging.Load(options.Console)
	if err != nil {
		return err
	}
	scaled, err := imaging.PrepareConsole(photo, knobs.ConsoleSize)
	if err != nil {
		return fmt.Errorf("console: %w", err)
	}
	bounds := scaled.Bounds()
	info, err := record.EncodeConsole(knobs.ConsoleAtlasSize, geom.Sz(bounds.Dx(), bounds.Dy()))
	if err != nil {
		return err
	}
	if err := b.writeTexture(record.KindConsole, options.Key, false, knobs.ConsoleAtlasSize, []imaging.Piece{{Image: scaled}}); err != nil {
		return err
	}
	metadata.ConsoleInfo = info
	return nil
}

// writeTexture composes an atlas and writes it with its descriptor.
func (b *titleBuilder) writeTexture(kind, key string, mask bool, size geom.Size, pieces []imaging.Piece) error {
	canvas, err := imaging.Compose(size, pieces)
	if err != nil {
		return fmt.Errorf("%s atlas: %w", kind, err)
	}
	data, err := imaging.EncodePNG(canvas)
	if err != nil {
		return err
	}
	graphics := b.options.Paths.Graphics
	if err := atomicfile.WriteFile(filepath.Join(graphics, record.TextureFile(kind, key)), data, 0o644); err != nil {
		return err
	}
	descriptor := record.Descriptor(kind, key, b.options.Knobs.Tex3DS, mask)
	return atomicfile.WriteFile(filepath.Join(graphics, record.DescriptorFile(kind, key)), []byte(descriptor), 0o644)
}

func (b *titleBuilder) writeSources(options title.Options, metadata record.Metadata) error {
	source := titleSource{Options: options, Metadata: metadata}
	var err error
	if source.ROM, err = os.ReadFile(options.ROM); err != nil {
		return err
	}
	if options.Melody != "" {
		if source.Melody, err = os.ReadFile(options.Melody); err != nil {
			return err
		}
	}

	cpp, err := renderTitleSource(source)
	if err != nil {
		return err
	}
	header, err := renderTitleHeader(options.Key)
	if err != nil {
		return err
	}
	games := b.options.Paths.Games
	if err := atomicfile.WriteFile(filepath.Join(games, options.Key+".cpp"), cpp, 0o644); err != nil {
		return err
	}
	return atomicfile.WriteFile(filepath.Join(games, options.Key+".h"), header, 0o644)
}

// removeOutputs deletes every file a previous build of key left.
func (b *titleBuilder) removeOutputs(key string) {
	paths := []string{
		filepath.Join(b.options.Paths.Games, key+".cpp"),
		filepath.Join(b.options.Paths.Games, key+".h"),
	}
	for _, kind := range []string{record.KindSegment, record.KindBackground, record.KindConsole} {
		paths = append(paths,
			filepath.Join(b.options.Paths.Graphics, record.TextureFile(kind, key)),
			filepath.Join(b.options.Paths.Graphics, record.DescriptorFile(kind, key)))
	}
	for _, path := range paths {
		if err := os.Remove(path); err == nil {
			b.logger.Debug("removed previous output", "path", path)
		}
	}
}
