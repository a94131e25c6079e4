// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/retrovalou/yokoi/lib/buildcache"
	"github.com/retrovalou/yokoi/lib/clock"
	"github.com/retrovalou/yokoi/lib/compress"
	"github.com/retrovalou/yokoi/lib/config"
	"github.com/retrovalou/yokoi/lib/geom"
	"github.com/retrovalou/yokoi/lib/imaging"
	"github.com/retrovalou/yokoi/lib/pack"
	"github.com/retrovalou/yokoi/lib/raster"
	"github.com/retrovalou/yokoi/lib/record"
	"github.com/retrovalou/yokoi/lib/testutil"
	"github.com/retrovalou/yokoi/lib/title"
)

func testKnobs() config.Knobs {
	return config.Knobs{
		Target:           "test",
		Platform:         3,
		ExportDPI:        96,
		SizeScale:        1,
		ConsoleSize:      geom.Sz(32, 32),
		ConsoleAtlasSize: geom.Sz(64, 64),
		AtlasSizes:       []int{16, 32, 64, 128},
		BackgroundSizes:  []int{64, 128},
		Pad:              1,
		Tex3DS:           true,
		TexturePrefix:    "romfs:/gfx/",
		TextureExt:       ".t3x",
	}
}

// fixture is a workspace with input files, a fake rasterizer, and run
// options pointing into a temporary directory.
type fixture struct {
	t       *testing.T
	inputs  string
	console string
	raster  *raster.Fake
	clock   *clock.FakeClock
	options Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	inputs := filepath.Join(root, "inputs")
	f := &fixture{
		t:       t,
		inputs:  inputs,
		console: testutil.WritePNG(t, inputs, "console.png", solid(48, 48, color.RGBA{R: 40, G: 80, B: 120, A: 255})),
		raster:  &raster.Fake{Layers: make(map[string]map[string]image.Image)},
		clock:   clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	paths := Paths{
		Games:        filepath.Join(root, "games"),
		Graphics:     filepath.Join(root, "graphics"),
		GlobalHeader: filepath.Join(root, "games", "GW_ALL.h"),
		PackDir:      filepath.Join(root, "pack"),
		Work:         filepath.Join(root, "work"),
	}
	f.options = Options{
		Knobs: testKnobs(),
		Paths: paths,
		Pack: PackSettings{
			Name:           "roms",
			FormatVersion:  pack.FormatV3,
			ContentVersion: 7,
			EmbedTextures:  true,
			IncludeDir:     "gw",
		},
		Rasterizer: f.raster,
		Workers:    2,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:      f.clock,
	}
	f.options.Cache = f.cache(filepath.Join(root, "cache"), true)
	return f
}

func (f *fixture) cache(directory string, enabled bool) *buildcache.Cache {
	return buildcache.New(buildcache.Config{
		Directory:   directory,
		Enabled:     enabled,
		Compression: compress.Zstd,
		Knobs:       f.options.Knobs,
		GamesDir:    f.options.Paths.Games,
		GraphicsDir: f.options.Paths.Graphics,
		Clock:       f.clock,
		Logger:      f.options.Logger,
	})
}

// addTitle writes a title's ROM and artwork, registers two layers for
// its artwork with the fake rasterizer, and appends it to the run.
func (f *fixture) addTitle(key string, mutate func(*title.Options)) title.Options {
	f.t.Helper()
	visual := testutil.WriteFile(f.t, f.inputs, key+".svg", []byte("<svg id=\""+key+"\"/>"))
	options := title.Options{
		Key:         key,
		Ref:         strings.ToUpper(key) + "_01",
		DisplayName: strings.ToUpper(key[:1]) + key[1:],
		Date:        "1980-04-28",
		ROM:         testutil.WriteFile(f.t, f.inputs, key+".rom", []byte{0xC0, 0xFF, 0xEE, byte(len(key))}),
		Visual:      []string{visual},
		Console:     f.console,
		AlphaBright: config.DefaultAlphaBright,
		FondBright:  config.DefaultFondBright,
		Shadow:      true,
		SizeVisual:  []geom.Size{geom.Sz(32, 32)},
	}
	f.raster.Layers[visual] = map[string]image.Image{
		raster.LayerName([3]uint8{1, 2, 3}, 0, false, 0): testutil.Layer(64, 64, image.Rect(8, 8, 24, 20)),
		raster.LayerName([3]uint8{1, 3, 0}, 0, false, 0): testutil.Layer(64, 64, image.Rect(40, 30, 56, 40)),
	}
	if mutate != nil {
		mutate(&options)
	}
	f.options.Titles = append(f.options.Titles, options)
	return options
}

func (f *fixture) run() (*Report, error) {
	return Run(context.Background(), f.options)
}

func (f *fixture) decodePack(path string) *pack.Pack {
	f.t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		f.t.Fatalf("reading pack: %v", err)
	}
	decoded, err := pack.Decode(data)
	if err != nil {
		f.t.Fatalf("decoding pack: %v", err)
	}
	return decoded
}

func solid(width, height int, fill color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetRGBA(x, y, fill)
		}
	}
	return img
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestRunBuildsPack(t *testing.T) {
	f := newFixture(t)
	ball := f.addTitle("ball", nil)
	f.addTitle("vermin", nil)

	report, err := f.run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := report.Count(StatusBuilt); got != 2 {
		t.Fatalf("built = %d, want 2 (%+v)", got, report.Titles)
	}

	decoded := f.decodePack(report.PackPath)
	if decoded.Header != (pack.Header{FormatVersion: pack.FormatV3, Platform: 3, ContentVersion: 7}) {
		t.Errorf("header = %+v", decoded.Header)
	}
	if len(decoded.Games) != 2 {
		t.Fatalf("pack has %d games, want 2", len(decoded.Games))
	}
	game := decoded.Games[0]
	if game.Name != "Ball" || game.Ref != "BALL_01" || game.Date != "1980-04-28" {
		t.Errorf("game names = %q %q %q", game.Name, game.Ref, game.Date)
	}
	rom, _ := os.ReadFile(ball.ROM)
	if !bytes.Equal(game.ROM, rom) {
		t.Errorf("rom = %x, want %x", game.ROM, rom)
	}
	if len(game.Segments) != 2 {
		t.Errorf("segments = %d, want 2", len(game.Segments))
	}
	if game.SegmentPath != "romfs:/gfx/segment_ball.t3x" {
		t.Errorf("segment path = %q", game.SegmentPath)
	}
	if game.ConsolePath != "romfs:/gfx/console_ball.t3x" {
		t.Errorf("console path = %q", game.ConsolePath)
	}
	if game.BackgroundPath != "" {
		t.Errorf("background path = %q, want empty", game.BackgroundPath)
	}
	if len(game.SegmentInfo) != 6 || game.SegmentInfo[4] != 32 || game.SegmentInfo[5] != 32 {
		t.Errorf("segment info = %v", game.SegmentInfo)
	}
	if want := []uint16{64, 64, 0, 0, 32, 32, 1, 0, 0}; !reflect.DeepEqual(game.BackgroundInfo, want) {
		t.Errorf("background info = %v, want %v", game.BackgroundInfo, want)
	}
	if len(game.ConsoleInfo) != 6 || game.ConsoleInfo[0] != 64 || game.ConsoleInfo[1] != 64 {
		t.Errorf("console info = %v", game.ConsoleInfo)
	}

	if report.SharedFiles != 4 || len(decoded.Files) != 4 {
		t.Errorf("shared files = %d (pack has %d), want 4", report.SharedFiles, len(decoded.Files))
	}
	if len(decoded.Files) > 0 && decoded.Files[0].Name != "segment_ball.png" {
		t.Errorf("first shared file = %q", decoded.Files[0].Name)
	}
	if want := filepath.Join(f.options.Paths.PackDir, "roms.v3-c7.ykp"); report.VersionedPackPath != want {
		t.Errorf("versioned pack = %q, want %q", report.VersionedPackPath, want)
	}
	versioned := readFile(t, report.VersionedPackPath)
	if versioned != readFile(t, report.PackPath) {
		t.Error("versioned and canonical packs differ")
	}

	header := readFile(t, f.options.Paths.GlobalHeader)
	for _, want := range []string{
		`#include "gw/ball.h"`,
		"extern const GW_rom vermin;",
		"GW_list[] = { &ball, &vermin };",
		"nb_games = 2;",
	} {
		if !strings.Contains(header, want) {
			t.Errorf("global header lacks %q:\n%s", want, header)
		}
	}

	source := readFile(t, filepath.Join(f.options.Paths.Games, "ball.cpp"))
	if !strings.Contains(source, "const uint8_t rom_GW_ball[] = {\n\t0xC0, 0xFF, 0xEE, 0x04\n};") {
		t.Errorf("ball.cpp lacks the ROM array:\n%s", source)
	}
	descriptor := readFile(t, filepath.Join(f.options.Paths.Graphics, "segment_ball.t3s"))
	if descriptor != "-f a8 -z none\nsegment_ball.png" {
		t.Errorf("segment descriptor = %q", descriptor)
	}
	if requests := f.raster.Requests(); len(requests) != 2 || requests[0].DPI != 96 {
		t.Errorf("rasterizer requests = %+v", requests)
	}
}

func TestRunReusesCache(t *testing.T) {
	f := newFixture(t)
	f.addTitle("ball", nil)
	f.addTitle("vermin", nil)

	first, err := f.run()
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	firstPack := readFile(t, first.PackPath)

	second, err := f.run()
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if got := second.Count(StatusCached); got != 2 {
		t.Fatalf("cached = %d, want 2 (%+v)", got, second.Titles)
	}
	if got := len(f.raster.Requests()); got != 2 {
		t.Errorf("rasterizer saw %d requests over both runs, want 2", got)
	}
	if readFile(t, second.PackPath) != firstPack {
		t.Error("pack changed between a build and a fully cached rebuild")
	}
	if !reflect.DeepEqual(second.Titles[0].Metadata, first.Titles[0].Metadata) {
		t.Errorf("cached metadata differs:\n got %+v\nwant %+v", second.Titles[0].Metadata, first.Titles[0].Metadata)
	}
}

func TestRunRebuildsChangedTitle(t *testing.T) {
	f := newFixture(t)
	ball := f.addTitle("ball", nil)
	f.addTitle("vermin", nil)
	if _, err := f.run(); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	testutil.WriteFile(t, f.inputs, "ball.rom", []byte{0x01, 0x02})
	report, err := f.run()
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.Titles[0].Status != StatusBuilt || report.Titles[0].Cache.Reason != buildcache.ReasonSignature {
		t.Errorf("ball = %s (%s), want rebuilt on a signature change", report.Titles[0].Status, report.Titles[0].Cache.Reason)
	}
	if report.Titles[1].Status != StatusCached {
		t.Errorf("vermin = %s, want cached", report.Titles[1].Status)
	}
	game := f.decodePack(report.PackPath).Games[0]
	if !bytes.Equal(game.ROM, []byte{0x01, 0x02}) {
		t.Errorf("pack rom for %s = %x", ball.Key, game.ROM)
	}
}

func TestRunMissingInputFailsSoft(t *testing.T) {
	f := newFixture(t)
	f.addTitle("ball", nil)
	missingROM := filepath.Join(f.inputs, "absent.rom")
	f.addTitle("vermin", func(options *title.Options) { options.ROM = missingROM })

	report, err := f.run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Key != "vermin" {
		t.Fatalf("failed = %+v, want vermin only", failed)
	}
	if !errors.Is(failed[0].Err, ErrMissingInput) {
		t.Errorf("error = %v, want ErrMissingInput", failed[0].Err)
	}
	if want := []string{"ROM: " + missingROM}; !reflect.DeepEqual(failed[0].Missing, want) {
		t.Errorf("missing = %v, want %v", failed[0].Missing, want)
	}

	if games := f.decodePack(report.PackPath).Games; len(games) != 1 || games[0].Name != "Ball" {
		t.Errorf("pack games = %d, want Ball only", len(games))
	}
	if header := readFile(t, f.options.Paths.GlobalHeader); strings.Contains(header, "vermin") {
		t.Errorf("global header lists a failed title:\n%s", header)
	}
	if _, err := os.Stat(filepath.Join(f.options.Paths.Games, "vermin.cpp")); !os.IsNotExist(err) {
		t.Errorf("vermin.cpp exists after a failed build (stat error %v)", err)
	}
}

func TestRunNothingBuilt(t *testing.T) {
	f := newFixture(t)
	f.addTitle("ball", func(options *title.Options) { options.ROM = filepath.Join(f.inputs, "absent.rom") })

	report, err := f.run()
	if !errors.Is(err, ErrNoTitles) {
		t.Fatalf("Run error = %v, want ErrNoTitles", err)
	}
	if report == nil || report.Count(StatusFailed) != 1 {
		t.Fatalf("report = %+v, want one failed title", report)
	}
	for _, path := range []string{
		filepath.Join(f.options.Paths.PackDir, "roms.ykp"),
		f.options.Paths.GlobalHeader,
	} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s exists after a run with no titles (stat error %v)", path, err)
		}
	}
}

func TestRunRasterizerFailure(t *testing.T) {
	f := newFixture(t)
	f.addTitle("ball", nil)
	vermin := f.addTitle("vermin", nil)
	delete(f.raster.Layers, vermin.Visual[0])

	report, err := f.run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result := report.Titles[1]
	if result.Status != StatusFailed || !errors.Is(result.Err, raster.ErrToolFailed) {
		t.Errorf("vermin = %s (%v), want failed with ErrToolFailed", result.Status, result.Err)
	}
	if report.Titles[0].Status != StatusBuilt {
		t.Errorf("ball = %s, want built", report.Titles[0].Status)
	}
}

func TestRunScreenWithoutLayers(t *testing.T) {
	f := newFixture(t)
	ball := f.addTitle("ball", nil)
	f.raster.Layers[ball.Visual[0]] = map[string]image.Image{}

	report, err := f.run()
	if !errors.Is(err, ErrNoTitles) {
		t.Fatalf("Run error = %v, want ErrNoTitles", err)
	}
	if !errors.Is(report.Titles[0].Err, ErrNoScreens) {
		t.Errorf("title error = %v, want ErrNoScreens", report.Titles[0].Err)
	}
}

func TestRunOnly(t *testing.T) {
	f := newFixture(t)
	f.addTitle("ball", nil)
	f.addTitle("vermin", nil)
	f.options.Cache = f.cache(filepath.Join(t.TempDir(), "cache"), false)
	f.options.Only = "vermin"

	report, err := f.run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Titles[0].Status != StatusSkipped || report.Titles[1].Status != StatusBuilt {
		t.Errorf("statuses = %s, %s; want skipped, built", report.Titles[0].Status, report.Titles[1].Status)
	}
	if games := f.decodePack(report.PackPath).Games; len(games) != 1 || games[0].Name != "Vermin" {
		t.Errorf("pack has %d games, want Vermin only", len(games))
	}
	if got := len(f.raster.Requests()); got != 1 {
		t.Errorf("rasterizer saw %d requests, want 1", got)
	}
}

func TestRunOnlyTakesOthersFromCache(t *testing.T) {
	f := newFixture(t)
	f.addTitle("ball", nil)
	f.addTitle("vermin", nil)
	if _, err := f.run(); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	f.options.Only = "ball"
	report, err := f.run()
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.Count(StatusCached) != 2 {
		t.Errorf("statuses = %+v, want both cached", report.Titles)
	}
	if games := f.decodePack(report.PackPath).Games; len(games) != 2 {
		t.Errorf("pack has %d games, want 2", len(games))
	}
}

func TestRunUnknownOnly(t *testing.T) {
	f := newFixture(t)
	f.addTitle("ball", nil)
	f.options.Only = "tron"
	if _, err := f.run(); !errors.Is(err, ErrUnknownTitle) {
		t.Errorf("Run error = %v, want ErrUnknownTitle", err)
	}
}

func TestRunLocked(t *testing.T) {
	f := newFixture(t)
	f.addTitle("ball", nil)

	release, err := lockDirectory(f.options.Paths.PackDir)
	if err != nil {
		t.Fatalf("lockDirectory: %v", err)
	}
	if _, err := f.run(); !errors.Is(err, ErrLocked) {
		t.Errorf("Run error = %v, want ErrLocked", err)
	}
	release()

	if _, err := f.run(); err != nil {
		t.Errorf("Run after release: %v", err)
	}
}

func TestRunCleanRemovesStaleOutputs(t *testing.T) {
	f := newFixture(t)
	ball := f.addTitle("ball", func(options *title.Options) {
		options.Background = []string{testutil.WritePNG(t, t.TempDir(), "bg.png", solid(64, 64, color.RGBA{R: 200, G: 200, B: 200, A: 255}))}
	})
	if _, err := f.run(); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	stale := filepath.Join(f.options.Paths.Graphics, "background_ball.png")
	if _, err := os.Stat(stale); err != nil {
		t.Fatalf("background texture not written: %v", err)
	}

	f.options.Titles[0].Background = nil
	f.options.Clean = true
	report, err := f.run()
	if err != nil {
		t.Fatalf("clean Run: %v", err)
	}
	if report.Titles[0].Status != StatusBuilt {
		t.Errorf("%s = %s, want built", ball.Key, report.Titles[0].Status)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale background texture survived a clean build (stat error %v)", err)
	}
}

func TestRunBackgroundTitle(t *testing.T) {
	f := newFixture(t)
	f.addTitle("ball", func(options *title.Options) {
		options.Background = []string{testutil.WritePNG(t, f.inputs, "ball_bg.png", solid(64, 64, color.RGBA{R: 200, G: 200, B: 200, A: 255}))}
		options.Camera = true
	})

	report, err := f.run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	metadata := report.Titles[0].Metadata
	if metadata.BackgroundPath != "romfs:/gfx/background_ball.t3x" {
		t.Errorf("background path = %q", metadata.BackgroundPath)
	}
	want := []string{"segment_ball.png", "background_ball.png", "console_ball.png"}
	if !reflect.DeepEqual(metadata.Textures, want) {
		t.Errorf("textures = %v, want %v", metadata.Textures, want)
	}
	// A 32x32 image at (1, 1) in a 64x64 atlas sits 31 rows above the
	// bottom edge.
	if want := []uint16{64, 64, 1, 31, 32, 32, 1, 0, 1}; !reflect.DeepEqual(metadata.BackgroundInfo, want) {
		t.Errorf("background info = %v, want %v", metadata.BackgroundInfo, want)
	}

	texture, err := imaging.Load(filepath.Join(f.options.Paths.Graphics, "background_ball.png"))
	if err != nil {
		t.Fatalf("loading background texture: %v", err)
	}
	if size := texture.Bounds().Size(); size != image.Pt(64, 64) {
		t.Errorf("background texture is %v, want 64x64", size)
	}
	if descriptor := readFile(t, filepath.Join(f.options.Paths.Graphics, "background_ball.t3s")); !strings.HasPrefix(descriptor, "-f RGBA8") {
		t.Errorf("background descriptor = %q", descriptor)
	}
}

func TestRunMaskTitle(t *testing.T) {
	f := newFixture(t)
	f.addTitle("ball", func(options *title.Options) {
		options.Background = []string{testutil.WritePNG(t, f.inputs, "ball_mask.png", solid(64, 64, color.RGBA{R: 255, A: 255}))}
		options.Mask = true
	})

	report, err := f.run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	metadata := report.Titles[0].Metadata
	if metadata.BackgroundPath != "" || len(metadata.Textures) != 2 {
		t.Errorf("mask title has background %q and textures %v", metadata.BackgroundPath, metadata.Textures)
	}
	if metadata.SegmentInfo[3]&record.FlagMask == 0 {
		t.Errorf("segment flags = %#x, want the mask bit", metadata.SegmentInfo[3])
	}
	if descriptor := readFile(t, filepath.Join(f.options.Paths.Graphics, "segment_ball.t3s")); !strings.HasPrefix(descriptor, "-f rgba8") {
		t.Errorf("segment descriptor = %q", descriptor)
	}

	texture, err := imaging.Load(filepath.Join(f.options.Paths.Graphics, "segment_ball.png"))
	if err != nil {
		t.Fatalf("loading segment texture: %v", err)
	}
	bounds := texture.Bounds()
	tinted := false
	for y := bounds.Min.Y; y < bounds.Max.Y && !tinted; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			pixel := color.NRGBAModel.Convert(texture.At(x, y)).(color.NRGBA)
			if pixel.A > 200 && pixel.R > 200 && pixel.G < 50 && pixel.B < 50 {
				tinted = true
				break
			}
		}
	}
	if !tinted {
		t.Error("no opaque segment pixel took the mask color")
	}
}
