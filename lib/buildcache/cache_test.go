// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package buildcache

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/retrovalou/yokoi/lib/clock"
	"github.com/retrovalou/yokoi/lib/codec"
	"github.com/retrovalou/yokoi/lib/compress"
	"github.com/retrovalou/yokoi/lib/config"
	"github.com/retrovalou/yokoi/lib/digest"
	"github.com/retrovalou/yokoi/lib/record"
	"github.com/retrovalou/yokoi/lib/testutil"
	"github.com/retrovalou/yokoi/lib/title"
)

// fixture is a build tree with inputs, output directories, and a cache
// directory, plus a counter of files opened for hashing.
type fixture struct {
	t        *testing.T
	root     string
	games    string
	graphics string
	cacheDir string
	knobs    config.Knobs

	mu     sync.Mutex
	opened map[string]int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DefaultConsole = filepath.Join(root, "assets", "default.png")
	knobs, err := config.Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve knobs: %v", err)
	}
	testutil.WriteFile(t, root, "assets/default.png", []byte("default console"))
	return &fixture{
		t:        t,
		root:     root,
		games:    filepath.Join(root, "games"),
		graphics: filepath.Join(root, "gfx"),
		cacheDir: filepath.Join(root, "cache"),
		knobs:    knobs,
		opened:   make(map[string]int),
	}
}

// title writes a title's inputs and returns its resolved options.
func (f *fixture) title(key string) title.Options {
	f.t.Helper()
	rom := testutil.WriteFile(f.t, f.root, "rom/"+key+".program", []byte("program "+key))
	visual := testutil.WriteFile(f.t, f.root, "svg/"+key+".svg", []byte("<svg id=\""+key+"\"/>"))
	options, err := title.Resolve(title.Entry{
		Key:    key,
		Ref:    "xx-01",
		ROM:    rom,
		Visual: []string{visual},
	}, f.knobs)
	if err != nil {
		f.t.Fatalf("Resolve %s: %v", key, err)
	}
	return options
}

// writeOutputs creates every file a build of options would leave.
func (f *fixture) writeOutputs(options title.Options) {
	f.t.Helper()
	for _, path := range ExpectedOutputs(f.games, f.graphics, options) {
		testutil.WriteFile(f.t, filepath.Dir(path), filepath.Base(path), []byte("output"))
	}
}

// cache returns a cache for a fresh run over the fixture.
func (f *fixture) cache(modify func(*Config)) *Cache {
	cfg := Config{
		Directory:   f.cacheDir,
		Enabled:     true,
		Compression: compress.Zstd,
		Knobs:       f.knobs,
		GamesDir:    f.games,
		GraphicsDir: f.graphics,
		Clock:       clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Open: func(path string) (io.ReadCloser, error) {
			f.mu.Lock()
			f.opened[path]++
			f.mu.Unlock()
			return os.Open(path)
		},
	}
	if modify != nil {
		modify(&cfg)
	}
	return New(cfg)
}

func (f *fixture) openCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened[path]
}

func (f *fixture) resetOpened() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.opened)
}

func sampleMetadata(key string) record.Metadata {
	return record.Metadata{
		SegmentPath: "romfs:/gfx/segment_" + key + ".t3x",
		Segments: []record.SegmentRecord{
			{ID: [3]uint8{0, 1, 2}, ScreenX: 12, ScreenY: 40, TexX: 1, TexY: 3, SizeX: 10, SizeY: 6},
			{ID: [3]uint8{2, 0, 1}, ScreenX: -3, ScreenY: 7, TexX: 13, TexY: 3, SizeX: 5, SizeY: 5, Color: 1},
		},
		SegmentInfo: []uint16{32, 16, 1, 0, 400, 240},
		ConsolePath: "romfs:/gfx/console_" + key + ".t3x",
		ConsoleInfo: []uint16{512, 512, 0, 272, 400, 240},
		Textures:    []string{"segment_" + key + ".png", "console_" + key + ".png"},
	}
}

func encode(t *testing.T, metadata record.Metadata) []byte {
	t.Helper()
	data, err := codec.Marshal(metadata)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return data
}

func TestHitReturnsIdenticalMetadata(t *testing.T) {
	for _, tag := range []compress.Tag{compress.None, compress.LZ4, compress.Zstd} {
		t.Run(tag.String(), func(t *testing.T) {
			f := newFixture(t)
			options := f.title("gnw_ball")
			f.writeOutputs(options)
			metadata := sampleMetadata("gnw_ball")

			first := f.cache(func(c *Config) { c.Compression = tag })
			if lookup := first.TryLoad(options); lookup.Hit || lookup.Reason != ReasonAbsent {
				t.Fatalf("first lookup = %+v, want an absent miss", lookup)
			}
			first.Store(options, metadata)

			lookup := f.cache(nil).TryLoad(options)
			if !lookup.Hit {
				t.Fatalf("second lookup missed: %+v", lookup)
			}
			if !reflect.DeepEqual(lookup.Metadata, metadata) {
				t.Errorf("metadata = %+v, want %+v", lookup.Metadata, metadata)
			}
			if !bytes.Equal(encode(t, lookup.Metadata), encode(t, metadata)) {
				t.Error("cached metadata does not encode identically")
			}
		})
	}
}

func TestContentChangeMissesOnlyThatTitle(t *testing.T) {
	f := newFixture(t)
	ball := f.title("gnw_ball")
	fire := f.title("gnw_fire")
	f.writeOutputs(ball)
	f.writeOutputs(fire)

	first := f.cache(nil)
	first.Store(ball, sampleMetadata("gnw_ball"))
	first.Store(fire, sampleMetadata("gnw_fire"))

	// Same size, different bytes, later mtime.
	original, err := os.ReadFile(ball.ROM)
	if err != nil {
		t.Fatal(err)
	}
	changed := bytes.ToUpper(original)
	if err := os.WriteFile(ball.ROM, changed, 0o644); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(ball.ROM, later, later); err != nil {
		t.Fatal(err)
	}

	second := f.cache(nil)
	lookup := second.TryLoad(ball)
	if lookup.Hit || lookup.Reason != ReasonSignature {
		t.Fatalf("changed title lookup = %+v, want a signature miss", lookup)
	}
	if len(lookup.Changes) != 1 || !strings.Contains(lookup.Changes[0], "inputs[0] changed") {
		t.Errorf("changes = %q, want one line about inputs[0]", lookup.Changes)
	}
	if lookup := second.TryLoad(fire); !lookup.Hit {
		t.Errorf("unchanged title missed: %+v", lookup)
	}
}

func TestKnobChangeMissesEveryTitle(t *testing.T) {
	f := newFixture(t)
	keys := []string{"gnw_ball", "gnw_fire", "gnw_vermin"}
	var titles []title.Options
	first := f.cache(nil)
	for _, key := range keys {
		options := f.title(key)
		f.writeOutputs(options)
		first.Store(options, sampleMetadata(key))
		titles = append(titles, options)
	}

	second := f.cache(func(c *Config) { c.Knobs.ExportDPI += 100 })
	for _, options := range titles {
		lookup := second.TryLoad(options)
		if lookup.Hit || lookup.Reason != ReasonSignature {
			t.Errorf("%s: lookup = %+v, want a signature miss", options.Key, lookup)
			continue
		}
		found := false
		for _, change := range lookup.Changes {
			if strings.HasPrefix(change, "knobs.export_dpi:") {
				found = true
			}
		}
		if !found {
			t.Errorf("%s: changes %q do not mention knobs.export_dpi", options.Key, lookup.Changes)
		}
	}
}

func TestOptionChangeIsReported(t *testing.T) {
	f := newFixture(t)
	options := f.title("gnw_ball")
	f.writeOutputs(options)
	f.cache(nil).Store(options, sampleMetadata("gnw_ball"))

	options.Camera = true
	lookup := f.cache(nil).TryLoad(options)
	if lookup.Reason != ReasonSignature {
		t.Fatalf("lookup = %+v, want a signature miss", lookup)
	}
	want := []string{"title.camera: false -> true"}
	if !reflect.DeepEqual(lookup.Changes, want) {
		t.Errorf("changes = %q, want %q", lookup.Changes, want)
	}
}

func TestHintSkipsUnchangedFiles(t *testing.T) {
	f := newFixture(t)
	options := f.title("gnw_ball")
	f.writeOutputs(options)

	f.cache(nil).Store(options, sampleMetadata("gnw_ball"))
	for _, input := range options.Inputs() {
		if got := f.openCount(input.Path); got != 1 {
			t.Errorf("first run opened %s %d times, want 1", input.Path, got)
		}
	}

	f.resetOpened()
	second := f.cache(nil)
	if lookup := second.TryLoad(options); !lookup.Hit {
		t.Fatalf("lookup missed: %+v", lookup)
	}
	for _, input := range options.Inputs() {
		if got := f.openCount(input.Path); got != 0 {
			t.Errorf("second run opened %s %d times, want 0", input.Path, got)
		}
	}

	entry, err := second.ReadEntry("gnw_ball")
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	for _, input := range entry.Signature.Inputs {
		fresh, err := digest.File(input.Path)
		if err != nil {
			t.Fatal(err)
		}
		if input.Digest != fresh {
			t.Errorf("%s: hinted digest %s differs from fresh %s", input.Path, input.Digest, fresh)
		}
	}
}

func TestHintRefreshedWhenMtimeChanges(t *testing.T) {
	f := newFixture(t)
	options := f.title("gnw_ball")
	f.writeOutputs(options)
	f.cache(nil).Store(options, sampleMetadata("gnw_ball"))

	later := time.Now().Add(2 * time.Hour)
	if err := os.Chtimes(options.ROM, later, later); err != nil {
		t.Fatal(err)
	}
	f.resetOpened()

	// Same bytes: the file is re-read but the digest and therefore the
	// signature are unchanged.
	if lookup := f.cache(nil).TryLoad(options); !lookup.Hit {
		t.Fatalf("lookup missed: %+v", lookup)
	}
	if got := f.openCount(options.ROM); got != 1 {
		t.Errorf("touched ROM opened %d times, want 1", got)
	}
	if got := f.openCount(options.Visual[0]); got != 0 {
		t.Errorf("untouched visual opened %d times, want 0", got)
	}
}

func TestMissingOutputsMiss(t *testing.T) {
	f := newFixture(t)
	options := f.title("gnw_ball")
	f.writeOutputs(options)
	f.cache(nil).Store(options, sampleMetadata("gnw_ball"))

	removed := filepath.Join(f.graphics, "console_gnw_ball.t3s")
	if err := os.Remove(removed); err != nil {
		t.Fatal(err)
	}
	lookup := f.cache(nil).TryLoad(options)
	if lookup.Reason != ReasonOutputs {
		t.Fatalf("lookup = %+v, want an outputs miss", lookup)
	}
	if !reflect.DeepEqual(lookup.MissingOutputs, []string{removed}) {
		t.Errorf("missing = %q, want %q", lookup.MissingOutputs, removed)
	}
}

func TestExpectedOutputsBackground(t *testing.T) {
	f := newFixture(t)
	options := f.title("gnw_ball")

	base := ExpectedOutputs("games", "gfx", options)
	if len(base) != 6 {
		t.Fatalf("outputs without background = %q", base)
	}

	options.Background = []string{"bg.png"}
	withBackground := ExpectedOutputs("games", "gfx", options)
	want := append(base, filepath.Join("gfx", "background_gnw_ball.png"), filepath.Join("gfx", "background_gnw_ball.t3s"))
	if !reflect.DeepEqual(withBackground, want) {
		t.Errorf("outputs = %q, want %q", withBackground, want)
	}

	options.Mask = true
	if masked := ExpectedOutputs("games", "gfx", options); len(masked) != 6 {
		t.Errorf("mask titles have no background outputs, got %q", masked)
	}
}

func TestDisabledAndClean(t *testing.T) {
	f := newFixture(t)
	options := f.title("gnw_ball")
	f.writeOutputs(options)

	disabled := f.cache(func(c *Config) { c.Enabled = false })
	disabled.Store(options, sampleMetadata("gnw_ball"))
	if lookup := disabled.TryLoad(options); lookup.Reason != ReasonDisabled {
		t.Errorf("disabled lookup = %+v", lookup)
	}
	if _, err := os.Stat(disabled.EntryPath("gnw_ball")); !os.IsNotExist(err) {
		t.Errorf("disabled cache wrote an entry: %v", err)
	}

	clean := f.cache(func(c *Config) { c.Clean = true })
	clean.Store(options, sampleMetadata("gnw_ball"))
	if lookup := clean.TryLoad(options); lookup.Reason != ReasonClean {
		t.Errorf("clean lookup = %+v", lookup)
	}
	if lookup := f.cache(nil).TryLoad(options); !lookup.Hit {
		t.Errorf("entry stored in clean mode does not hit: %+v", lookup)
	}
}

func TestCorruptEntryIsMiss(t *testing.T) {
	f := newFixture(t)
	options := f.title("gnw_ball")
	f.writeOutputs(options)
	cache := f.cache(nil)

	testutil.WriteFile(t, f.cacheDir, filepath.Base(cache.EntryPath("gnw_ball")), []byte{0x02, 0x7f, 0xde, 0xad})
	if lookup := cache.TryLoad(options); lookup.Reason != ReasonCorrupt {
		t.Fatalf("lookup = %+v, want a corrupt miss", lookup)
	}

	// A rebuild replaces the corrupt entry.
	cache.Store(options, sampleMetadata("gnw_ball"))
	if lookup := f.cache(nil).TryLoad(options); !lookup.Hit {
		t.Errorf("lookup after store = %+v", lookup)
	}
}

func TestInvalidate(t *testing.T) {
	f := newFixture(t)
	options := f.title("gnw_ball")
	f.writeOutputs(options)
	cache := f.cache(nil)
	cache.Store(options, sampleMetadata("gnw_ball"))

	cache.Invalidate("gnw_ball")
	if lookup := cache.TryLoad(options); lookup.Reason != ReasonAbsent {
		t.Errorf("lookup after invalidate = %+v", lookup)
	}
	// A second invalidate is a no-op.
	cache.Invalidate("gnw_ball")
}

func TestStoreFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	options := f.title("gnw_ball")

	// A regular file where the cache directory should be.
	blocked := testutil.WriteFile(t, f.root, "blocked", []byte("x"))
	cache := f.cache(func(c *Config) { c.Directory = blocked })
	cache.Store(options, sampleMetadata("gnw_ball"))
	if lookup := cache.TryLoad(options); lookup.Hit {
		t.Errorf("lookup hit with an unwritable cache: %+v", lookup)
	}
}

func TestEntryRecordsTimestamp(t *testing.T) {
	f := newFixture(t)
	options := f.title("gnw_ball")
	cache := f.cache(nil)
	cache.Store(options, sampleMetadata("gnw_ball"))

	entry, err := cache.ReadEntry("gnw_ball")
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix()
	if entry.WrittenAt != want {
		t.Errorf("WrittenAt = %d, want %d", entry.WrittenAt, want)
	}
	if entry.Signature.SchemaVersion != SchemaVersion || entry.Signature.Key != "gnw_ball" {
		t.Errorf("signature header = %d/%q", entry.Signature.SchemaVersion, entry.Signature.Key)
	}
	if len(entry.Hints) != len(options.Inputs()) {
		t.Errorf("stored %d hints for %d inputs", len(entry.Hints), len(options.Inputs()))
	}
}

func TestChangesAreBounded(t *testing.T) {
	stored := Signature{SchemaVersion: SchemaVersion}
	current := Signature{SchemaVersion: SchemaVersion}
	for index := range 40 {
		path := filepath.Join("in", string(rune('a'+index%26))+strings.Repeat("x", index))
		stored.Inputs = append(stored.Inputs, InputSignature{Path: path, Exists: true, Size: 1})
		current.Inputs = append(current.Inputs, InputSignature{Path: path, Exists: true, Size: 2})
	}
	if changes := describeChanges(stored, current); len(changes) != maxChanges {
		t.Errorf("got %d changes, want %d", len(changes), maxChanges)
	}
}
