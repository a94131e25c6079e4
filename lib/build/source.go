// Copyright 2026 The Yokoi Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/retrovalou/yokoi/lib/atomicfile"
	"github.com/retrovalou/yokoi/lib/record"
	"github.com/retrovalou/yokoi/lib/title"
)

var sourceFuncs = template.FuncMap{
	"bytes":   cBytes,
	"values":  cValues,
	"quote":   cString,
	"listRef": func(keys []string) string { return "&" + strings.Join(keys, ", &") },
}

var titleSourceTemplate = template.Must(template.New("title.cpp").Funcs(sourceFuncs).Parse(`
#include <cstdint>
#include <string>
#include <vector>

#include "segment.h"
#include "GW_ROM.h"
#include "{{.Key}}.h"

const uint8_t rom_GW_{{.Key}}[] = {
	{{bytes .ROM}}
};
const size_t size_rom_GW_{{.Key}} = sizeof(rom_GW_{{.Key}})/sizeof(rom_GW_{{.Key}}[0]);
{{if .Melody}}
const uint8_t melody_GW_{{.Key}}[] = {
	{{bytes .Melody}}
};
const size_t size_melody_GW_{{.Key}} = sizeof(melody_GW_{{.Key}})/sizeof(melody_GW_{{.Key}}[0]);
{{else}}
const uint8_t melody_GW_{{.Key}}[1] = {0};
const size_t size_melody_GW_{{.Key}} = 0;
{{end}}
const std::string path_segment_{{.Key}} = {{quote .Metadata.SegmentPath}};

const Segment segment_GW_{{.Key}}[] = {
{{- range .Metadata.Segments}}
	{ { {{index .ID 0}},{{index .ID 1}},{{index .ID 2}} }, { {{.ScreenX}},{{.ScreenY}} }, { {{.TexX}},{{.TexY}} }, { {{.SizeX}},{{.SizeY}} }, {{.Color}}, {{.Screen}}, false, false, 0 },
{{- end}}
};
const size_t size_segment_GW_{{.Key}} = sizeof(segment_GW_{{.Key}})/sizeof(segment_GW_{{.Key}}[0]);
const uint16_t segment_info_{{.Key}}[] = { {{values .Metadata.SegmentInfo}} };

const std::string path_background_{{.Key}} = {{quote .Metadata.BackgroundPath}};
const uint16_t background_info_{{.Key}}[] = { {{values .Metadata.BackgroundInfo}} };

const std::string path_console_{{.Key}} = {{quote .Metadata.ConsolePath}};
const uint16_t console_info_{{.Key}}[] = { {{values .Metadata.ConsoleInfo}} };

const GW_rom {{.Key}} (
    {{quote .DisplayName}}, {{quote .Ref}}, {{quote .Date}}
    , rom_GW_{{.Key}}, size_rom_GW_{{.Key}}
    , melody_GW_{{.Key}}, size_melody_GW_{{.Key}}
    , path_segment_{{.Key}}
    , segment_GW_{{.Key}}, size_segment_GW_{{.Key}}
    , segment_info_{{.Key}}
    , path_background_{{.Key}}
    , background_info_{{.Key}}
    , path_console_{{.Key}}
    , console_info_{{.Key}}
);
`))

var titleHeaderTemplate = template.Must(template.New("title.h").Parse(`
#pragma once
#include "GW_ROM.h"

extern const GW_rom {{.Key}};
`))

var globalHeaderTemplate = template.Must(template.New("global.h").Funcs(sourceFuncs).Parse(`
#pragma once

{{range .Keys}}#include "{{$.IncludeDir}}/{{.}}.h"
extern const GW_rom {{.}};
{{end}}
const GW_rom* GW_list[] = { {{listRef .Keys}} };
const size_t nb_games = {{len .Keys}};
`))

// titleSource is the data behind a title's generated files.
type titleSource struct {
	title.Options
	ROM      []byte
	Melody   []byte
	Metadata record.Metadata
}

func renderTitleSource(source titleSource) ([]byte, error) {
	return render(titleSourceTemplate, source)
}

func renderTitleHeader(key string) ([]byte, error) {
	return render(titleHeaderTemplate, struct{ Key string }{key})
}

// writeGlobalHeader writes the header listing every included title.
func writeGlobalHeader(path, includeDir string, keys []string) error {
	data, err := render(globalHeaderTemplate, struct {
		IncludeDir string
		Keys       []string
	}{includeDir, keys})
	if err != nil {
		return err
	}
	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing global header: %w", err)
	}
	return nil
}

func render(tmpl *template.Template, data any) ([]byte, error) {
	var buffer bytes.Buffer
	if err := tmpl.Execute(&buffer, data); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", tmpl.Name(), err)
	}
	return buffer.Bytes(), nil
}

// cBytes formats data as a C initializer, sixteen bytes per line.
func cBytes(data []byte) string {
	var builder strings.Builder
	for index, value := range data {
		if index > 0 {
			builder.WriteString(",")
			if index%16 == 0 {
				builder.WriteString("\n\t")
			} else {
				builder.WriteString(" ")
			}
		}
		fmt.Fprintf(&builder, "0x%02X", value)
	}
	return builder.String()
}

func cValues(values []uint16) string {
	formatted := make([]string, len(values))
	for index, value := range values {
		formatted[index] = strconv.Itoa(int(value))
	}
	return strings.Join(formatted, ", ")
}

// cString quotes text as a C string literal.
func cString(text string) string {
	var builder strings.Builder
	builder.WriteByte('"')
	for _, r := range text {
		switch r {
		case '"', '\\':
			builder.WriteByte('\\')
			builder.WriteRune(r)
		case '\n':
			builder.WriteString(`\n`)
		default:
			builder.WriteRune(r)
		}
	}
	builder.WriteByte('"')
	return builder.String()
}
