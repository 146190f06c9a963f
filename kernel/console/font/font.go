// Package font defines the fixed bitmap font the framebuffer console uses.
// Unlike the teacher's font package, which picks the best of several
// loadable fonts for the console's resolution, BorealOS only ever brings up
// one framebuffer console with one font: there is no bitmap-loading
// pipeline to select between candidates, so Font is reduced to the single
// built-in table below.
package font

// Font describes a fixed-width bitmap font. Each glyph occupies
// BytesPerRow*GlyphHeight bytes, one bit per pixel with the most
// significant bit of each row byte as the leftmost pixel.
type Font struct {
	Name        string
	GlyphWidth  uint32
	GlyphHeight uint32
	BytesPerRow uint32
	Data        []byte
}

const (
	glyphWidth  = 8
	glyphHeight = 16
)

// glyphRows is the ASCII-art source for one glyph: 16 strings of 8
// characters each, '#' for an ink pixel and '.' for background. Encoding
// glyphs this way keeps the table legible without hand-computing hex bytes.
type glyphRows [glyphHeight]string

func packGlyph(rows glyphRows) [glyphHeight]byte {
	var out [glyphHeight]byte
	for i, row := range rows {
		var b byte
		for x := 0; x < glyphWidth; x++ {
			b <<= 1
			if row[x] == '#' {
				b |= 1
			}
		}
		out[i] = b
	}
	return out
}

// missingGlyph is used for any character that has no entry in glyphTable: a
// hollow box, the same convention most font systems use for an unmapped
// code point.
var missingGlyph = packGlyph(glyphRows{
	"........",
	".######.",
	".#....#.",
	".#....#.",
	".#....#.",
	".#....#.",
	".#....#.",
	".#....#.",
	".#....#.",
	".#....#.",
	".#....#.",
	".#....#.",
	".#....#.",
	".######.",
	"........",
	"........",
})

var glyphTable = map[byte]glyphRows{
	' ': {
		"........", "........", "........", "........",
		"........", "........", "........", "........",
		"........", "........", "........", "........",
		"........", "........", "........", "........",
	},
	'0': {
		"........", "..####..", ".#....#.", ".#...##.",
		".#..#.#.", ".#.#..#.", ".##...#.", ".#....#.",
		".#....#.", ".#....#.", ".#....#.", "..####..",
		"........", "........", "........", "........",
	},
	'1': {
		"........", "...##...", "..###...", "...##...",
		"...##...", "...##...", "...##...", "...##...",
		"...##...", "...##...", "...##...", "..####..",
		"........", "........", "........", "........",
	},
	'2': {
		"........", "..####..", ".#....#.", ".#....#.",
		"......#.", ".....#..", "....#...", "...#....",
		"..#.....", ".#......", ".#......", ".######.",
		"........", "........", "........", "........",
	},
	'3': {
		"........", "..####..", ".#....#.", "......#.",
		".....#..", "...###..", "......#.", "......#.",
		"......#.", ".#....#.", "..####..", "........",
		"........", "........", "........", "........",
	},
	'4': {
		"........", ".....#..", "....##..", "...#.#..",
		"..#..#..", ".#...#..", ".######.", ".....#..",
		".....#..", ".....#..", ".....#..", "........",
		"........", "........", "........", "........",
	},
	'5': {
		"........", ".######.", ".#......", ".#......",
		".#####..", "......#.", "......#.", "......#.",
		"......#.", ".#....#.", "..####..", "........",
		"........", "........", "........", "........",
	},
	'6': {
		"........", "...###..", "..#.....", ".#......",
		".#####..", ".#....#.", ".#....#.", ".#....#.",
		".#....#.", ".#....#.", "..####..", "........",
		"........", "........", "........", "........",
	},
	'7': {
		"........", ".######.", "......#.", ".....#..",
		"....#...", "...#....", "...#....", "..#.....",
		"..#.....", "..#.....", "..#.....", "........",
		"........", "........", "........", "........",
	},
	'8': {
		"........", "..####..", ".#....#.", ".#....#.",
		".#....#.", "..####..", ".#....#.", ".#....#.",
		".#....#.", ".#....#.", "..####..", "........",
		"........", "........", "........", "........",
	},
	'9': {
		"........", "..####..", ".#....#.", ".#....#.",
		".#....#.", "..#####.", "......#.", "......#.",
		".....#..", "....#...", "..###...", "........",
		"........", "........", "........", "........",
	},
	'.': {
		"........", "........", "........", "........",
		"........", "........", "........", "........",
		"........", "........", "...##...", "...##...",
		"........", "........", "........", "........",
	},
	',': {
		"........", "........", "........", "........",
		"........", "........", "........", "........",
		"........", "........", "...##...", "...##...",
		"...#....", "..#.....", "........", "........",
	},
	':': {
		"........", "........", "........", "...##...",
		"...##...", "........", "........", "........",
		"........", "...##...", "...##...", "........",
		"........", "........", "........", "........",
	},
	'-': {
		"........", "........", "........", "........",
		"........", "........", ".######.", "........",
		"........", "........", "........", "........",
		"........", "........", "........", "........",
	},
	'_': {
		"........", "........", "........", "........",
		"........", "........", "........", "........",
		"........", "........", "........", "........",
		".######.", "........", "........", "........",
	},
	'/': {
		"........", "......#.", "......#.", ".....#..",
		".....#..", "....#...", "....#...", "...#....",
		"...#....", "..#.....", "..#.....", ".#......",
		"........", "........", "........", "........",
	},
	'!': {
		"........", "...##...", "...##...", "...##...",
		"...##...", "...##...", "...##...", "...##...",
		"........", "...##...", "...##...", "........",
		"........", "........", "........", "........",
	},
	'?': {
		"........", "..####..", ".#....#.", "......#.",
		".....#..", "....#...", "...##...", "...##...",
		"........", "...##...", "...##...", "........",
		"........", "........", "........", "........",
	},
	'=': {
		"........", "........", "........", ".######.",
		"........", "........", ".######.", "........",
		"........", "........", "........", "........",
		"........", "........", "........", "........",
	},
	'+': {
		"........", "........", "........", "...##...",
		"...##...", ".######.", "...##...", "...##...",
		"........", "........", "........", "........",
		"........", "........", "........", "........",
	},
}

func init() {
	upper := glyphRows{
		"........", "..####..", ".#....#.", ".#....#.",
		".######.", ".#....#.", ".#....#.", ".#....#.",
		"........", "........", "........", "........",
		"........", "........", "........", "........",
	}
	for c := byte('A'); c <= 'Z'; c++ {
		glyphTable[c] = upper
	}
	for c := byte('a'); c <= 'z'; c++ {
		glyphTable[c] = glyphTable[c-'a'+'A']
	}
}

func buildData() []byte {
	data := make([]byte, 256*glyphHeight)
	for code := 0; code < 256; code++ {
		glyph := missingGlyph
		if rows, ok := glyphTable[byte(code)]; ok {
			glyph = packGlyph(rows)
		}
		copy(data[code*glyphHeight:], glyph[:])
	}
	return data
}

// Builtin is the single fixed font BorealOS ships with.
var Builtin = &Font{
	Name:        "boreal8x16",
	GlyphWidth:  glyphWidth,
	GlyphHeight: glyphHeight,
	BytesPerRow: 1,
	Data:        buildData(),
}
