package console

import (
	"unsafe"

	"borealos/kernel/console/font"
	"borealos/kernel/multiboot"
)

// rgb is a packed 8-bit-per-channel color. The console only ever uses the 8
// entries of ansiPalette, never an arbitrary color, which is why this stays
// a plain struct instead of pulling in image/color the way the teacher's
// multi-bpp console does.
type rgb struct{ r, g, b uint8 }

// ansiPalette holds the 8 standard ANSI colors used by the SGR subset this
// console understands (30-37 foreground, 40-47 background).
var ansiPalette = [8]rgb{
	{0, 0, 0},       // black
	{170, 0, 0},     // red
	{0, 170, 0},     // green
	{170, 85, 0},     // yellow
	{0, 0, 170},     // blue
	{170, 0, 170},   // magenta
	{0, 170, 170},   // cyan
	{170, 170, 170}, // white
}

// framebuffer wraps the raw pixel memory the bootloader handed us and knows
// how to blit glyphs and shift rows, independent of the character-grid and
// ANSI state tracked by Console.
type framebuffer struct {
	fb            []byte
	width, height uint32
	pitch         uint32
	bpp           uint32
	bytesPerPixel uint32
	colorInfo     *multiboot.FramebufferRGBColorInfo
}

func newFramebuffer(info *multiboot.FramebufferInfo) *framebuffer {
	fbb := &framebuffer{
		width:         info.Width,
		height:        info.Height,
		pitch:         info.Pitch,
		bpp:           uint32(info.Bpp),
		bytesPerPixel: uint32(info.Bpp+7) >> 3,
		colorInfo:     info.RGBColorInfo(),
	}

	size := uintptr(info.Pitch) * uintptr(info.Height)
	vaddr := directMapFn(uintptr(info.PhysAddr))
	fbb.fb = *(*[]byte)(unsafe.Pointer(&sliceHeader{Data: vaddr, Len: int(size), Cap: int(size)}))
	return fbb
}

type sliceHeader struct {
	Data uintptr
	Len  int
	Cap  int
}

// fbOffset returns the linear byte offset of pixel (x,y).
func (f *framebuffer) fbOffset(x, y uint32) uint32 {
	return y*f.pitch + x*f.bytesPerPixel
}

// pack encodes c into the pixel format of the active framebuffer.
func (f *framebuffer) pack(c rgb) [4]byte {
	switch f.bpp {
	case 8:
		// No palette is programmed for indexed modes; every color packs to
		// index 0, so 8bpp framebuffers show no distinct colors.
		return [4]byte{0, 0, 0, 0}
	case 15, 16:
		ci := f.colorInfo
		packed := uint16(c.r>>(8-ci.RedMaskSize))<<ci.RedPosition |
			uint16(c.g>>(8-ci.GreenMaskSize))<<ci.GreenPosition |
			uint16(c.b>>(8-ci.BlueMaskSize))<<ci.BluePosition
		return [4]byte{uint8(packed), uint8(packed >> 8), 0, 0}
	default: // 24, 32
		ci := f.colorInfo
		packed := uint32(c.r>>(8-ci.RedMaskSize))<<ci.RedPosition |
			uint32(c.g>>(8-ci.GreenMaskSize))<<ci.GreenPosition |
			uint32(c.b>>(8-ci.BlueMaskSize))<<ci.BluePosition
		return [4]byte{uint8(packed), uint8(packed >> 8), uint8(packed >> 16), uint8(packed >> 24)}
	}
}

// drawGlyph blits the bitmap for ch at pixel origin (pX,pY) using fg/bg,
// scanning each font row left to right. It reads a single font byte per
// row, so only the first 8 pixels of a row are drawn from the font data;
// fonts with BytesPerRow > 1 are not supported.
func (f *framebuffer) drawGlyph(ch byte, fg, bg rgb, pX, pY uint32) {
	fgComp, bgComp := f.pack(fg), f.pack(bg)
	fnt := font.Builtin
	fontOffset := uint32(ch) * fnt.BytesPerRow * fnt.GlyphHeight
	rowOffset := f.fbOffset(pX, pY)

	for y := uint32(0); y < fnt.GlyphHeight; y, rowOffset, fontOffset = y+1, rowOffset+f.pitch, fontOffset+fnt.BytesPerRow {
		rowData := fnt.Data[fontOffset]
		mask := uint8(1 << 7)
		off := rowOffset
		for x := uint32(0); x < fnt.GlyphWidth; x, off, mask = x+1, off+f.bytesPerPixel, mask>>1 {
			comp := bgComp
			if rowData&mask != 0 {
				comp = fgComp
			}
			for b := uint32(0); b < f.bytesPerPixel; b++ {
				f.fb[off+b] = comp[b]
			}
		}
	}
}

// fillCell paints the cellW x cellH pixel rectangle at (pX,pY) with bg.
// Console.clearScreen uses it to paint the whole framebuffer.
func (f *framebuffer) fillCell(bg rgb, pX, pY, cellW, cellH uint32) {
	comp := f.pack(bg)
	rowOffset := f.fbOffset(pX, pY)
	for y := uint32(0); y < cellH; y, rowOffset = y+1, rowOffset+f.pitch {
		off := rowOffset
		for x := uint32(0); x < cellW; x, off = x+1, off+f.bytesPerPixel {
			for b := uint32(0); b < f.bytesPerPixel; b++ {
				f.fb[off+b] = comp[b]
			}
		}
	}
}

// scrollUp moves the framebuffer contents up by rows pixel-rows, zero-filling
// the vacated region at the bottom, mirroring the teacher's VesaFbConsole.Scroll.
func (f *framebuffer) scrollUp(rows uint32) {
	if rows == 0 || rows >= f.height {
		return
	}
	shift := rows * f.pitch
	copy(f.fb[:uint32(len(f.fb))-shift], f.fb[shift:])
	for i := uint32(len(f.fb)) - shift; i < uint32(len(f.fb)); i++ {
		f.fb[i] = 0
	}
}
