package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"runtime"
)

const iconSize = 64

var (
	activeColor = color.RGBA{R: 0, G: 128, B: 0, A: 255}
	pausedColor = color.RGBA{R: 128, G: 128, B: 0, A: 255}
)

// iconBytes renders a solid square icon in the format systray expects on
// this platform.
func iconBytes(paused bool) []byte {
	c := activeColor
	if paused {
		c = pausedColor
	}

	data := solidPNG(c, iconSize)
	if runtime.GOOS == "windows" {
		return wrapICO(data, iconSize)
	}
	return data
}

func solidPNG(c color.Color, size int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	// encoding an in-memory RGBA image cannot fail
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// wrapICO embeds a PNG in a single-image ICO container, which Windows
// accepts since Vista.
func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer

	dim := byte(size)
	if size >= 256 {
		dim = 0
	}

	// ICONDIR
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))

	// ICONDIRENTRY
	buf.WriteByte(dim)
	buf.WriteByte(dim)
	buf.WriteByte(0)
	buf.WriteByte(0)
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(32))
	binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))
	binary.Write(&buf, binary.LittleEndian, uint32(6+16))

	buf.Write(pngData)
	return buf.Bytes()
}
