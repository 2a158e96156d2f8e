package images

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
)

const iconSize = 32

// TrayIcon draws the tray icon: a filled disc, green while playing and grey
// while paused, inside a square ring in the key colour. It returns PNG bytes.
func TrayIcon(playing bool) []byte {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	ring := keyColor
	fill := pausedColor
	if playing {
		fill = color.RGBA{R: 0x10, G: 0xb9, B: 0x81, A: 0xff}
	}
	draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)
	c := float64(iconSize-1) / 2
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx, dy := float64(x)-c, float64(y)-c
			d := dx*dx + dy*dy
			switch {
			case d <= (c-4)*(c-4):
				img.SetRGBA(x, y, fill)
			case d <= c*c:
				img.SetRGBA(x, y, ring)
			}
		}
	}
	return EncodePNG(img)
}

// WrapICO wraps a PNG in a single-image ICO container, which Windows
// accepts for tray icons.
func WrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	dim := byte(size)
	if size >= 256 {
		dim = 0
	}
	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.Write([]byte{dim, dim, 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, [2]uint16{1, 32})
	_ = binary.Write(&buf, binary.LittleEndian, [2]uint32{uint32(len(pngData)), 6 + 16})
	buf.Write(pngData)
	return buf.Bytes()
}

// TrayIconICO is TrayIcon wrapped for Windows.
func TrayIconICO(playing bool) []byte {
	return WrapICO(TrayIcon(playing), iconSize)
}
