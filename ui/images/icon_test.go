package images

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"testing"
)

func TestTrayIcon_PlayingAndPausedDiffer(t *testing.T) {
	on, off := TrayIcon(true), TrayIcon(false)
	if bytes.Equal(on, off) {
		t.Fatalf("icons should differ by state")
	}
	img, err := png.Decode(bytes.NewReader(on))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != iconSize || img.Bounds().Dy() != iconSize {
		t.Fatalf("icon size = %v", img.Bounds())
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Fatalf("corner should be transparent")
	}
}

func TestWrapICO_Header(t *testing.T) {
	data := TrayIcon(true)
	ico := WrapICO(data, iconSize)
	if len(ico) != 22+len(data) {
		t.Fatalf("ico length = %d", len(ico))
	}
	if binary.LittleEndian.Uint16(ico[2:]) != 1 || binary.LittleEndian.Uint16(ico[4:]) != 1 {
		t.Fatalf("bad ICONDIR %v", ico[:6])
	}
	if ico[6] != iconSize || binary.LittleEndian.Uint32(ico[14:]) != uint32(len(data)) || binary.LittleEndian.Uint32(ico[18:]) != 22 {
		t.Fatalf("bad ICONDIRENTRY %v", ico[6:22])
	}
	if !bytes.Equal(ico[22:], data) {
		t.Fatalf("png payload not embedded")
	}
	if WrapICO(data, 256)[6] != 0 {
		t.Fatalf("256px icons encode width as 0")
	}
}
