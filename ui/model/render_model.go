package model

import (
	"slices"

	"github.com/soocke/cverlay-go/domain/overlay"
)

// frameKey identifies what a painted frame shows. Scanner regions never
// change after construction and results are replaced with a new sequence,
// so id, state and sequence per scanner are enough.
type frameKey struct {
	mode     overlay.Mode
	scanners []scannerKey
}

type scannerKey struct {
	id       string
	state    string
	sequence uint64
}

// RenderModel decides whether a snapshot needs repainting and counts
// painted and skipped frames. It is used from the render loop only.
type RenderModel struct {
	last    frameKey
	primed  bool
	painted uint64
	skipped uint64
}

func NewRenderModel() *RenderModel { return &RenderModel{} }

// NeedsPaint reports whether snap differs from the last painted snapshot
// and records it as painted when it does.
func (m *RenderModel) NeedsPaint(snap overlay.Snapshot) bool {
	if m == nil {
		return true
	}
	key := frameKey{mode: snap.Mode, scanners: make([]scannerKey, 0, len(snap.Scanners))}
	for _, sv := range snap.Scanners {
		key.scanners = append(key.scanners, scannerKey{id: sv.ID, state: sv.State, sequence: sv.Sequence})
	}
	if m.primed && key.mode == m.last.mode && slices.Equal(key.scanners, m.last.scanners) {
		m.skipped++
		return false
	}
	m.last = key
	m.primed = true
	m.painted++
	return true
}

// Invalidate forces the next NeedsPaint to return true.
func (m *RenderModel) Invalidate() {
	if m != nil {
		m.primed = false
	}
}

// Counts returns painted and skipped frame counts.
func (m *RenderModel) Counts() (painted, skipped uint64) {
	if m == nil {
		return 0, 0
	}
	return m.painted, m.skipped
}
