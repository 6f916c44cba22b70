package coherence

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// slot is one processor's view of one line index. The akita block carries
// the tag: IsValid means a tag is present, Tag holds the line-aligned
// address, and IsDirty mirrors the M and O states.
type slot struct {
	block *akitacache.Block
	state State
}

func (s *slot) hasTag() bool {
	return s.block.IsValid
}

func (s *slot) holds(lineAddr uint64) bool {
	return s.block.IsValid && s.block.Tag == lineAddr
}

func (s *slot) assign(lineAddr uint64) {
	s.block.Tag = lineAddr
	s.block.IsValid = true
}

func (s *slot) setState(state State) {
	s.state = state
	s.block.IsDirty = state.IsDirty()
}

func (s *slot) invalidate() {
	s.state = Invalid
	s.block.Tag = 0
	s.block.IsValid = false
	s.block.IsDirty = false
}

// SlotView is a read-only copy of a slot.
type SlotView struct {
	Tag    uint64
	HasTag bool
	State  State
}

// Directory holds the tag and MOESI state of every line slot of every
// processor. Each processor's tags live in a direct-mapped akita cache
// directory; lines[index][processor] points into those.
type Directory struct {
	geometry  Geometry
	tagArrays []*akitacache.DirectoryImpl
	lines     [][]slot
}

// NewDirectory creates a directory with every slot in I and no tag.
func NewDirectory(g Geometry, processors int) *Directory {
	d := &Directory{
		geometry:  g,
		tagArrays: make([]*akitacache.DirectoryImpl, processors),
		lines:     make([][]slot, g.NumIndices()),
	}

	for i := range d.lines {
		d.lines[i] = make([]slot, processors)
	}

	for p := 0; p < processors; p++ {
		tags := akitacache.NewDirectory(
			g.NumIndices(),
			1, // direct-mapped
			g.LineSize(),
			akitacache.NewLRUVictimFinder(),
		)
		d.tagArrays[p] = tags

		for _, set := range tags.GetSets() {
			block := set.Blocks[0]
			d.lines[block.SetID][p] = slot{block: block, state: Invalid}
		}
	}

	return d
}

// Geometry returns the address geometry of the directory.
func (d *Directory) Geometry() Geometry {
	return d.geometry
}

// NumProcessors returns the number of caches tracked.
func (d *Directory) NumProcessors() int {
	return len(d.tagArrays)
}

// NumIndices returns the number of line slots per cache.
func (d *Directory) NumIndices() int {
	return len(d.lines)
}

// Slot returns a copy of processor p's slot at index.
func (d *Directory) Slot(index uint64, p int) SlotView {
	s := &d.lines[index][p]
	if !s.hasTag() {
		return SlotView{State: s.state}
	}

	return SlotView{
		Tag:    s.block.Tag >> (d.geometry.OffsetBits + d.geometry.IndexBits),
		HasTag: true,
		State:  s.state,
	}
}

// Holds returns true if processor p's cache has (index, tag) mapped,
// regardless of state.
func (d *Directory) Holds(p int, index, tag uint64) bool {
	return d.tagArrays[p].Lookup(0, d.geometry.LineAddress(index, tag)) != nil
}

// StateCounts returns how many of processor p's slots are in each state.
func (d *Directory) StateCounts(p int) [NumStates]int {
	var counts [NumStates]int
	for i := range d.lines {
		counts[d.lines[i][p].state]++
	}
	return counts
}
