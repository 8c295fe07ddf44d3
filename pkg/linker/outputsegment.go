package linker

import (
	"sort"

	"asmlnk/pkg/image"
)

// CreateSegments lays the merged sections out by address and joins
// sections that touch into one loadable segment. Empty sections produce
// nothing.
func CreateSegments(ctx *Context) []image.Segment {
	chunks := make([]*MergedSection, 0, len(ctx.MergedSections))
	for _, m := range ctx.MergedSections {
		if m.Size > 0 {
			chunks = append(chunks, m)
		}
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Addr < chunks[j].Addr
	})

	vec := make([]image.Segment, 0)

	define := func(m *MergedSection) {
		vec = append(vec, image.Segment{
			Address: m.Addr,
			Bytes:   append([]byte(nil), m.Bytes()...),
		})
	}

	push := func(m *MergedSection) {
		seg := &vec[len(vec)-1]
		seg.Bytes = append(seg.Bytes, m.Bytes()...)
	}

	end := len(chunks)
	for i := 0; i < end; {
		first := chunks[i]
		i++
		define(first)
		for i < end && uint64(chunks[i].Addr) == vec[len(vec)-1].End() {
			push(chunks[i])
			i++
		}
	}

	return vec
}
