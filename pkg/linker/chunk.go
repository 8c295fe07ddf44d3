package linker

// Chunk is an addressed range of the output image.
type Chunk struct {
	Name   string
	Addr   uint32
	Size   uint32
	Placed bool
}

func NewChunk(name string) Chunk {
	return Chunk{Name: name}
}

// End is one past the last byte. It may equal 1<<32.
func (c *Chunk) End() uint64 {
	return uint64(c.Addr) + uint64(c.Size)
}

// Overlaps reports whether two non-empty chunks share an address.
func (c *Chunk) Overlaps(o *Chunk) bool {
	if c.Size == 0 || o.Size == 0 {
		return false
	}
	return uint64(c.Addr) < o.End() && c.End() > uint64(o.Addr)
}
