// Package format houses the in-arena layout of the free-list allocator: the
// free-node header, the sentinel offset, and the integer codecs used to read
// and write headers at arbitrary byte offsets. Keeping the layout here lets the
// allocator, the verifier and the tests agree on a single definition.
package format

const (
	// NodeHeaderSize is the size of a free-node header in bytes.
	// Layout (little-endian):
	//   0x00  next  uint32  offset of the next free node, or InvalidOffset
	//   0x04  size  uint32  size of this free block in bytes (header included)
	NodeHeaderSize = 8

	// NodeNextOffset is the offset of the next-link field within a node header.
	NodeNextOffset = 0x00

	// NodeSizeOffset is the offset of the size field within a node header.
	NodeSizeOffset = 0x04

	// NodeAlignment is the natural alignment of a node header (two uint32 fields).
	// The arena base address must be a multiple of this value.
	NodeAlignment = 4

	// InvalidOffset marks "no next node" and "empty list".
	InvalidOffset = 0xFFFFFFFF

	// MaxArenaSize is the largest arena the allocator manages. Every offset and
	// size must fit in a uint32.
	MaxArenaSize = 0xFFFFFFFF

	// MinArenaSize is the smallest arena that can hold a single free node.
	MinArenaSize = NodeHeaderSize
)
