package format

// Node is the decoded form of a free-node header.
type Node struct {
	Next uint32 // offset of the next free node, or InvalidOffset
	Size uint32 // block size in bytes, header included
}

// End returns the offset one past the last byte of a node starting at off.
// The result is 64-bit so that a node ending exactly at MaxArenaSize does not wrap.
func (n Node) End(off uint32) uint64 {
	return uint64(off) + uint64(n.Size)
}

// ReadNode decodes the node header stored at off.
func ReadNode(b []byte, off uint32) Node {
	o := int(off)
	return Node{
		Next: ReadU32(b, o+NodeNextOffset),
		Size: ReadU32(b, o+NodeSizeOffset),
	}
}

// PutNode writes a node header at off.
func PutNode(b []byte, off uint32, n Node) {
	o := int(off)
	PutU32(b, o+NodeNextOffset, n.Next)
	PutU32(b, o+NodeSizeOffset, n.Size)
}

// PutNext overwrites only the next-link field of the node at off.
func PutNext(b []byte, off uint32, next uint32) {
	PutU32(b, int(off)+NodeNextOffset, next)
}

// PutSize overwrites only the size field of the node at off.
func PutSize(b []byte, off uint32, size uint32) {
	PutU32(b, int(off)+NodeSizeOffset, size)
}
