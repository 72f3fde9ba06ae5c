package shadowlink

import "fmt"

// Position is an archive member's command-line position: ticket files are
// given ArchiveIndex 0, and the total order is lexicographic over
// (ArchiveIndex, MemberIndex). Earlier positions win when two archive
// members claim the same symbol name (spec.md §4.4).
type Position struct {
	ArchiveIndex uint32
	MemberIndex  uint32
}

// Less reports whether p sorts strictly before other under the
// lexicographic command-line order.
func (p Position) Less(other Position) bool {
	if p.ArchiveIndex != other.ArchiveIndex {
		return p.ArchiveIndex < other.ArchiveIndex
	}
	return p.MemberIndex < other.MemberIndex
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.ArchiveIndex, p.MemberIndex)
}
