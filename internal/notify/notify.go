// Package notify delivers coalesced file change events for a set of
// individually registered files. Registration watches the file's parent
// directory, so atomic replace-by-rename is observed as a write to the
// target name rather than missed on the old inode.
package notify

// Op describes what happened to a watched file.
type Op uint8

const (
	// OpWrite is a completed write or an atomic rename onto the path.
	OpWrite Op = iota
	// OpRemove is a deletion or a rename away from the path.
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event is one coalesced change to a watched file. Path is the absolute
// path the file was registered under.
type Event struct {
	Path string
	Op   Op
}
