package assetvfs

// Flags annotate how a payload was produced.
type Flags uint8

const (
	// FlagBinary marks a payload requested in binary mode.
	FlagBinary Flags = 1 << iota

	// FlagFromSource marks a payload imported from an editable source
	// file rather than loaded from its primary form.
	FlagFromSource
)

// Has reports whether all bits in flag are set.
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

// Request describes one asset fetch. Requests are immutable once
// submitted.
type Request struct {
	// Package scopes the request to a single mounted package. Empty
	// searches all packages in mount order.
	Package string

	// Name is the slash-separated asset name.
	Name string

	// Binary requests binary mode. The flag is carried through to the
	// result and selects the codec during handler dispatch.
	Binary bool

	// Tag is an opaque payload copied into every Data derived from this
	// request. The VFS never inspects it.
	Tag any

	// Callback receives the result of an asynchronous request. It is
	// invoked exactly once, also on failure, on the scheduler's dispatch
	// goroutine. Ignored by synchronous Request calls.
	Callback func(Data)
}

// Data is the result of an asset request. The requester owns the
// payload; call Release when done to make the hand-off explicit.
type Data struct {
	// Name is the asset name from the request.
	Name string

	// Package is the package that served the request. Empty when no
	// package was involved, such as direct-from-disk reads.
	Package string

	// Path is the backing filesystem path when the serving package can
	// name one.
	Path string

	// Payload is the asset content. Nil after Release or on failure.
	Payload []byte

	Flags  Flags
	Status Status

	// Tag is the request's opaque payload, copied by assignment.
	Tag any
}

// OK reports whether the request succeeded.
func (d *Data) OK() bool {
	return d.Status == StatusOK
}

// Err returns the sentinel error for the status, or nil on success.
func (d *Data) Err() error {
	return d.Status.Err()
}

// Size returns the payload length in bytes.
func (d *Data) Size() int {
	return len(d.Payload)
}

// Text returns the payload as a string.
func (d *Data) Text() string {
	return string(d.Payload)
}

// Release drops the payload reference. It is safe to call more than
// once; releasing an already-released Data does nothing.
func (d *Data) Release() {
	d.Payload = nil
}
