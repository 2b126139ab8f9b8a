package epub

// Item is an embedded binary resource declared in the container manifest.
type Item struct {
	ID        string
	Name      string
	MediaType string
	Data      []byte
}

// Document is one document fragment in reading order.
type Document struct {
	Name string
	Data []byte
}

// Book is the parsed container handed to the extractor.
type Book interface {
	// Metadata returns the values of one descriptive metadata field in
	// declared order. Field names are the unprefixed Dublin Core element
	// names ("title", "creator", "identifier", ...).
	Metadata(field string) []string
	// MetaContent returns the content attribute of an OPF meta element by
	// its name attribute (used for the declared-cover lookup).
	MetaContent(name string) (string, bool)
	// Documents returns document fragments in spine order, followed by any
	// manifest documents absent from the spine.
	Documents() []Document
	// Images returns embedded raster and vector items in manifest order.
	Images() []Item
	// ItemByID resolves a manifest item by identifier.
	ItemByID(id string) (Item, bool)
}

// Opener opens a book container from a file path. It is the seam batch and
// pipeline code use so tests can substitute in-memory containers.
type Opener func(path string) (Book, error)
