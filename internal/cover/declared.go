package cover

import "sortbook/internal/epub"

// Presence reports whether the book declares a usable cover, and its
// metadata when it does. Data holds the raw bytes and is never serialized.
type Presence struct {
	HasCover  bool   `json:"has_cover"`
	Filename  string `json:"cover_filename,omitempty"`
	MediaType string `json:"cover_media_type,omitempty"`
	Width     *int   `json:"width,omitempty"`
	Height    *int   `json:"height,omitempty"`
	Format    string `json:"format,omitempty"`
	Data      []byte `json:"-"`
}

// Declared resolves the container-level cover: the item referenced by the
// cover meta entry, or the first embedded raster image as fallback. Vector
// formats never count as covers.
func Declared(book epub.Book) Presence {
	var item epub.Item
	var found bool

	if id, ok := book.MetaContent("cover"); ok && id != "" {
		item, found = book.ItemByID(id)
	}
	if !found {
		for _, img := range book.Images() {
			item, found = img, true
			break
		}
	}
	if !found {
		return Presence{}
	}
	if isVector(item.MediaType, item.Name) {
		return Presence{}
	}

	width, height, format := dimensions(item.Data)
	return Presence{
		HasCover:  true,
		Filename:  item.Name,
		MediaType: item.MediaType,
		Width:     width,
		Height:    height,
		Format:    format,
		Data:      item.Data,
	}
}
