package cover

import (
	"bytes"
	"image"
	"path"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// dimensions attempts to decode image bytes. Undecodable data yields nil
// dimensions and an empty format, not an error: such items stay eligible
// as candidates.
func dimensions(data []byte) (width, height *int, format string) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, nil, ""
	}
	w, h := cfg.Width, cfg.Height
	return &w, &h, name
}

// isVector reports whether the declared media type or filename indicates a
// vector format.
func isVector(mediaType, filename string) bool {
	if strings.Contains(strings.ToLower(mediaType), "svg") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(path.Base(filename)), ".svg")
}
