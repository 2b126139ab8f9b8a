package testsupport

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// MetadataField is one descriptive metadata element in declared order.
type MetadataField struct {
	Name  string
	Value string
}

// DocumentSpec is one document fragment of a fixture book.
type DocumentSpec struct {
	Name string
	Body string
}

// ImageSpec is one embedded image of a fixture book.
type ImageSpec struct {
	Name      string
	MediaType string
	Data      []byte
}

// BookSpec describes an EPUB fixture.
type BookSpec struct {
	Metadata    []MetadataField
	Documents   []DocumentSpec
	Images      []ImageSpec
	CoverMetaID string
}

// WriteEPUB assembles a minimal but structurally valid EPUB at path.
func WriteEPUB(t testing.TB, path string, spec BookSpec) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, BuildEPUB(t, spec), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// BuildEPUB assembles the EPUB archive in memory.
func BuildEPUB(t testing.TB, spec BookSpec) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	writeEntry := func(name string, data []byte) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}

	writeEntry("mimetype", []byte("application/epub+zip"))
	writeEntry("META-INF/container.xml", []byte(`<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`))

	var opf bytes.Buffer
	opf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="2.0" unique-identifier="bookid">
  <metadata>
`)
	for _, field := range spec.Metadata {
		fmt.Fprintf(&opf, "    <dc:%s>%s</dc:%s>\n", field.Name, field.Value, field.Name)
	}
	if spec.CoverMetaID != "" {
		fmt.Fprintf(&opf, "    <meta name=\"cover\" content=%q/>\n", spec.CoverMetaID)
	}
	opf.WriteString("  </metadata>\n  <manifest>\n")
	for i, doc := range spec.Documents {
		fmt.Fprintf(&opf, "    <item id=\"doc%d\" href=%q media-type=\"application/xhtml+xml\"/>\n", i, doc.Name)
	}
	for i, img := range spec.Images {
		fmt.Fprintf(&opf, "    <item id=\"img%d\" href=%q media-type=%q/>\n", i, img.Name, img.MediaType)
	}
	opf.WriteString("  </manifest>\n  <spine>\n")
	for i := range spec.Documents {
		fmt.Fprintf(&opf, "    <itemref idref=\"doc%d\"/>\n", i)
	}
	opf.WriteString("  </spine>\n</package>\n")
	writeEntry("OEBPS/content.opf", opf.Bytes())

	for _, doc := range spec.Documents {
		body := fmt.Sprintf("<html><head><title>x</title></head><body>%s</body></html>", doc.Body)
		writeEntry("OEBPS/"+doc.Name, []byte(body))
	}
	for _, img := range spec.Images {
		writeEntry("OEBPS/"+img.Name, img.Data)
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// PNG renders a solid-color PNG with the requested dimensions so fixture
// covers decode with real width/height.
func PNG(t testing.TB, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 180, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
