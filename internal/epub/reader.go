package epub

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrInvalidContainer reports an unreadable or malformed EPUB container.
var ErrInvalidContainer = errors.New("invalid epub container")

type book struct {
	metadata  map[string][]string
	metas     map[string]string
	documents []Document
	images    []Item
	byID      map[string]Item
}

func (b *book) Metadata(field string) []string {
	return b.metadata[strings.ToLower(strings.TrimSpace(field))]
}

func (b *book) MetaContent(name string) (string, bool) {
	value, ok := b.metas[strings.ToLower(strings.TrimSpace(name))]
	return value, ok
}

func (b *book) Documents() []Document { return b.documents }

func (b *book) Images() []Item { return b.images }

func (b *book) ItemByID(id string) (Item, bool) {
	item, ok := b.byID[id]
	return item, ok
}

type containerXML struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	Metadata struct {
		Elements []opfElement `xml:",any"`
	} `xml:"metadata"`
	Manifest struct {
		Items []opfItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Refs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type opfElement struct {
	XMLName xml.Name
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
	Value   string `xml:",chardata"`
}

type opfItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

// Open parses the EPUB container at path. Any structural failure is wrapped
// in ErrInvalidContainer.
func Open(filePath string) (Book, error) {
	reader, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidContainer, err)
	}
	defer reader.Close()

	entries := make(map[string]*zip.File, len(reader.File))
	for _, f := range reader.File {
		entries[f.Name] = f
	}

	rootPath, err := rootfilePath(entries)
	if err != nil {
		return nil, err
	}

	opfData, err := readEntry(entries, rootPath)
	if err != nil {
		return nil, err
	}

	var pkg opfPackage
	if err := xml.Unmarshal(opfData, &pkg); err != nil {
		return nil, fmt.Errorf("%w: parse opf: %w", ErrInvalidContainer, err)
	}

	return assemble(entries, rootPath, &pkg)
}

func rootfilePath(entries map[string]*zip.File) (string, error) {
	data, err := readEntry(entries, "META-INF/container.xml")
	if err != nil {
		return "", err
	}
	var container containerXML
	if err := xml.Unmarshal(data, &container); err != nil {
		return "", fmt.Errorf("%w: parse container.xml: %w", ErrInvalidContainer, err)
	}
	for _, rf := range container.Rootfiles {
		if strings.TrimSpace(rf.FullPath) != "" {
			return rf.FullPath, nil
		}
	}
	return "", fmt.Errorf("%w: no rootfile declared", ErrInvalidContainer)
}

func readEntry(entries map[string]*zip.File, name string) ([]byte, error) {
	entry, ok := entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidContainer, name)
	}
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrInvalidContainer, name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidContainer, name, err)
	}
	return data, nil
}

func assemble(entries map[string]*zip.File, rootPath string, pkg *opfPackage) (Book, error) {
	b := &book{
		metadata: make(map[string][]string),
		metas:    make(map[string]string),
		byID:     make(map[string]Item),
	}

	for _, el := range pkg.Metadata.Elements {
		local := strings.ToLower(el.XMLName.Local)
		if local == "meta" {
			if name := strings.ToLower(strings.TrimSpace(el.Name)); name != "" {
				if _, exists := b.metas[name]; !exists {
					b.metas[name] = strings.TrimSpace(el.Content)
				}
			}
			continue
		}
		if value := strings.TrimSpace(el.Value); value != "" {
			b.metadata[local] = append(b.metadata[local], value)
		}
	}

	baseDir := path.Dir(rootPath)
	loaded := make(map[string]Item, len(pkg.Manifest.Items))
	docOrder := make([]string, 0, len(pkg.Manifest.Items))
	for _, mi := range pkg.Manifest.Items {
		href := strings.TrimSpace(mi.Href)
		if href == "" {
			continue
		}
		entryName := href
		if baseDir != "." {
			entryName = path.Join(baseDir, href)
		}
		data, err := readEntry(entries, entryName)
		if err != nil {
			// Manifest entries missing from the archive are tolerated; the
			// remaining items still carry usable signals.
			continue
		}
		item := Item{ID: mi.ID, Name: href, MediaType: mi.MediaType, Data: data}
		loaded[mi.ID] = item
		b.byID[mi.ID] = item
		switch {
		case isDocumentType(mi.MediaType):
			docOrder = append(docOrder, mi.ID)
		case strings.HasPrefix(strings.ToLower(mi.MediaType), "image/"):
			b.images = append(b.images, item)
		}
	}

	inSpine := make(map[string]bool, len(pkg.Spine.Refs))
	for _, ref := range pkg.Spine.Refs {
		item, ok := loaded[ref.IDRef]
		if !ok || !isDocumentType(item.MediaType) {
			continue
		}
		inSpine[ref.IDRef] = true
		b.documents = append(b.documents, Document{Name: item.Name, Data: item.Data})
	}
	for _, id := range docOrder {
		if inSpine[id] {
			continue
		}
		item := loaded[id]
		b.documents = append(b.documents, Document{Name: item.Name, Data: item.Data})
	}

	return b, nil
}

func isDocumentType(mediaType string) bool {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "application/xhtml+xml", "text/html", "application/html+xml":
		return true
	default:
		return false
	}
}
