// Package cover elects cover-image candidates from embedded book images.
//
// Two independent views exist on purpose: Select ranks every usable raster
// item for the enrichment payload, while Declared answers only the
// "does this book have a cover" question from container metadata. They are
// never merged; when a declared cover is also the top-ranked candidate the
// two agree by construction.
package cover
