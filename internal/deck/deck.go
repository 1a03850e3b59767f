// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package deck assembles PowerPoint (.pptx) decks with one full-bleed page
// image per slide. It writes the OOXML package directly: a presentation
// part sized to the source page geometry, one slide part per image, and a
// single pass-through master/layout pair.
package deck

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/neosun100/notebookLM2PPT/internal/raster"
)

// contentTypeByExt maps supported slide image extensions to their OOXML
// content types.
var contentTypeByExt = map[string]string{
	"emf":  "image/x-emf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
}

// Deck accumulates slides and writes the final .pptx package. It is not
// safe for concurrent use; the pipeline appends slides from a single
// goroutine.
type Deck struct {
	geom   raster.SlideGeometry
	slides []slide
	title  string
	author string
}

type slide struct {
	imagePath string
	ext       string
}

// New creates an empty deck with every slide sized per geom.
func New(geom raster.SlideGeometry) *Deck {
	return &Deck{geom: geom}
}

// SetCoreProperties records document metadata carried over from the source.
// Empty values are omitted from the package.
func (d *Deck) SetCoreProperties(title, author string) {
	d.title = title
	d.author = author
}

// AddSlide appends a slide showing the image at full bleed. The image file
// is read at Save time, so it must outlive the deck.
func (d *Deck) AddSlide(imagePath string) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(imagePath)), ".")
	if _, ok := contentTypeByExt[ext]; !ok {
		return fmt.Errorf("unsupported slide image format %q", ext)
	}
	d.slides = append(d.slides, slide{imagePath: imagePath, ext: ext})
	return nil
}

// SlideCount returns the number of slides added so far.
func (d *Deck) SlideCount() int {
	return len(d.slides)
}

// Save writes the deck to path as a .pptx package. The package is built in
// a sibling temp file and renamed into place, so a failed save leaves any
// existing file at path untouched.
func (d *Deck) Save(path string) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating deck file: %w", err)
	}
	tmp := f.Name()

	zw := zip.NewWriter(f)
	if err := d.writeParts(zw); err != nil {
		zw.Close()
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("finalizing deck: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing deck file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("placing deck file: %w", err)
	}
	return nil
}

func (d *Deck) writeParts(zw *zip.Writer) error {
	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", d.contentTypesXML()},
		{"_rels/.rels", rootRelsXML},
		{"ppt/presentation.xml", d.presentationXML()},
		{"ppt/_rels/presentation.xml.rels", d.presentationRelsXML()},
		{"ppt/slideMasters/slideMaster1.xml", slideMasterXML},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", slideMasterRelsXML},
		{"ppt/slideLayouts/slideLayout1.xml", slideLayoutXML},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", slideLayoutRelsXML},
		{"ppt/theme/theme1.xml", themeXML},
		{"docProps/core.xml", d.coreXML()},
		{"docProps/app.xml", appXML},
	}
	for i := range d.slides {
		parts = append(parts,
			struct{ name, content string }{
				fmt.Sprintf("ppt/slides/slide%d.xml", i+1),
				d.slideXML(),
			},
			struct{ name, content string }{
				fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i+1),
				d.slideRelsXML(i),
			},
		)
	}

	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("creating part %s: %w", p.name, err)
		}
		if _, err := io.WriteString(w, p.content); err != nil {
			return fmt.Errorf("writing part %s: %w", p.name, err)
		}
	}

	for i, s := range d.slides {
		if err := d.copyMedia(zw, i, s); err != nil {
			return err
		}
	}
	return nil
}

func (d *Deck) copyMedia(zw *zip.Writer, i int, s slide) error {
	src, err := os.Open(s.imagePath)
	if err != nil {
		return fmt.Errorf("opening slide image: %w", err)
	}
	defer src.Close()

	w, err := zw.Create(fmt.Sprintf("ppt/media/image%d.%s", i+1, s.ext))
	if err != nil {
		return fmt.Errorf("creating media part: %w", err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("embedding %s: %w", s.imagePath, err)
	}
	return nil
}

func (d *Deck) contentTypesXML() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)

	seen := map[string]bool{}
	for _, s := range d.slides {
		if seen[s.ext] {
			continue
		}
		seen[s.ext] = true
		fmt.Fprintf(&b, `<Default Extension=%q ContentType=%q/>`, s.ext, contentTypeByExt[s.ext])
	}

	b.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	for i := range d.slides {
		fmt.Fprintf(&b, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i+1)
	}
	b.WriteString(`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`)
	b.WriteString(`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>`)
	b.WriteString(`</Types>`)
	return b.String()
}

func (d *Deck) presentationXML() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<p:presentation xmlns:a="` + nsDrawing + `" xmlns:r="` + nsRelationships + `" xmlns:p="` + nsPresentation + `">`)
	b.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	b.WriteString(`<p:sldIdLst>`)
	for i := range d.slides {
		fmt.Fprintf(&b, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+2)
	}
	b.WriteString(`</p:sldIdLst>`)
	fmt.Fprintf(&b, `<p:sldSz cx="%d" cy="%d"/>`, d.geom.WidthEMU, d.geom.HeightEMU)
	fmt.Fprintf(&b, `<p:notesSz cx="%d" cy="%d"/>`, d.geom.HeightEMU, d.geom.WidthEMU)
	b.WriteString(`</p:presentation>`)
	return b.String()
}

func (d *Deck) presentationRelsXML() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>`)
	for i := range d.slides {
		fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, i+2, i+1)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

// slideXML emits a slide whose only shape is the page image stretched to
// the full slide extent.
func (d *Deck) slideXML() string {
	return fmt.Sprintf(xmlHeader+
		`<p:sld xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">`+
		`<p:cSld><p:spTree>`+
		`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`+
		`<p:pic>`+
		`<p:nvPicPr><p:cNvPr id="2" name="Page"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="rId1"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
		`<p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`+
		`</p:pic>`+
		`</p:spTree></p:cSld>`+
		`</p:sld>`,
		nsDrawing, nsRelationships, nsPresentation, d.geom.WidthEMU, d.geom.HeightEMU)
}

func (d *Deck) slideRelsXML(i int) string {
	return fmt.Sprintf(xmlHeader+
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image%d.%s"/>`+
		`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>`+
		`</Relationships>`,
		i+1, d.slides[i].ext)
}

func (d *Deck) coreXML() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">`)
	if d.title != "" {
		fmt.Fprintf(&b, `<dc:title>%s</dc:title>`, xmlEscape(d.title))
	}
	if d.author != "" {
		fmt.Fprintf(&b, `<dc:creator>%s</dc:creator>`, xmlEscape(d.author))
	}
	b.WriteString(`</cp:coreProperties>`)
	return b.String()
}

func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}
