// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package deck

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neosun100/notebookLM2PPT/internal/raster"
)

func testGeometry() raster.SlideGeometry {
	return raster.SlideGeometry{
		WidthEMU:    7772400,
		HeightEMU:   10058400,
		AspectRatio: 612.0 / 792.0,
	}
}

// writeImage drops a placeholder image file; the deck embeds bytes without
// inspecting them.
func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("image-bytes-"+name), 0o644))
	return path
}

// readParts opens a saved deck and returns part name -> content.
func readParts(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	parts := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		parts[f.Name] = string(data)
	}
	return parts
}

func TestSaveDeck(t *testing.T) {
	dir := t.TempDir()
	d := New(testGeometry())
	d.SetCoreProperties("Quarterly Notes", "NotebookLM")

	require.NoError(t, d.AddSlide(writeImage(t, dir, "page1.emf")))
	require.NoError(t, d.AddSlide(writeImage(t, dir, "page2.emf")))
	require.NoError(t, d.AddSlide(writeImage(t, dir, "page3.emf")))
	assert.Equal(t, 3, d.SlideCount())

	out := filepath.Join(dir, "out.pptx")
	require.NoError(t, d.Save(out))

	parts := readParts(t, out)

	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"ppt/presentation.xml",
		"ppt/_rels/presentation.xml.rels",
		"ppt/slideMasters/slideMaster1.xml",
		"ppt/slideLayouts/slideLayout1.xml",
		"ppt/theme/theme1.xml",
		"ppt/slides/slide1.xml",
		"ppt/slides/slide3.xml",
		"ppt/slides/_rels/slide1.xml.rels",
		"ppt/media/image1.emf",
		"ppt/media/image3.emf",
		"docProps/core.xml",
		"docProps/app.xml",
	} {
		assert.Contains(t, parts, name)
	}

	// Slide geometry flows into the presentation part.
	assert.Contains(t, parts["ppt/presentation.xml"], `cx="7772400" cy="10058400"`)

	// Slides appear in insertion order in the slide id list.
	pres := parts["ppt/presentation.xml"]
	assert.Less(t, strings.Index(pres, `r:id="rId2"`), strings.Index(pres, `r:id="rId3"`))

	// Each slide references its own image in document order.
	assert.Contains(t, parts["ppt/slides/_rels/slide2.xml.rels"], "../media/image2.emf")

	// Full-bleed picture sized to the slide.
	assert.Contains(t, parts["ppt/slides/slide1.xml"], `<a:ext cx="7772400" cy="10058400"/>`)
	assert.Contains(t, parts["ppt/slides/slide1.xml"], `r:embed="rId1"`)

	// EMF gets its content type declared.
	assert.Contains(t, parts["[Content_Types].xml"], `Extension="emf" ContentType="image/x-emf"`)

	// Metadata lands in core properties.
	assert.Contains(t, parts["docProps/core.xml"], "<dc:title>Quarterly Notes</dc:title>")
	assert.Contains(t, parts["docProps/core.xml"], "<dc:creator>NotebookLM</dc:creator>")

	// Embedded media round-trips byte for byte.
	assert.Equal(t, "image-bytes-page2.emf", parts["ppt/media/image2.emf"])
}

func TestSaveDeckMixedFormats(t *testing.T) {
	dir := t.TempDir()
	d := New(testGeometry())
	require.NoError(t, d.AddSlide(writeImage(t, dir, "a.png")))
	require.NoError(t, d.AddSlide(writeImage(t, dir, "b.emf")))

	out := filepath.Join(dir, "mixed.pptx")
	require.NoError(t, d.Save(out))

	ct := readParts(t, out)["[Content_Types].xml"]
	assert.Contains(t, ct, `Extension="png" ContentType="image/png"`)
	assert.Contains(t, ct, `Extension="emf" ContentType="image/x-emf"`)
}

func TestAddSlideRejectsUnknownFormat(t *testing.T) {
	d := New(testGeometry())
	err := d.AddSlide("page.tiff")
	assert.Error(t, err)
	assert.Equal(t, 0, d.SlideCount())
}

func TestCorePropertiesEscaped(t *testing.T) {
	dir := t.TempDir()
	d := New(testGeometry())
	d.SetCoreProperties(`Q&A <notes>`, "")
	require.NoError(t, d.AddSlide(writeImage(t, dir, "p.png")))

	out := filepath.Join(dir, "esc.pptx")
	require.NoError(t, d.Save(out))

	core := readParts(t, out)["docProps/core.xml"]
	assert.Contains(t, core, "Q&amp;A &lt;notes&gt;")
	assert.NotContains(t, core, "<dc:creator>")
}

func TestSaveMissingImageCleansUp(t *testing.T) {
	dir := t.TempDir()
	d := New(testGeometry())
	require.NoError(t, d.AddSlide(filepath.Join(dir, "gone.png")))

	out := filepath.Join(dir, "broken.pptx")
	require.Error(t, d.Save(out))

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "failed save must not leave a partial deck")

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "failed save must not leave temp files behind")
}

func TestSaveFailureKeepsExistingDeck(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "deck.pptx")

	good := New(testGeometry())
	good.SetCoreProperties("Original", "")
	require.NoError(t, good.AddSlide(writeImage(t, dir, "keep.png")))
	require.NoError(t, good.Save(out))

	// A second save over the same path fails mid-write; the first deck
	// must survive intact.
	bad := New(testGeometry())
	require.NoError(t, bad.AddSlide(filepath.Join(dir, "gone.png")))
	require.Error(t, bad.Save(out))

	parts := readParts(t, out)
	assert.Contains(t, parts["docProps/core.xml"], "<dc:title>Original</dc:title>")
	assert.Equal(t, "image-bytes-keep.png", parts["ppt/media/image1.png"])
}
