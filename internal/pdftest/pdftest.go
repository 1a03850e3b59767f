// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftest generates small, well-formed PDF files for tests. Pages
// carry a light solid background and a gray box at the NotebookLM watermark
// position, so rendering and cover tests have known pixels to look at.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Doc describes a fixture document.
type Doc struct {
	Pages  int
	Width  float64 // points; 612 when zero
	Height float64 // points; 792 when zero
	Title  string
	Author string

	// NoMark omits the gray watermark box.
	NoMark bool

	// Empty emits a document whose page tree has no kids. Pages is ignored.
	Empty bool
}

// Write generates a PDF under dir and returns its path.
func Write(t *testing.T, dir, name string, d Doc) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Bytes(d), 0o644); err != nil {
		t.Fatalf("writing fixture PDF: %v", err)
	}
	return path
}

// Bytes renders the document to raw PDF bytes. Object layout: 1 catalog,
// 2 page tree, then one page and one content stream per page, then the
// info dictionary.
func Bytes(d Doc) []byte {
	if d.Empty {
		d.Pages = 0
	} else if d.Pages <= 0 {
		d.Pages = 1
	}
	if d.Width == 0 {
		d.Width = 612
	}
	if d.Height == 0 {
		d.Height = 792
	}

	var buf bytes.Buffer
	offsets := make([]int, 0, 3+2*d.Pages)

	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	pageObj := func(i int) int { return 3 + 2*i }
	contentObj := func(i int) int { return 4 + 2*i }
	infoObj := 3 + 2*d.Pages

	writeObj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := 0; i < d.Pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", pageObj(i))
	}
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, d.Pages))

	for i := 0; i < d.Pages; i++ {
		writeObj(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << >> /Contents %d 0 R >>",
			d.Width, d.Height, contentObj(i)))

		content := fmt.Sprintf("q\n0.90 0.90 0.95 rg\n0 0 %g %g re f\n", d.Width, d.Height)
		if !d.NoMark {
			// Bottom-right box matching the NotebookLM placement
			// (PDF coordinates, origin bottom-left).
			content += fmt.Sprintf("0.50 0.50 0.50 rg\n%g 5 110 25 re f\n", d.Width-115)
		}
		content += "Q\n"
		writeObj(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content))
	}

	writeObj(fmt.Sprintf("<< /Title (%s) /Author (%s) >>", d.Title, d.Author))

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info %d 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, infoObj, xrefOffset)

	return buf.Bytes()
}
