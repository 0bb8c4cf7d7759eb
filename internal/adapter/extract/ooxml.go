package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Office Open XML documents are zip archives of XML parts. Only the text
// runs are read; layout and formatting are ignored.

// extractDOCX returns the document body, one paragraph per line.
func extractDOCX(p string) (string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	f := findPart(&zr.Reader, "word/document.xml")
	if f == nil {
		return "", fmt.Errorf("word/document.xml not found")
	}
	return paragraphText(f, "t", "p")
}

// extractPPTX returns slide text in slide order.
func extractPPTX(p string) (string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	var slides []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f)
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slideNumber(slides[i].Name) < slideNumber(slides[j].Name) })

	var parts []string
	for _, f := range slides {
		text, err := paragraphText(f, "t", "p")
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// extractXLSX returns every row of every sheet with cells joined by tabs.
func extractXLSX(p string) (string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	var shared []string
	if f := findPart(&zr.Reader, "xl/sharedStrings.xml"); f != nil {
		if shared, err = sharedStrings(f); err != nil {
			return "", err
		}
	}

	var sheets []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "xl/worksheets/sheet") && strings.HasSuffix(f.Name, ".xml") {
			sheets = append(sheets, f)
		}
	}
	sort.Slice(sheets, func(i, j int) bool { return slideNumber(sheets[i].Name) < slideNumber(sheets[j].Name) })

	var rows []string
	for _, f := range sheets {
		sheetRows, err := sheetText(f, shared)
		if err != nil {
			return "", err
		}
		rows = append(rows, sheetRows...)
	}
	return strings.Join(rows, "\n"), nil
}

func findPart(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// slideNumber extracts N from ".../slideN.xml" or ".../sheetN.xml".
func slideNumber(name string) int {
	base := strings.TrimSuffix(path.Base(name), ".xml")
	digits := strings.TrimLeft(base, "abcdefghijklmnopqrstuvwxyz")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// paragraphText concatenates the character data of textLocal elements and
// emits a newline at the end of each paraLocal element.
func paragraphText(f *zip.File, textLocal, paraLocal string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var b strings.Builder
	var line strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == textLocal {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case textLocal:
				inText = false
			case paraLocal:
				if s := strings.TrimSpace(line.String()); s != "" {
					b.WriteString(s)
					b.WriteByte('\n')
				}
				line.Reset()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	if s := strings.TrimSpace(line.String()); s != "" {
		b.WriteString(s)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func sharedStrings(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var out []string
	var cur strings.Builder
	inItem, inText := false, false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "si":
				inItem = true
				cur.Reset()
			case "t":
				inText = inItem
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "si":
				out = append(out, cur.String())
				inItem = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return out, nil
}

func sheetText(f *zip.File, shared []string) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var rows []string
	var cells []string
	var value strings.Builder
	cellType := ""
	inValue := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "row":
				cells = cells[:0]
			case "c":
				cellType = ""
				for _, a := range t.Attr {
					if a.Name.Local == "t" {
						cellType = a.Value
					}
				}
				value.Reset()
			case "v", "t":
				inValue = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "v", "t":
				inValue = false
			case "c":
				v := value.String()
				if cellType == "s" {
					if i, err := strconv.Atoi(v); err == nil && i >= 0 && i < len(shared) {
						v = shared[i]
					}
				}
				cells = append(cells, v)
			case "row":
				if line := strings.Join(cells, "\t"); strings.TrimSpace(line) != "" {
					rows = append(rows, line)
				}
			}
		case xml.CharData:
			if inValue {
				value.Write(t)
			}
		}
	}
	return rows, nil
}
