package calibration

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
)

// Workbook maps sheet names to rows of cell text. Rows keep their column
// positions: a cell in column C is always at index 2.
type Workbook map[string][][]string

// Sheet returns the rows of the named sheet, or nil.
func (w Workbook) Sheet(name string) [][]string {
	return w[name]
}

type xlsxWorkbook struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

type xlsxRels struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type xlsxRichText struct {
	T string `xml:"t"`
	R []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (r xlsxRichText) text() string {
	if len(r.R) == 0 {
		return r.T
	}
	var sb strings.Builder
	sb.WriteString(r.T)
	for _, run := range r.R {
		sb.WriteString(run.T)
	}
	return sb.String()
}

type xlsxSST struct {
	Items []xlsxRichText `xml:"si"`
}

type xlsxSheet struct {
	Rows []struct {
		Cells []struct {
			Ref    string        `xml:"r,attr"`
			Type   string        `xml:"t,attr"`
			Value  *string       `xml:"v"`
			Inline *xlsxRichText `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

// ReadWorkbook reads every sheet of an .xlsx file.
func ReadWorkbook(filename string) (Workbook, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", filename, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat workbook %s: %w", filename, err)
	}
	return ParseWorkbook(f, info.Size())
}

// ParseWorkbook reads an .xlsx archive from r.
func ParseWorkbook(r io.ReaderAt, size int64) (Workbook, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("not an xlsx archive: %w", err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var wb xlsxWorkbook
	if err := decodeMember(files, "xl/workbook.xml", &wb); err != nil {
		return nil, err
	}
	var rels xlsxRels
	if err := decodeMember(files, "xl/_rels/workbook.xml.rels", &rels); err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels.Rels))
	for _, rel := range rels.Rels {
		targets[rel.ID] = rel.Target
	}

	var shared []string
	if _, ok := files["xl/sharedStrings.xml"]; ok {
		var sst xlsxSST
		if err := decodeMember(files, "xl/sharedStrings.xml", &sst); err != nil {
			return nil, err
		}
		shared = make([]string, len(sst.Items))
		for i, si := range sst.Items {
			shared[i] = si.text()
		}
	}

	out := make(Workbook, len(wb.Sheets))
	for _, sh := range wb.Sheets {
		target := targets[sh.RID]
		if target == "" {
			continue
		}
		member := strings.TrimPrefix(target, "/")
		if !strings.HasPrefix(member, "xl/") {
			member = path.Join("xl", member)
		}

		var sheet xlsxSheet
		if err := decodeMember(files, member, &sheet); err != nil {
			return nil, err
		}
		rows := make([][]string, 0, len(sheet.Rows))
		for _, row := range sheet.Rows {
			var cells []string
			for i, c := range row.Cells {
				col := i
				if ci := columnIndex(c.Ref); ci >= 0 {
					col = ci
				}
				for len(cells) <= col {
					cells = append(cells, "")
				}
				cells[col] = cellText(c.Type, c.Value, c.Inline, shared)
			}
			rows = append(rows, cells)
		}
		out[sh.Name] = rows
	}
	return out, nil
}

func decodeMember(files map[string]*zip.File, name string, v interface{}) error {
	f, ok := files[name]
	if !ok {
		return fmt.Errorf("xlsx member %s missing", name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func cellText(typ string, value *string, inline *xlsxRichText, shared []string) string {
	if value == nil {
		if inline != nil {
			return inline.text()
		}
		return ""
	}
	if typ == "s" {
		if idx, err := strconv.Atoi(strings.TrimSpace(*value)); err == nil && idx >= 0 && idx < len(shared) {
			return shared[idx]
		}
	}
	return *value
}

// columnIndex turns the letters of a cell reference such as "AB12" into a
// zero-based column index.
func columnIndex(ref string) int {
	idx := 0
	for _, ch := range strings.ToUpper(ref) {
		if ch < 'A' || ch > 'Z' {
			break
		}
		idx = idx*26 + int(ch-'A'+1)
	}
	return idx - 1
}

// parseNumber accepts thousands separators and surrounding space.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
