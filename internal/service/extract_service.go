package service

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/gen2brain/go-fitz"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExtractedSection is a titled chunk of document text produced by the
// parser collaborator, not yet bound to a document id.
type ExtractedSection struct {
	Title string
	Text  string
}

// SectionExtractor is the document parser collaborator contract.
type SectionExtractor interface {
	ExtractSections(ctx context.Context, path, extension string) ([]ExtractedSection, error)
}

type ExtractService struct {
	maxChars int
	logger   *zap.Logger
}

func NewExtractService(maxChars int, logger *zap.Logger) *ExtractService {
	if maxChars <= 0 {
		maxChars = 2000
	}
	return &ExtractService{
		maxChars: maxChars,
		logger:   logger,
	}
}

// ExtractSections extracts text from the file and segments it into titled
// sections by structural markers: headings for prose formats, sheet
// boundaries for spreadsheets. Every section is bounded by the configured
// maximum size.
func (s *ExtractService) ExtractSections(ctx context.Context, path, extension string) ([]ExtractedSection, error) {
	var (
		raw []ExtractedSection
		err error
	)

	switch strings.ToLower(extension) {
	case ".pdf":
		raw, err = s.extractPDF(path)
	case ".txt":
		raw, err = s.extractPlainText(path)
	case ".docx":
		raw, err = s.extractDocx(path)
	case ".csv":
		raw, err = s.extractCSV(path)
	case ".xlsx":
		raw, err = s.extractXlsx(path)
	case ".xls":
		raw, err = s.extractLegacyXls(path)
	default:
		return nil, fmt.Errorf("unsupported extension %q", extension)
	}
	if err != nil {
		return nil, err
	}

	var sections []ExtractedSection
	for _, sec := range raw {
		text := strings.TrimSpace(sanitizeUTF8(sec.Text))
		if text == "" {
			continue
		}
		sections = append(sections, s.bound(sec.Title, text)...)
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("no text extracted from %s", path)
	}

	s.logger.Info("Document text extracted",
		zap.String("path", path),
		zap.String("extension", extension),
		zap.Int("sections", len(sections)),
	)
	return sections, nil
}

func (s *ExtractService) extractPDF(path string) ([]ExtractedSection, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var textBuilder strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			s.logger.Warn("Failed to extract text from page",
				zap.Int("page", i+1),
				zap.String("file", path),
				zap.Error(err),
			)
			continue
		}
		if pageText != "" {
			textBuilder.WriteString(pageText)
			textBuilder.WriteString("\n")
		}
	}

	return segmentByHeadings(textBuilder.String()), nil
}

func (s *ExtractService) extractPlainText(path string) ([]ExtractedSection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return segmentByHeadings(string(data)), nil
}

// extractDocx walks word/document.xml for paragraph text. Heading-styled
// paragraphs become section titles.
func (s *ExtractService) extractDocx(path string) ([]ExtractedSection, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open docx: %w", err)
	}
	defer reader.Close()

	var docXML io.ReadCloser
	for _, f := range reader.File {
		if f.Name == "word/document.xml" {
			docXML, err = f.Open()
			if err != nil {
				return nil, err
			}
			break
		}
	}
	if docXML == nil {
		return nil, fmt.Errorf("docx has no word/document.xml")
	}
	defer docXML.Close()

	var (
		builder   strings.Builder
		paragraph strings.Builder
	)
	decoder := xml.NewDecoder(docXML)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse docx: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			paragraph.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" {
				if text := strings.TrimSpace(paragraph.String()); text != "" {
					builder.WriteString(text)
					builder.WriteString("\n\n")
				}
				paragraph.Reset()
			}
		}
	}

	return segmentByHeadings(builder.String()), nil
}

func (s *ExtractService) extractCSV(path string) ([]ExtractedSection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	return []ExtractedSection{{Title: "Data", Text: joinRows(records)}}, nil
}

func (s *ExtractService) extractXlsx(path string) ([]ExtractedSection, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	var sections []ExtractedSection
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			s.logger.Warn("Failed to read sheet",
				zap.String("file", path),
				zap.String("sheet", sheet),
				zap.Error(err),
			)
			continue
		}
		sections = append(sections, ExtractedSection{Title: sheet, Text: joinRows(rows)})
	}
	return sections, nil
}

func (s *ExtractService) extractLegacyXls(path string) ([]ExtractedSection, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls: %w", err)
	}

	var sections []ExtractedSection
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		var rows [][]string
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				continue
			}
			var cells []string
			for c := row.FirstCol(); c <= row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, cells)
		}
		sections = append(sections, ExtractedSection{Title: sheet.Name, Text: joinRows(rows)})
	}
	return sections, nil
}

func joinRows(rows [][]string) string {
	var builder strings.Builder
	for _, row := range rows {
		var cells []string
		for _, cell := range row {
			if trimmed := strings.TrimSpace(cell); trimmed != "" {
				cells = append(cells, trimmed)
			}
		}
		if len(cells) == 0 {
			continue
		}
		builder.WriteString(strings.Join(cells, ", "))
		builder.WriteString("\n")
	}
	return builder.String()
}

// segmentByHeadings splits prose into titled sections. A short line without
// terminal punctuation starts a new section; text before the first heading
// goes into an "Introduction" section.
func segmentByHeadings(text string) []ExtractedSection {
	var (
		sections []ExtractedSection
		title    = "Introduction"
		body     strings.Builder
	)

	flush := func() {
		if trimmed := strings.TrimSpace(body.String()); trimmed != "" {
			sections = append(sections, ExtractedSection{Title: title, Text: trimmed})
		}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			body.WriteString("\n")
			continue
		}
		if isHeading(trimmed) {
			flush()
			title = trimmed
			continue
		}
		body.WriteString(trimmed)
		body.WriteString("\n")
	}
	flush()

	return sections
}

func isHeading(line string) bool {
	if len(line) > 80 || len(strings.Fields(line)) > 8 {
		return false
	}
	if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") || strings.HasPrefix(line, "*") {
		return false
	}
	last := line[len(line)-1]
	switch last {
	case '.', ',', ';', '!', '?':
		return false
	}
	return true
}

// bound splits section text that exceeds the size limit on paragraph
// boundaries, falling back to a hard cut for a single oversized paragraph.
func (s *ExtractService) bound(title, text string) []ExtractedSection {
	if len(text) <= s.maxChars {
		return []ExtractedSection{{Title: title, Text: text}}
	}

	var (
		sections []ExtractedSection
		current  strings.Builder
	)
	emit := func() {
		if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
			sections = append(sections, ExtractedSection{Title: title, Text: trimmed})
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n") {
		for len(para) > s.maxChars {
			cut := s.maxChars
			for cut > 0 && !utf8.RuneStart(para[cut]) {
				cut--
			}
			emit()
			sections = append(sections, ExtractedSection{Title: title, Text: strings.TrimSpace(para[:cut])})
			para = para[cut:]
		}
		if current.Len()+len(para)+1 > s.maxChars {
			emit()
		}
		current.WriteString(para)
		current.WriteString("\n")
	}
	emit()

	return sections
}
