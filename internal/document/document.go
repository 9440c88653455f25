// Package document extracts plain text from uploaded CVs and job requirements.
package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// MaxSize bounds how much of an upload is read.
const MaxSize = 20 << 20

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

var (
	ErrUnsupported = errors.New("unsupported document format")
	ErrTooLarge    = errors.New("document is too large")
)

// Extensions lists the accepted file extensions.
var Extensions = []string{".docx", ".html", ".htm", ".txt", ".md"}

// IngestionError reports a document that could not be read.
type IngestionError struct {
	Name string
	Err  error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("cannot read %q: %v", e.Name, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// ExtractFile reads the file at path and returns its text.
func ExtractFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &IngestionError{Name: filepath.Base(path), Err: err}
	}
	defer f.Close()

	return Extract(filepath.Base(path), f)
}

// Extract picks a reader by the extension of name and returns the document text,
// trimmed. A readable document without text yields "".
func Extract(name string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))

	var convert func([]byte) (string, error)
	switch ext {
	case ".docx":
		convert = docxText
	case ".html", ".htm":
		convert = htmlText
	case ".txt", ".md":
		convert = plainText
	default:
		return "", &IngestionError{Name: name, Err: fmt.Errorf("%w: %q", ErrUnsupported, ext)}
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return "", &IngestionError{Name: name, Err: err}
	}
	if len(data) > MaxSize {
		return "", &IngestionError{Name: name, Err: ErrTooLarge}
	}

	text, err := convert(data)
	if err != nil {
		return "", &IngestionError{Name: name, Err: err}
	}

	return strings.TrimSpace(text), nil
}

func plainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), "�"), nil
	}
	return string(data), nil
}

func htmlText(data []byte) (string, error) {
	md, err := htmltomarkdown.ConvertString(string(data))
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}
	return md, nil
}

// docxText joins the paragraphs of word/document.xml with newlines.
func docxText(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}

	var body *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return "", errors.New("word/document.xml not found")
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("open document body: %w", err)
	}
	defer rc.Close()

	return paragraphs(xml.NewDecoder(rc))
}

func paragraphs(dec *xml.Decoder) (string, error) {
	var (
		out    []string
		para   strings.Builder
		inText bool
		inTabs bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tabs":
				inTabs = true
			case "tab":
				if !inTabs {
					para.WriteString("\t")
				}
			case "br", "cr":
				para.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "tabs":
				inTabs = false
			case "p":
				out = append(out, para.String())
				para.Reset()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}

	return strings.Join(out, "\n"), nil
}
