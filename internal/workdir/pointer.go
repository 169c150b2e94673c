package workdir

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	// ErrNoPointer is returned when the working directory has no publish pointer yet.
	ErrNoPointer = errors.New("no publish pointer")

	// ErrInvalidPointer is returned when the pointer does not reference a report.
	ErrInvalidPointer = errors.New("publish pointer does not reference a report")
)

var pointerTemplate = template.Must(template.New("pointer").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="0; url={{.Href}}">
<link rel="canonical" href="{{.Href}}">
<title>Foil Report</title>
</head>
<body>
<p><a href="{{.Href}}">{{.Name}}</a></p>
</body>
</html>
`))

// PointerDocument renders the redirect document that points at report.
func PointerDocument(report string) ([]byte, error) {
	if !IsReportName(report) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPointer, report)
	}
	var buf bytes.Buffer
	// The "./" prefix keeps the colon of the timestamp from reading as a URL scheme.
	data := struct{ Href, Name string }{Href: "./" + report, Name: report}
	if err := pointerTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render pointer: %w", err)
	}
	return buf.Bytes(), nil
}

// ParsePointer returns the report referenced by a pointer document.
// The meta refresh target wins; the first link is the fallback.
func ParsePointer(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse pointer: %w", err)
	}

	var target string
	doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(s.AttrOr("http-equiv", ""), "refresh") {
			return true
		}
		target = refreshURL(s.AttrOr("content", ""))
		return target == ""
	})
	if target == "" {
		target = doc.Find("a[href]").First().AttrOr("href", "")
	}

	name := path.Base(strings.TrimSpace(target))
	if !IsReportName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPointer, target)
	}
	return name, nil
}

// refreshURL extracts the url= part of a meta refresh content attribute.
func refreshURL(content string) string {
	_, rest, ok := strings.Cut(content, ";")
	if !ok {
		return ""
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 4 || !strings.EqualFold(rest[:4], "url=") {
		return ""
	}
	return strings.Trim(strings.TrimSpace(rest[4:]), `'"`)
}

// CurrentReport returns the report the publish pointer references.
// It returns ErrNoPointer when there is no pointer yet.
func (d *Dir) CurrentReport() (string, error) {
	f, err := d.Open(PointerName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoPointer
		}
		return "", fmt.Errorf("failed to open pointer: %w", err)
	}
	defer f.Close()

	return ParsePointer(f)
}

// WritePointer atomically repoints the publish pointer at report.
// The report must exist in the directory.
func (d *Dir) WritePointer(report string) error {
	if !d.Exists(report) {
		return fmt.Errorf("%w: %s does not exist", ErrInvalidPointer, report)
	}
	doc, err := PointerDocument(report)
	if err != nil {
		return err
	}
	return d.WriteFileAtomic(PointerName, doc)
}

// HasDocumentMarker reports whether r starts with an HTML document marker:
// a doctype of html or an <html> start tag. Leading whitespace, comments and
// a byte order mark are allowed.
func HasDocumentMarker(r io.Reader) (bool, error) {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return false, nil
			}
			return false, z.Err()
		case html.TextToken:
			if strings.TrimSpace(strings.TrimPrefix(string(z.Text()), "\ufeff")) == "" {
				continue
			}
			return false, nil
		case html.CommentToken:
			continue
		case html.DoctypeToken:
			fields := strings.Fields(string(z.Text()))
			return len(fields) > 0 && strings.EqualFold(fields[0], "html"), nil
		case html.StartTagToken:
			name, _ := z.TagName()
			return atom.Lookup(name) == atom.Html, nil
		default:
			return false, nil
		}
	}
}
