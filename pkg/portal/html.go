package portal

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/shpitdev/fiofix/pkg/pipeline/schema"
	"github.com/shpitdev/fiofix/pkg/textnorm"
)

// abbreviatedName matches rows that already read "Surname I. I.".
var abbreviatedName = regexp.MustCompile(`^[А-ЯЁ][а-яё]+ [А-ЯЁ]\. [А-ЯЁ]\.$`)

// page is a decoded HTML response.
type page struct {
	doc *goquery.Document
	url *url.URL
	enc encoding.Encoding
}

// parsePage decodes body using the charset from contentType, falling back to
// <meta> sniffing.
func parsePage(body []byte, contentType string, u *url.URL) (*page, error) {
	enc, _, _ := charset.DetermineEncoding(body, contentType)
	r := transform.NewReader(bytes.NewReader(body), enc.NewDecoder())
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &page{doc: doc, url: u, enc: enc}, nil
}

// rosterPage extracts author rows and whether a next page exists.
func (p *page) rosterPage(keepAbbreviated bool) (rows []schema.NameRecord, skipped int, hasNext bool) {
	p.doc.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		name := strings.TrimSpace(tr.Find("a.link-dark").First().Text())
		href, ok := tr.Find("a.link-primaru").First().Attr("href")
		if name == "" || !ok || strings.TrimSpace(href) == "" {
			return
		}
		if !keepAbbreviated && abbreviatedName.MatchString(textnorm.NFC(name)) {
			skipped++
			return
		}
		rows = append(rows, schema.NameRecord{Name: name, Link: p.resolve(href)})
	})

	next := p.doc.Find("li#alist_next")
	hasNext = next.Length() > 0 && !next.HasClass("disabled")
	return rows, skipped, hasNext
}

func (p *page) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	rel, err := url.Parse(ref)
	if err != nil || p.url == nil {
		return ref
	}
	return p.url.ResolveReference(rel).String()
}

// profileForm is the form that edits an author's name.
type profileForm struct {
	method string
	action string
	fields url.Values
	order  []string
}

func (p *page) profileForm() (*profileForm, error) {
	form := p.doc.Find("form").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find(`input[name="fio"]`).Length() > 0
	}).First()
	if form.Length() == 0 {
		return nil, ErrFormNotFound
	}

	f := &profileForm{
		method: strings.ToUpper(strings.TrimSpace(form.AttrOr("method", "GET"))),
		action: p.resolve(form.AttrOr("action", "")),
		fields: url.Values{},
	}
	if f.method != "POST" {
		f.method = "GET"
	}
	add := func(name, value string) {
		if _, seen := f.fields[name]; !seen {
			f.order = append(f.order, name)
		}
		f.fields.Add(name, value)
	}

	form.Find("input, textarea, select").Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.AttrOr("name", ""))
		if name == "" {
			return
		}
		if _, disabled := s.Attr("disabled"); disabled {
			return
		}
		switch goquery.NodeName(s) {
		case "textarea":
			add(name, s.Text())
		case "select":
			opt := s.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = s.Find("option").First()
			}
			if opt.Length() > 0 {
				add(name, opt.AttrOr("value", strings.TrimSpace(opt.Text())))
			}
		default:
			switch strings.ToLower(s.AttrOr("type", "text")) {
			case "submit", "button", "image", "reset", "file":
				return
			case "checkbox", "radio":
				if _, checked := s.Attr("checked"); !checked {
					return
				}
				add(name, s.AttrOr("value", "on"))
			default:
				add(name, s.AttrOr("value", ""))
			}
		}
	})
	return f, nil
}

// encode serializes the fields in the page's charset, field order preserved.
func (f *profileForm) encode(enc encoding.Encoding) (string, error) {
	e := enc.NewEncoder()
	var b strings.Builder
	for _, name := range f.order {
		k, err := e.String(name)
		if err != nil {
			return "", fmt.Errorf("encode field %q: %w", name, err)
		}
		for _, v := range f.fields[name] {
			ev, err := e.String(v)
			if err != nil {
				return "", fmt.Errorf("encode value of %q: %w", name, err)
			}
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(ev))
		}
	}
	return b.String(), nil
}
