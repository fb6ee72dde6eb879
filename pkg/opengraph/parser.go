package opengraph

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Parse reads an HTML document and extracts its Open Graph metadata.
// Tags may use either the property or the name attribute. Relative URLs are
// resolved against base when it is non-nil. Missing og:title,
// og:description and og:image fall back to <title>, the description meta
// tag and twitter:image respectively.
func Parse(r io.Reader, base *url.URL) (*Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return parseDocument(doc, base), nil
}

func parseDocument(doc *goquery.Document, base *url.URL) *Metadata {
	meta := &Metadata{}

	var (
		fallbackDescription string
		twitterImage        string
	)

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key := metaKey(s)
		if key == "" {
			return
		}
		content, ok := s.Attr("content")
		if !ok {
			return
		}
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}

		switch key {
		case "og:title":
			setOnce(&meta.Title, content)
		case "og:description":
			setOnce(&meta.Description, content)
		case "og:site_name":
			setOnce(&meta.SiteName, content)
		case "og:type":
			setOnce(&meta.Type, content)
		case "og:url":
			setOnce(&meta.URL, resolve(base, content))
		case "og:image":
			meta.Images = append(meta.Images, Image{URL: resolve(base, content)})
		case "og:image:url":
			img := lastImage(meta)
			if img.URL != "" {
				meta.Images = append(meta.Images, Image{})
				img = &meta.Images[len(meta.Images)-1]
			}
			img.URL = resolve(base, content)
		case "og:image:secure_url":
			lastImage(meta).SecureURL = resolve(base, content)
		case "og:image:type":
			lastImage(meta).Type = content
		case "og:image:alt":
			lastImage(meta).Alt = content
		case "og:image:width":
			if n, err := strconv.Atoi(content); err == nil {
				lastImage(meta).Width = n
			}
		case "og:image:height":
			if n, err := strconv.Atoi(content); err == nil {
				lastImage(meta).Height = n
			}
		case "description":
			setOnce(&fallbackDescription, content)
		case "twitter:image", "twitter:image:src":
			setOnce(&twitterImage, resolve(base, content))
		}
	})

	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("head title").First().Text())
		if meta.Title == "" {
			meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
		}
	}
	if meta.Description == "" {
		meta.Description = fallbackDescription
	}
	if meta.FirstImage() == "" && twitterImage != "" {
		meta.Images = append([]Image{{URL: twitterImage}}, meta.Images...)
	}

	return meta
}

// metaKey returns the lower-cased property or name of a meta tag
func metaKey(s *goquery.Selection) string {
	if p, ok := s.Attr("property"); ok && p != "" {
		return strings.ToLower(strings.TrimSpace(p))
	}
	if n, ok := s.Attr("name"); ok && n != "" {
		return strings.ToLower(strings.TrimSpace(n))
	}
	return ""
}

// lastImage returns the image structured properties attach to, creating
// one when none has been declared yet.
func lastImage(m *Metadata) *Image {
	if len(m.Images) == 0 {
		m.Images = append(m.Images, Image{})
	}
	return &m.Images[len(m.Images)-1]
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func resolve(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
