// Package opengraph extracts Open Graph metadata from web pages.
package opengraph

// Image is one og:image entry together with its structured properties
type Image struct {
	URL       string `json:"url"`
	SecureURL string `json:"secure_url,omitempty"`
	Type      string `json:"type,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Alt       string `json:"alt,omitempty"`
}

// Metadata is the Open Graph description of a page. Every field may be
// empty when the page does not declare it.
type Metadata struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	SiteName    string  `json:"site_name,omitempty"`
	Type        string  `json:"type,omitempty"`
	URL         string  `json:"url,omitempty"`
	Images      []Image `json:"images,omitempty"`
}

// FirstImage returns the URL of the first declared image, or "".
func (m *Metadata) FirstImage() string {
	if m == nil || len(m.Images) == 0 {
		return ""
	}
	return m.Images[0].URL
}

// Empty reports whether no metadata was found
func (m *Metadata) Empty() bool {
	return m == nil || (m.Title == "" && m.Description == "" && m.SiteName == "" &&
		m.Type == "" && m.URL == "" && len(m.Images) == 0)
}
