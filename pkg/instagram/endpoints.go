package instagram

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// GraphQLEndpoint is the persisted-query endpoint used for post lookups
	GraphQLEndpoint = "/graphql/query"

	// DefaultDocID identifies the persisted shortcode media query
	DefaultDocID = "8845758582119845"

	// DefaultAppID is the web client's application id
	DefaultAppID = "936619743392459"

	// ASBDID is sent alongside every GraphQL query by the web client
	ASBDID = "129477"
)

// shortcodePattern matches post paths with an optional leading username
// segment, e.g. /reel/Cxyz/ or /someone/p/Cxyz/.
var shortcodePattern = regexp.MustCompile(`^/(?:[A-Za-z0-9._]+/)?(?:p|reel|reels|tv)/([A-Za-z0-9_-]+)`)

// IsInstagramURL reports whether raw points at an Instagram host
func IsInstagramURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "instagram.com" || strings.HasSuffix(host, ".instagram.com") ||
		host == "instagr.am"
}

// IsShareURL reports whether raw is a /share/ link that must be followed
// to learn the real post path.
func IsShareURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return strings.HasPrefix(u.Path, "/share/")
}

// ExtractShortcode returns the post shortcode from an Instagram post, reel
// or tv URL.
func ExtractShortcode(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	m := shortcodePattern.FindStringSubmatch(u.Path)
	if m == nil {
		return "", fmt.Errorf("no post shortcode in %q", u.Path)
	}
	return m[1], nil
}

// GetPostURL constructs the URL for a specific post
func GetPostURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/p/%s/", BaseURL, shortcode)
}

// GetReelURL constructs the canonical URL for a reel
func GetReelURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/reel/%s/", BaseURL, shortcode)
}

// graphQLForm builds the form body for a shortcode media query
func graphQLForm(docID, shortcode string) url.Values {
	form := url.Values{}
	form.Set("variables", fmt.Sprintf(`{"shortcode":%q}`, shortcode))
	form.Set("doc_id", docID)
	return form
}
