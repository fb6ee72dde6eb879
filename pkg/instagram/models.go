package instagram

// Typenames reported for shortcode media
const (
	TypenameVideo   = "XDTGraphVideo"
	TypenameImage   = "XDTGraphImage"
	TypenameSidecar = "XDTGraphSidecar"
)

// GraphQLResponse is the envelope returned by the persisted query endpoint
type GraphQLResponse struct {
	Data         *GraphQLData `json:"data"`
	Status       string       `json:"status"`
	Message      string       `json:"message,omitempty"`
	RequireLogin bool         `json:"require_login,omitempty"`
	Spam         bool         `json:"spam,omitempty"`
	Errors       []struct {
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

// GraphQLData wraps the shortcode media. Media is nil for unknown or
// private posts.
type GraphQLData struct {
	Media *ShortcodeMedia `json:"xdt_shortcode_media"`
}

// ShortcodeMedia represents a single post, reel or carousel
type ShortcodeMedia struct {
	Typename         string          `json:"__typename"`
	ID               string          `json:"id"`
	Shortcode        string          `json:"shortcode"`
	IsVideo          bool            `json:"is_video"`
	VideoURL         string          `json:"video_url"`
	DisplayURL       string          `json:"display_url"`
	ThumbnailSrc     string          `json:"thumbnail_src"`
	VideoDuration    float64         `json:"video_duration"`
	ProductType      string          `json:"product_type"`
	TakenAtTimestamp int64           `json:"taken_at_timestamp"`
	Dimensions       Dimensions      `json:"dimensions"`
	Owner            Owner           `json:"owner"`
	Caption          CaptionEdges    `json:"edge_media_to_caption"`
	Children         *SidecarEdges   `json:"edge_sidecar_to_children,omitempty"`
	DisplayResources []DisplayResult `json:"display_resources,omitempty"`
}

// Dimensions of a media item in pixels
type Dimensions struct {
	Height int `json:"height"`
	Width  int `json:"width"`
}

// Owner of a post
type Owner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// CaptionEdges holds the caption text nodes of a post
type CaptionEdges struct {
	Edges []struct {
		Node struct {
			Text string `json:"text"`
		} `json:"node"`
	} `json:"edges"`
}

// SidecarEdges holds the children of a carousel
type SidecarEdges struct {
	Edges []struct {
		Node ShortcodeMedia `json:"node"`
	} `json:"edges"`
}

// DisplayResult is one rendition of an image
type DisplayResult struct {
	Src          string `json:"src"`
	ConfigWidth  int    `json:"config_width"`
	ConfigHeight int    `json:"config_height"`
}

// MediaType classifies a resolved media item
type MediaType string

const (
	MediaTypeVideo MediaType = "video"
	MediaTypeImage MediaType = "image"
)

// MediaDetails describes one downloadable item of a post
type MediaDetails struct {
	Type      MediaType `json:"type"`
	URL       string    `json:"url"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	Duration  float64   `json:"duration,omitempty"`
}

// MediaLinks is the result of resolving a post URL. URLList holds the
// direct media URLs in presentation order.
type MediaLinks struct {
	Shortcode string         `json:"shortcode"`
	URLList   []string       `json:"url_list"`
	Media     []MediaDetails `json:"media_details"`
	Owner     string         `json:"owner,omitempty"`
	Caption   string         `json:"caption,omitempty"`
	TakenAt   int64          `json:"taken_at,omitempty"`
}

// CaptionText returns the first caption node's text
func (m *ShortcodeMedia) CaptionText() string {
	if len(m.Caption.Edges) == 0 {
		return ""
	}
	return m.Caption.Edges[0].Node.Text
}

// details converts a media node into MediaDetails
func (m *ShortcodeMedia) details() MediaDetails {
	d := MediaDetails{
		Type:      MediaTypeImage,
		URL:       m.DisplayURL,
		Thumbnail: m.ThumbnailSrc,
		Width:     m.Dimensions.Width,
		Height:    m.Dimensions.Height,
	}
	if d.Thumbnail == "" {
		d.Thumbnail = m.DisplayURL
	}
	if m.IsVideo && m.VideoURL != "" {
		d.Type = MediaTypeVideo
		d.URL = m.VideoURL
		d.Duration = m.VideoDuration
	}
	return d
}

// toLinks flattens a media node into MediaLinks. Carousel children are
// listed in order; items without any URL are skipped.
func (m *ShortcodeMedia) toLinks() *MediaLinks {
	links := &MediaLinks{
		Shortcode: m.Shortcode,
		Owner:     m.Owner.Username,
		Caption:   m.CaptionText(),
		TakenAt:   m.TakenAtTimestamp,
		URLList:   []string{},
		Media:     []MediaDetails{},
	}

	add := func(node *ShortcodeMedia) {
		d := node.details()
		if d.URL == "" {
			return
		}
		links.URLList = append(links.URLList, d.URL)
		links.Media = append(links.Media, d)
	}

	if m.Typename == TypenameSidecar && m.Children != nil && len(m.Children.Edges) > 0 {
		for i := range m.Children.Edges {
			add(&m.Children.Edges[i].Node)
		}
		return links
	}

	add(m)
	return links
}
