// Package metadata writes the JSON sidecar stored next to each downloaded
// media file.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelproxy/pkg/reel"
)

// ReelMetadata describes one downloaded reel
type ReelMetadata struct {
	Shortcode    string `json:"shortcode"`
	SourceURL    string `json:"source_url"`
	MediaURL     string `json:"media_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Caption      string `json:"caption"`
	Extension    string `json:"extension"`

	FileName     string    `json:"file_name"`
	FileSize     int64     `json:"file_size"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// FromResult builds a sidecar from a resolution result
func FromResult(sourceURL, shortcode string, result *reel.Result) *ReelMetadata {
	meta := &ReelMetadata{
		Shortcode:    shortcode,
		SourceURL:    sourceURL,
		DownloadedAt: time.Now().UTC(),
	}
	if result != nil {
		meta.MediaURL = result.MediaURL
		meta.ThumbnailURL = result.ThumbnailURL
		meta.Caption = result.Caption
	}
	return meta
}

// SidecarPath returns the sidecar location for a media file
func SidecarPath(mediaPath string) string {
	return mediaPath + ".json"
}

// Save writes the sidecar next to mediaPath and records the file name and size
func (m *ReelMetadata) Save(mediaPath string, size int64) error {
	m.FileName = filepath.Base(mediaPath)
	m.Extension = filepath.Ext(mediaPath)
	m.FileSize = size

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	target := SidecarPath(mediaPath)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// Load reads the sidecar of a media file
func Load(mediaPath string) (*ReelMetadata, error) {
	data, err := os.ReadFile(SidecarPath(mediaPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var meta ReelMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &meta, nil
}

// Exists reports whether a sidecar exists for mediaPath
func Exists(mediaPath string) bool {
	_, err := os.Stat(SidecarPath(mediaPath))
	return err == nil
}

// ShortCaption flattens the caption to one line and truncates it to max runes
func (m *ReelMetadata) ShortCaption(max int) string {
	caption := strings.Join(strings.Fields(m.Caption), " ")
	r := []rune(caption)
	if max <= 3 || len(r) <= max {
		return caption
	}
	return string(r[:max-3]) + "..."
}
