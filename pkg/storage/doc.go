// Package storage writes downloaded media into an output directory.
//
// Files are named after the post shortcode with the extension taken from the
// media URL (abc123.mp4, abc123.jpg). Writes go to a temporary file that is
// renamed into place, so a crashed download never leaves a file that looks
// complete. The Manager scans the directory once at startup and keeps an
// in-memory index for duplicate detection.
//
//	store, err := storage.NewManager("downloads")
//	if err != nil {
//	    return err
//	}
//	if !store.IsDownloaded("abc123") {
//	    path, size, err := store.Save(body, "abc123", storage.ExtensionFor(mediaURL))
//	    ...
//	}
package storage
