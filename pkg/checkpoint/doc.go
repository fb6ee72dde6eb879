// Package checkpoint records the progress of a download batch so an
// interrupted or partly failed `reelproxy download` can be resumed.
//
// The checkpoint lives in the output directory next to the media it
// describes. It lists the batch's URLs in submission order and the outcome
// of each one; resuming re-submits every URL that has not been saved or
// skipped. Writes are atomic (temp file + rename) and the file carries a
// version for future format changes.
package checkpoint
