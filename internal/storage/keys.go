package storage

import (
	"fmt"
	"path"
	"strings"
)

const (
	menuPrefix   = "menus"
	speechPrefix = "speech"
)

// MenuImageKey returns the content-addressed key of a menu photo, sharded by
// the first two hex digits of its MD5 so identical uploads share one object.
// Example: menus/3f/3fa2...e1.jpg
func MenuImageKey(md5Hex, ext string) string {
	md5Hex = strings.ToLower(md5Hex)
	shard := md5Hex
	if len(shard) > 2 {
		shard = shard[:2]
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "jpeg" {
		ext = "jpg"
	}
	return path.Join(menuPrefix, shard, fmt.Sprintf("%s.%s", md5Hex, ext))
}

// SpeechKey returns the key of the narration audio for a scan.
func SpeechKey(scanID string) string {
	return path.Join(speechPrefix, scanID+".mp3")
}
