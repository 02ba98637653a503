package service

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ImageInfo describes an uploaded menu photo.
type ImageInfo struct {
	Format  string // jpeg, png, gif or webp
	Width   int
	Height  int
	MD5Hash string
	Size    int
}

// InspectImage decodes only the image header to learn its format and size.
// Parameters:
//   - data: raw image bytes.
// Returns:
//   - *ImageInfo: format, dimensions and MD5 of the payload.
//   - error: wraps ErrUnsupportedImage if the bytes are not a known image.
func InspectImage(data []byte) (*ImageInfo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrUnsupportedImage)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedImage, err)
	}

	return &ImageInfo{
		Format:  format,
		Width:   cfg.Width,
		Height:  cfg.Height,
		MD5Hash: calculateMD5(data),
		Size:    len(data),
	}, nil
}

func calculateMD5(data []byte) string {
	hash := md5.Sum(data)
	return hex.EncodeToString(hash[:])
}

func getContentType(format string) string {
	switch format {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
