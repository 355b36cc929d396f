package types

import (
	"encoding/base64"
	"fmt"
)

// Common image MIME types.
const (
	MIMETypePNG  = "image/png"
	MIMETypeJPEG = "image/jpeg"
	MIMETypeWebP = "image/webp"
)

// Image is an in-memory image payload: raw bytes plus their MIME type.
// Values are treated as immutable once constructed; execution runs hand the
// same backing bytes to every consumer.
type Image struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// NewImage creates an Image from raw bytes. An empty MIME type defaults
// to image/png, matching what the image model emits.
func NewImage(mimeType string, data []byte) Image {
	if mimeType == "" {
		mimeType = MIMETypePNG
	}
	return Image{MIMEType: mimeType, Data: data}
}

// ImageFromBase64 decodes a standard-base64 payload into an Image.
func ImageFromBase64(mimeType, encoded string) (Image, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Image{}, fmt.Errorf("decode image payload: %w", err)
	}
	return NewImage(mimeType, data), nil
}

// Base64 returns the standard-base64 encoding of the image bytes, the form
// both the model wire format and the API DTOs carry.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// IsZero reports whether the image carries no payload.
func (i Image) IsZero() bool {
	return len(i.Data) == 0
}

// Size returns the payload size in bytes.
func (i Image) Size() int {
	return len(i.Data)
}
