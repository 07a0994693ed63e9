package resume

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodePhotoData accepts standard base64 with or without padding.
func DecodePhotoData(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	raw, err := base64.StdEncoding.DecodeString(data)
	if err == nil {
		return raw, nil
	}
	raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(data, "="))
	if rawErr != nil {
		return nil, fmt.Errorf("decode base64 photo: %w", err)
	}
	return raw, nil
}

// HasData reports whether the photo carries any image bytes; an empty photo
// object is treated the same as no photo.
func (p *Photo) HasData() bool {
	return p != nil && strings.TrimSpace(p.Data) != ""
}
