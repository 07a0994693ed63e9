package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"resumeRender/internal/resume"
)

const maxPhotoBytes = 2 << 20

// 照片裁剪比例 3:4（宽:高）
const (
	photoRatioW = 3
	photoRatioH = 4
)

var jpegQualityLadder = []int{90, 80, 70, 60, 50}

// 无法解码时只允许这些类型原样透传。
var passthroughMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var errPhotoTooLarge = errors.New("photo exceeds size limit after compression")

// photoDataURI 将照片裁剪为 3:4 并压缩为 JPEG，返回可直接用于 <img src> 的 data URI。
func photoDataURI(data, mimeType string) (template.URL, error) {
	raw, err := resume.DecodePhotoData(data)
	if err != nil {
		return "", err
	}

	out, outMime, err := processPhoto(raw, mimeType)
	if err != nil {
		return "", err
	}
	return template.URL("data:" + outMime + ";base64," + base64.StdEncoding.EncodeToString(out)), nil
}

func processPhoto(raw []byte, mimeType string) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		mimeType = strings.ToLower(strings.TrimSpace(mimeType))
		if len(raw) <= maxPhotoBytes && passthroughMimeTypes[mimeType] {
			return raw, mimeType, nil
		}
		return nil, "", fmt.Errorf("decode photo: %w", err)
	}

	cropped := cropToRatio(img, photoRatioW, photoRatioH)
	for _, quality := range jpegQualityLadder {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, cropped, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, "", fmt.Errorf("encode jpeg: %w", err)
		}
		if buf.Len() <= maxPhotoBytes {
			return buf.Bytes(), "image/jpeg", nil
		}
	}
	return nil, "", errPhotoTooLarge
}

// cropToRatio keeps the largest centred region with aspect w:h.
func cropToRatio(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return img
	}

	targetW, targetH := width, width*h/w
	if targetH > height {
		targetW, targetH = height*w/h, height
	}
	if targetW == width && targetH == height {
		return img
	}
	return imaging.CropCenter(img, targetW, targetH)
}
