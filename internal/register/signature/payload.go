package signature

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"strings"

	"github.com/pkg/errors"
)

// PayloadPrefix starts every payload the pad emits.
const PayloadPrefix = "data:image/png;base64,"

var ErrInvalidPayload = errors.New("invalid signature payload")

// Encode renders img as a PNG data URI.
func Encode(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", errors.Wrap(err, "encode png")
	}
	return PayloadPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode parses a payload produced by Encode. The PNG header is checked
// before any pixels are decoded; images larger than MaxWidth x MaxHeight are
// rejected.
func Decode(payload string) (image.Image, error) {
	data, ok := strings.CutPrefix(strings.TrimSpace(payload), PayloadPrefix)
	if !ok {
		return nil, errors.Wrap(ErrInvalidPayload, "not a PNG data URI")
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPayload, "base64: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPayload, "png: %v", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || !FitsSurface(cfg.Width, cfg.Height) {
		return nil, errors.Wrapf(ErrInvalidPayload, "image is %dx%d", cfg.Width, cfg.Height)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPayload, "png: %v", err)
	}
	return img, nil
}
