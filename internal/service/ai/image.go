package ai

import "strings"

const defaultImageMIME = "image/jpeg"

// ParseImageData splits a data-URI style base64 image string into its MIME
// type and raw base64 payload. The "data:<mime>;base64," prefix is optional;
// when the type cannot be determined it falls back to JPEG.
func ParseImageData(data string) (mime, payload string) {
	payload = data
	if strings.HasPrefix(data, "data:") {
		if idx := strings.Index(data, ","); idx >= 0 {
			meta := strings.TrimPrefix(data[:idx], "data:")
			payload = data[idx+1:]
			if semi := strings.Index(meta, ";"); semi >= 0 {
				meta = meta[:semi]
			}
			if meta != "" {
				return meta, payload
			}
		}
	}
	return sniffImageMIME(payload), payload
}

// sniffImageMIME recognizes the base64 signatures of the common formats.
func sniffImageMIME(payload string) string {
	switch {
	case strings.HasPrefix(payload, "/9j/"):
		return "image/jpeg"
	case strings.HasPrefix(payload, "iVBOR"):
		return "image/png"
	case strings.HasPrefix(payload, "R0lGOD"):
		return "image/gif"
	case strings.HasPrefix(payload, "UklGR"):
		return "image/webp"
	}
	return defaultImageMIME
}
