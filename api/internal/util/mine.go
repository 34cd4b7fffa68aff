package util

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"strings"
)

var (
	magicJPEG = []byte{0xFF, 0xD8}
	magicPNG  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	magicPDF  = []byte("%PDF-")
)

// SniffMimeForOCR — формат в терминах Yandex Vision: JPEG | PNG | PDF, иначе "".
func SniffMimeForOCR(b []byte) string {
	switch {
	case bytes.HasPrefix(b, magicJPEG):
		return "JPEG"
	case bytes.HasPrefix(b, magicPNG):
		return "PNG"
	case bytes.HasPrefix(b, magicPDF):
		return "PDF"
	}
	return ""
}

func MakeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64MaybeDataURL декодирует base64. Если это data:URI, вернёт MIME из префикса.
func DecodeBase64MaybeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var hintMIME string
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		// data:<mime>;base64,<payload>
		if meta, payload, found := strings.Cut(rest, ","); found {
			hintMIME, _, _ = strings.Cut(meta, ";")
			s = payload
		}
	}
	// Стандартная база64, затем URL-safe — на случай вариаций
	b, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return b, hintMIME, nil
	}
	if b2, err2 := base64.URLEncoding.DecodeString(s); err2 == nil {
		return b2, hintMIME, nil
	}
	return nil, "", err
}

// PickMIME берём явный MIME, затем из data:URI, иначе детектим по байтам.
func PickMIME(explicit, hint string, data []byte) string {
	if exp := strings.TrimSpace(explicit); exp != "" {
		return exp
	}
	if h := strings.TrimSpace(hint); h != "" {
		return h
	}
	if len(data) > 0 {
		return http.DetectContentType(data) // image/jpeg|png|webp|application/pdf и т.д.
	}
	return "image/jpeg"
}

func IsImageMIME(m string) bool {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	}
	return false
}
