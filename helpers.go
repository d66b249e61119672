package mediapick

import (
	"encoding/base64"
	"fmt"
	"net/http"
)

// EncodeDataURL creates a data: URI from bytes and MIME type.
func EncodeDataURL(data []byte, mimeType string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// DetectImageMIME sniffs the MIME type of raw image bytes.
func DetectImageMIME(data []byte) string {
	return http.DetectContentType(data)
}
