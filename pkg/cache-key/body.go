package cachekey

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

// WithBodyHash appends a hash of the request body to the keys of POST requests,
// so that requests to the same URL with different bodies are cached separately.
// For multipart requests only the first part is hashed.
func WithBodyHash(gen KeyGenFunc) KeyGenFunc {
	return func(r *http.Request) string {
		key := gen(r)
		if r.Method != http.MethodPost {
			return key
		}
		if hash := multipartHash(r); hash != "" {
			return key + separator + hash
		}
		if hash := bodyHash(r); hash != "" {
			return key + separator + hash
		}
		return key
	}
}

// multipartHash returns the hash of a multipart request body.
// It returns an empty string if the request is not multipart.
// When it returns, the request body will be rewound to the beginning.
func multipartHash(r *http.Request) string {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return ""
	}
	body, ok := rewind(r)
	if !ok {
		return ""
	}
	mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	p, err := mr.NextPart()
	if err != nil {
		return ""
	}
	slurp, err := io.ReadAll(p)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(slurp))
}

// bodyHash returns the hash of a request body, or an empty string if there is no body.
// When it returns, the request body will be rewound to the beginning.
func bodyHash(r *http.Request) string {
	body, ok := rewind(r)
	if !ok || len(body) == 0 {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(body))
}

func rewind(r *http.Request) ([]byte, bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, false
	}
	body, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, err == nil
}
