package serializer

import (
	"net/http"
)

// Response is a captured HTTP response in a form that can be stored in any cache store.
type Response struct {
	StatusCode int         `json:"statusCode"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
}

// Successful tells whether the response may be cached.
// Any status from 200 up to and including 300 is considered a success.
func (r Response) Successful() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode <= http.StatusMultipleChoices
}

// WriteTo sends the response to the client.
// Extra headers are set after the stored ones and thus win.
func (r Response) WriteTo(w http.ResponseWriter, extra http.Header) (int, error) {
	copyHeader(w.Header(), r.Header)
	for name, values := range extra {
		w.Header()[name] = values
	}
	w.WriteHeader(r.StatusCode)
	return w.Write(r.Body)
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		// the length is set by the server for the body actually sent
		if k == "Content-Length" {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
