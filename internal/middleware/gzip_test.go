package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	w.Header().Set("Content-Type", contentType)

	status := http.StatusOK
	if strings.HasPrefix(string(body), "fail") {
		status = http.StatusConflict
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte("received: " + string(body)))
}

func gzipBytes(t *testing.T, s string) io.Reader {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return &buf
}

func TestGzipMiddleware(t *testing.T) {
	type want struct {
		statusCode      int
		contentEncoding string
		bodyContains    string
	}

	tests := []struct {
		name           string
		requestBody    string
		gzipRequest    bool
		acceptEncoding string
		contentType    string
		want           want
	}{
		{
			name:           "json response compressed",
			requestBody:    `{"code":"123455"}`,
			acceptEncoding: "gzip, deflate",
			contentType:    "application/json",
			want:           want{http.StatusOK, "gzip", `received: {"code":"123455"}`},
		},
		{
			name:        "client does not accept gzip",
			requestBody: "plain",
			contentType: "text/plain",
			want:        want{http.StatusOK, "", "received: plain"},
		},
		{
			name:           "binary content left as is",
			requestBody:    "png",
			acceptEncoding: "gzip",
			contentType:    "image/png",
			want:           want{http.StatusOK, "", "received: png"},
		},
		{
			name:           "error status not compressed",
			requestBody:    "fail please",
			acceptEncoding: "gzip",
			contentType:    "application/json",
			want:           want{http.StatusConflict, "", "received: fail please"},
		},
		{
			name:           "compressed request body",
			requestBody:    `{"product_id":7}`,
			gzipRequest:    true,
			acceptEncoding: "gzip",
			contentType:    "application/json",
			want:           want{http.StatusOK, "gzip", `received: {"product_id":7}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader = strings.NewReader(tt.requestBody)
			if tt.gzipRequest {
				body = gzipBytes(t, tt.requestBody)
			}

			req := httptest.NewRequest(http.MethodPost, "/test", body)
			req.Header.Set("Content-Type", tt.contentType)
			if tt.gzipRequest {
				req.Header.Set("Content-Encoding", "gzip")
			}
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}

			w := httptest.NewRecorder()
			GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			assert.Equal(t, tt.want.statusCode, res.StatusCode)
			assert.Equal(t, tt.contentType, res.Header.Get("Content-Type"))
			require.Equal(t, tt.want.contentEncoding, res.Header.Get("Content-Encoding"))

			var reader io.Reader = res.Body
			if tt.want.contentEncoding == "gzip" {
				gr, err := gzip.NewReader(res.Body)
				require.NoError(t, err)
				defer gr.Close()
				reader = gr
			}
			got, err := io.ReadAll(reader)
			require.NoError(t, err)
			assert.Contains(t, string(got), tt.want.bodyContains)
		})
	}
}

func TestGzipMiddleware_BrokenRequestBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("not gzip"))
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()

	GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
