package snapshots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil-worker-go/internal/config"
)

func TestObjectName(t *testing.T) {
	at := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	assert.Equal(t, "alerts/2024/03/10/a-1.jpg", ObjectName("a-1", at))
}

func TestUploader_Upload(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := &config.Config{
		MinioEndpoint:  strings.TrimPrefix(srv.URL, "http://"),
		MinioAccessKey: "access",
		MinioSecretKey: "secret",
		MinioBucket:    "alert-snapshots",
		AWSRegion:      "us-east-1",
	}
	uploader, err := NewUploader(cfg)
	require.NoError(t, err)
	uploader.clock = func() time.Time { return time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC) }

	url, err := uploader.Upload(context.Background(), "a-1", []byte{0xFF, 0xD8, 0xFF})
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/alert-snapshots/alerts/2024/03/10/a-1.jpg", url)

	_, err = uploader.Upload(context.Background(), "a-2", []byte{0xFF, 0xD8, 0xFF})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	// the bucket is checked once
	require.Len(t, requests, 3)
	assert.True(t, strings.HasPrefix(requests[0], "HEAD /alert-snapshots"))
	assert.Equal(t, "PUT /alert-snapshots/alerts/2024/03/10/a-1.jpg", requests[1])
	assert.Equal(t, "PUT /alert-snapshots/alerts/2024/03/10/a-2.jpg", requests[2])
}
