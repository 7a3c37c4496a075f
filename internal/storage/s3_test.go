// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 implements the handful of path-style S3 calls the store makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if bucket != "events-bucket" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Query().Get("list-type") == "2":
		prefix := r.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><Name>events-bucket</Name>`)
		fmt.Fprintf(&b, "<KeyCount>%d</KeyCount><IsTruncated>false</IsTruncated>", len(keys))
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><LastModified>2030-01-01T00:00:00.000Z</LastModified><Size>%d</Size></Contents>", k, len(f.objects[k]))
		}
		b.WriteString("</ListBucketResult>")
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, b.String())

	case r.Method == http.MethodPut && r.Header.Get("X-Amz-Copy-Source") != "":
		src, _ := url.PathUnescape(r.Header.Get("X-Amz-Copy-Source"))
		src = strings.TrimPrefix(strings.TrimPrefix(src, "/"), "events-bucket/")
		data, ok := f.objects[src]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		f.objects[key] = data
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><CopyObjectResult><ETag>"etag"</ETag><LastModified>2030-01-01T00:00:00.000Z</LastModified></CopyObjectResult>`)

	case r.Method == http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodHead:
		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	return string(data), ok
}

func (f *fakeS3) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func newTestS3(t *testing.T) (*S3, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewS3(S3Config{
		Bucket:       "events-bucket",
		Region:       "eu-central-1",
		Endpoint:     srv.URL,
		AccessKey:    "test",
		SecretKey:    "test",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	return s, fake
}

func TestS3_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestS3(t)

	require.NoError(t, s.Upload(ctx, "tmp/img1/poster.jpg", strings.NewReader("jpeg-bytes"), "image/jpeg"))
	data, _ := fake.get("tmp/img1/poster.jpg")
	assert.Equal(t, "jpeg-bytes", data)

	ok, err := s.Exists(ctx, "tmp/img1/poster.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "tmp/none/poster.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	objects, err := s.List(ctx, TmpPrefix)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "tmp/img1/poster.jpg", objects[0].Key)
	assert.Equal(t, int64(10), objects[0].Size)

	require.NoError(t, s.Move(ctx, "tmp/img1/poster.jpg", "events/e1/img1/poster.jpg"))
	_, ok = fake.get("tmp/img1/poster.jpg")
	assert.False(t, ok, "source must be deleted after move")
	data, _ = fake.get("events/e1/img1/poster.jpg")
	assert.Equal(t, "jpeg-bytes", data)

	require.NoError(t, s.Delete(ctx, "events/e1/img1/poster.jpg"))
	assert.Zero(t, fake.count())
}

func TestS3_URL(t *testing.T) {
	s, err := NewS3(S3Config{Bucket: "b", Region: "eu-west-1"})
	require.NoError(t, err)
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com/events/x.jpg", s.URL("events/x.jpg"))

	s, err = NewS3(S3Config{Bucket: "b", Region: "auto", Endpoint: "https://r2.example.com", PublicURL: "https://cdn.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/events/x.jpg", s.URL("events/x.jpg"))

	_, err = NewS3(S3Config{})
	assert.Error(t, err)
}
