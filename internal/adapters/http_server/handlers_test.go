package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_feed/internal/adapters/feed"
	httpserver "review_feed/internal/adapters/http_server"
	"review_feed/internal/adapters/rating"
	"review_feed/internal/adapters/textmeasure"
	"review_feed/internal/app"
	"review_feed/internal/imagecache"
	"review_feed/internal/layout"
)

type rowJSON struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	MaxLines *int   `json:"max_lines"`
	Avatar   *struct {
		URL         string `json:"url"`
		Placeholder bool   `json:"placeholder"`
	} `json:"avatar"`
	Photos    *[]json.RawMessage `json:"photos"`
	CountText string             `json:"count_text"`
	Layout    struct {
		Height   float64 `json:"height"`
		ShowMore bool    `json:"show_more"`
	} `json:"layout"`
}

type listJSON struct {
	Offset        int       `json:"offset"`
	ShouldLoad    bool      `json:"should_load"`
	Phase         string    `json:"phase"`
	ContentHeight float64   `json:"content_height"`
	Rows          []rowJSON `json:"rows"`
}

func pngBody(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))))
	return buf.Bytes()
}

type api struct {
	ts *httptest.Server
}

func newAPI(t *testing.T, ready func(*http.Request) error) *api {
	t.Helper()
	body := pngBody(t)
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken.png" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(images.Close)

	long := strings.Repeat("a long review sentence ", 30)
	doc := fmt.Sprintf(`{"items":[
	  {"avatar_url":"%[1]s/a0.png","first_name":"Ann","last_name":"Lee","rating":5,"text":%[2]q,"created":"1 May","photo_urls":["%[1]s/p1.png","%[1]s/broken.png","%[1]s/p2.png"]},
	  {"avatar_url":"%[1]s/a1.png","first_name":"Bo","last_name":"Ng","rating":3,"text":"fine","created":"2 May"},
	  {"first_name":"Cy","last_name":"Oh","rating":1,"text":"bad","created":"3 May","photo_urls":[]}
	],"count":3}`, images.URL, long)
	path := filepath.Join(t.TempDir(), "reviews.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	loop := app.NewLoop(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(cancel)

	cache := imagecache.New(imagecache.Options{Executor: loop, Logger: zerolog.Nop()})
	list := app.NewFeedList(loop, feed.NewFileProvider(path, 0, 0), cache, rating.New(),
		app.Options{Limit: 2, MaxLines: 3, Logger: zerolog.Nop()})
	t.Cleanup(list.Close)

	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{
		List:      list,
		Layout:    layout.NewEngine(layout.DefaultConfig(), textmeasure.New()),
		Threshold: 2.5,
		Ready:     ready,
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return &api{ts: ts}
}

func (a *api) do(t *testing.T, method, path string, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, a.ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *api) list(t *testing.T, query string) listJSON {
	t.Helper()
	resp := a.do(t, http.MethodGet, "/v1/reviews"+query, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out listJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (a *api) waitList(t *testing.T, cond func(listJSON) bool) listJSON {
	t.Helper()
	var last listJSON
	require.Eventually(t, func() bool {
		resp, err := http.Get(a.ts.URL + "/v1/reviews")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var l listJSON
		if json.NewDecoder(resp.Body).Decode(&l) != nil {
			return false
		}
		last = l
		return cond(l)
	}, 3*time.Second, 10*time.Millisecond)
	return last
}

func TestListReviews_EmptyAndETag(t *testing.T) {
	a := newAPI(t, nil)

	resp := a.do(t, http.MethodGet, "/v1/reviews", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	etag := resp.Header.Get("ETag")
	require.True(t, strings.HasPrefix(etag, `W/"`))

	var l listJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&l))
	assert.Empty(t, l.Rows)
	assert.True(t, l.ShouldLoad)
	assert.Equal(t, "idle", l.Phase)

	req, _ := http.NewRequest(http.MethodGet, a.ts.URL+"/v1/reviews", nil)
	req.Header.Set("If-None-Match", etag)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotModified, resp2.StatusCode)
}

func TestListReviews_PagesToExhaustion(t *testing.T) {
	a := newAPI(t, nil)

	assert.Equal(t, http.StatusAccepted, a.do(t, http.MethodPost, "/v1/reviews/next", "").StatusCode)
	l := a.waitList(t, func(l listJSON) bool { return len(l.Rows) == 2 && l.Phase == "idle" })
	assert.Equal(t, 2, l.Offset)
	assert.True(t, l.ShouldLoad)

	a.do(t, http.MethodPost, "/v1/reviews/next", "")
	l = a.waitList(t, func(l listJSON) bool { return l.Phase == "exhausted" })
	require.Len(t, l.Rows, 4)
	assert.Equal(t, "total", l.Rows[3].Kind)
	assert.Equal(t, "3 reviews", l.Rows[3].CountText)
	assert.False(t, l.ShouldLoad)

	var sum float64
	for _, r := range l.Rows {
		assert.Greater(t, r.Layout.Height, 0.0)
		sum += r.Layout.Height
	}
	assert.InDelta(t, sum, l.ContentHeight, 1e-9)

	// long text is truncated behind a show-more control
	assert.True(t, l.Rows[0].Layout.ShowMore)
}

func TestListReviews_ImagesResolve(t *testing.T) {
	a := newAPI(t, nil)
	a.do(t, http.MethodPost, "/v1/reviews/next", "")

	l := a.waitList(t, func(l listJSON) bool {
		return len(l.Rows) == 2 && l.Rows[0].Photos != nil && !l.Rows[0].Avatar.Placeholder && !l.Rows[1].Avatar.Placeholder
	})
	assert.Len(t, *l.Rows[0].Photos, 2, "the broken photo is omitted")
	assert.Nil(t, l.Rows[1].Photos, "no photo list stays unresolved")
}

func TestListReviews_InvalidWidth(t *testing.T) {
	a := newAPI(t, nil)
	for _, w := range []string{"wide", "NaN", "Inf", "-Inf", "1e400"} {
		resp := a.do(t, http.MethodGet, "/v1/reviews?width="+w, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, w)
		assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"), w)
		assert.Empty(t, resp.Header.Get("ETag"), w)
	}
}

func TestListReviews_ZeroWidthHasZeroGeometry(t *testing.T) {
	a := newAPI(t, nil)
	a.do(t, http.MethodPost, "/v1/reviews/next", "")
	a.waitList(t, func(l listJSON) bool { return len(l.Rows) == 2 })

	l := a.list(t, "?width=0")
	for _, r := range l.Rows {
		assert.Zero(t, r.Layout.Height)
	}
	assert.Zero(t, l.ContentHeight)
}

func TestShowMore(t *testing.T) {
	a := newAPI(t, nil)
	a.do(t, http.MethodPost, "/v1/reviews/next", "")
	l := a.waitList(t, func(l listJSON) bool { return len(l.Rows) == 2 })
	id := l.Rows[0].ID

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodPost, "/v1/reviews/nope/show-more", "").StatusCode)
	assert.Equal(t, http.StatusAccepted, a.do(t, http.MethodPost, "/v1/reviews/"+id+"/show-more", "").StatusCode)

	l = a.waitList(t, func(l listJSON) bool { return *l.Rows[0].MaxLines == 0 })
	assert.False(t, l.Rows[0].Layout.ShowMore)
	assert.Equal(t, 3, *l.Rows[1].MaxLines)
}

func TestPhoto(t *testing.T) {
	a := newAPI(t, nil)
	a.do(t, http.MethodPost, "/v1/reviews/next", "")
	l := a.waitList(t, func(l listJSON) bool { return len(l.Rows) == 2 && l.Rows[0].Photos != nil })
	id := l.Rows[0].ID

	resp := a.do(t, http.MethodGet, "/v1/reviews/"+id+"/photos/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/v1/reviews/"+id+"/photos/2", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/v1/reviews/"+id+"/photos/x", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/v1/reviews/"+l.Rows[1].ID+"/photos/0", "").StatusCode)
}

func TestScroll(t *testing.T) {
	a := newAPI(t, nil)

	decode := func(resp *http.Response) bool {
		var out struct {
			Triggered bool `json:"triggered"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out.Triggered
	}

	resp := a.do(t, http.MethodPost, "/v1/reviews/scroll", `{"viewport_height":800,"content_height":10000,"offset_y":0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode(resp))

	resp = a.do(t, http.MethodPost, "/v1/reviews/scroll", `{"viewport_height":800,"content_height":10000,"offset_y":9000}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode(resp))
	a.waitList(t, func(l listJSON) bool { return len(l.Rows) == 2 })

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/v1/reviews/scroll", `{`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/v1/reviews/scroll", `{"viewport_height":0}`).StatusCode)
}

func TestRefresh(t *testing.T) {
	a := newAPI(t, nil)
	a.do(t, http.MethodPost, "/v1/reviews/next", "")
	before := a.waitList(t, func(l listJSON) bool { return len(l.Rows) == 2 })

	assert.Equal(t, http.StatusAccepted, a.do(t, http.MethodPost, "/v1/reviews/refresh", "").StatusCode)
	after := a.waitList(t, func(l listJSON) bool {
		return len(l.Rows) == 2 && l.Rows[0].ID != before.Rows[0].ID
	})
	assert.Equal(t, 2, after.Offset)
}

func TestVisibility(t *testing.T) {
	a := newAPI(t, nil)
	a.do(t, http.MethodPost, "/v1/reviews/next", "")
	l := a.waitList(t, func(l listJSON) bool { return len(l.Rows) == 2 })

	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, "/v1/reviews/"+l.Rows[1].ID+"/visible", "").StatusCode)
	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodPut, "/v1/reviews/"+l.Rows[1].ID+"/visible", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodPut, "/v1/reviews/nope/visible", "").StatusCode)

	a.waitList(t, func(l listJSON) bool { return !l.Rows[1].Avatar.Placeholder })
}

func TestHealthz(t *testing.T) {
	a := newAPI(t, nil)
	resp := a.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	down := newAPI(t, func(*http.Request) error { return errors.New("redis unreachable") })
	resp = down.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
