package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/picture-gallery/internal/domain"
	"github.com/samvad-hq/picture-gallery/internal/query"
	"github.com/samvad-hq/picture-gallery/internal/site"
	"github.com/samvad-hq/picture-gallery/pkg/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHooks struct {
	all       query.State[[]domain.Picture]
	detail    func(id string) query.State[domain.Picture]
	refreshes atomic.Int32
	opts      int
}

func (f *fakeHooks) All(_ context.Context, opts ...query.Option) query.State[[]domain.Picture] {
	f.opts = len(opts)
	return f.all
}

func (f *fakeHooks) Detail(_ context.Context, id string, _ ...query.Option) query.State[domain.Picture] {
	return f.detail(id)
}

func (f *fakeHooks) Refresh(context.Context) int {
	f.refreshes.Add(1)
	return 2
}

func newTestServer(t *testing.T, hooks *fakeHooks, opts ...Option) *Server {
	t.Helper()
	srv, err := New(hooks, site.Default(), nil, opts...)
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, *goquery.Document) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	return rec, doc
}

func picturesOf(n int) []domain.Picture {
	out := make([]domain.Picture, n)
	for i := range out {
		id := string(rune('1' + i))
		out[i] = domain.Picture{ID: id, Name: "Picture " + id, URL: "/remote/" + id + ".jpg"}
	}
	return out
}

func TestHomePage(t *testing.T) {
	srv := newTestServer(t, &fakeHooks{})

	rec, doc := get(t, srv, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Welcome to Picture Gallery", strings.TrimSpace(doc.Find("h1.headline").Text()))
	assert.Contains(t, doc.Find("p.tagline").Text(), "Discover and explore")

	view, ok := doc.Find("a.button-primary").Attr("href")
	require.True(t, ok)
	assert.Equal(t, "/pictures", view)
	assert.Equal(t, "View Gallery", strings.TrimSpace(doc.Find("a.button-primary").Text()))
	assert.Equal(t, "Learn More", strings.TrimSpace(doc.Find("button.button-secondary").Text()))
}

func TestLayoutShell(t *testing.T) {
	srv := newTestServer(t, &fakeHooks{})

	_, doc := get(t, srv, "/")

	title, _ := doc.Find("a.site-title").Attr("href")
	assert.Equal(t, "/", title)
	assert.Equal(t, "Picture Gallery", strings.TrimSpace(doc.Find("a.site-title h1").Text()))

	var labels, hrefs []string
	doc.Find("a.nav-link").Each(func(_ int, s *goquery.Selection) {
		labels = append(labels, strings.TrimSpace(s.Text()))
		href, _ := s.Attr("href")
		hrefs = append(hrefs, href)
	})
	assert.Equal(t, []string{"Home", "Pictures"}, labels)
	assert.Equal(t, []string{"/", "/pictures"}, hrefs)
	assert.Equal(t, "Home", strings.TrimSpace(doc.Find("a.nav-link.active").Text()))

	assert.Equal(t, 1, doc.Find("button.menu-button").Length())
	assert.Equal(t, "Open main menu", doc.Find("button.menu-button .sr-only").Text())
	assert.Equal(t, 0, doc.Find(`meta[http-equiv="refresh"]`).Length())
}

func TestPicturesPageRendersCards(t *testing.T) {
	hooks := &fakeHooks{all: query.State[[]domain.Picture]{Data: picturesOf(7), Status: query.StatusSuccess}}
	srv := newTestServer(t, hooks)

	rec, doc := get(t, srv, "/pictures")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Picture Gallery", strings.TrimSpace(doc.Find("h1.gallery-title").Text()))
	cards := doc.Find(".picture-grid .picture-card")
	require.Equal(t, 7, cards.Length())
	assert.Equal(t, 0, doc.Find("p.loading").Length())
	assert.Equal(t, 0, doc.Find("p.error").Length())

	first := cards.First()
	src, _ := first.Find("img").Attr("src")
	alt, _ := first.Find("img").Attr("alt")
	assert.Equal(t, "/images/1.jpg", src)
	assert.Equal(t, "Picture 1", alt)
	assert.Equal(t, "Picture 1", first.Find(".picture-name").Text())
	assert.Equal(t, "/remote/1.jpg", first.Find(".picture-url").Text())

	// placeholders cycle after the fifth card
	sixth, _ := cards.Eq(5).Find("img").Attr("src")
	assert.Equal(t, "/images/1.jpg", sixth)
	seventh, _ := cards.Eq(6).Find("img").Attr("src")
	assert.Equal(t, "/images/2.jpg", seventh)

	assert.Equal(t, "Pictures", strings.TrimSpace(doc.Find("a.nav-link.active").Text()))
}

func TestPicturesPageEmptyCollectionRendersEmptyGrid(t *testing.T) {
	hooks := &fakeHooks{all: query.State[[]domain.Picture]{Data: []domain.Picture{}, Status: query.StatusSuccess}}
	srv := newTestServer(t, hooks)

	_, doc := get(t, srv, "/pictures")

	assert.Equal(t, 1, doc.Find(".picture-grid").Length())
	assert.Equal(t, 0, doc.Find(".picture-card").Length())
}

func TestPicturesPageLoading(t *testing.T) {
	hooks := &fakeHooks{all: query.State[[]domain.Picture]{Status: query.StatusPending, IsLoading: true, IsFetching: true}}
	srv := newTestServer(t, hooks)

	rec, doc := get(t, srv, "/pictures")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Loading pictures...", strings.TrimSpace(doc.Find("p.loading").Text()))
	assert.Equal(t, 0, doc.Find(".picture-grid").Length())
	refresh, ok := doc.Find(`meta[http-equiv="refresh"]`).Attr("content")
	require.True(t, ok)
	assert.Equal(t, "1", refresh)
}

func TestPicturesPageErrorInline(t *testing.T) {
	hooks := &fakeHooks{all: query.State[[]domain.Picture]{
		Status: query.StatusError,
		Error:  &httpclient.Error{Status: http.StatusInternalServerError, Message: "connect ECONNREFUSED"},
	}}
	srv := newTestServer(t, hooks)

	rec, doc := get(t, srv, "/pictures")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "connect ECONNREFUSED", strings.TrimSpace(doc.Find("p.error").Text()))
	assert.Equal(t, 0, doc.Find(".picture-grid").Length())
	assert.Equal(t, 0, doc.Find("p.loading").Length())
}

func TestPicturesPageEscapesContent(t *testing.T) {
	hooks := &fakeHooks{all: query.State[[]domain.Picture]{
		Data:   []domain.Picture{{ID: "1", Name: `<script>alert(1)</script>`, URL: "/x.jpg"}},
		Status: query.StatusSuccess,
	}}
	srv := newTestServer(t, hooks)

	rec, doc := get(t, srv, "/pictures")

	assert.Equal(t, 0, doc.Find(".picture-card script").Length())
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
}

func TestPicturesRefreshInvalidates(t *testing.T) {
	hooks := &fakeHooks{all: query.State[[]domain.Picture]{Data: picturesOf(1), Status: query.StatusSuccess}}
	srv := newTestServer(t, hooks)

	get(t, srv, "/pictures")
	assert.EqualValues(t, 0, hooks.refreshes.Load())

	get(t, srv, "/pictures?refresh=1")
	assert.EqualValues(t, 1, hooks.refreshes.Load())
}

func TestQueryOptionsReachHooks(t *testing.T) {
	hooks := &fakeHooks{}
	srv := newTestServer(t, hooks, WithQueryOptions(query.WithStaleTime(0), query.WithWait(0)))

	get(t, srv, "/pictures")

	assert.Equal(t, 2, hooks.opts)
}

func TestPictureDetailPage(t *testing.T) {
	hooks := &fakeHooks{detail: func(id string) query.State[domain.Picture] {
		return query.State[domain.Picture]{Data: domain.Picture{ID: id, Name: "Sunset", URL: "/x.jpg"}, Status: query.StatusSuccess}
	}}
	srv := newTestServer(t, hooks)

	rec, doc := get(t, srv, "/pictures/42")

	assert.Equal(t, http.StatusOK, rec.Code)
	card := doc.Find(".picture-detail .picture-card")
	require.Equal(t, 1, card.Length())
	id, _ := card.Attr("data-id")
	assert.Equal(t, "42", id)
	src, _ := card.Find("img").Attr("src")
	assert.Equal(t, site.Default().PlaceholderFor("42"), src)
	assert.Contains(t, doc.Find("title").Text(), "Picture 42")
}

func TestPictureDetailStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "upstream not found", err: &httpclient.Error{Status: http.StatusNotFound, Message: "Not found"}, status: http.StatusNotFound},
		{name: "upstream failure", err: &httpclient.Error{Status: http.StatusInternalServerError, Message: "boom"}, status: http.StatusBadGateway},
		{name: "transport failure", err: errors.New("dial tcp: refused"), status: http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hooks := &fakeHooks{detail: func(string) query.State[domain.Picture] {
				return query.State[domain.Picture]{Status: query.StatusError, Error: tc.err}
			}}
			srv := newTestServer(t, hooks)

			rec, doc := get(t, srv, "/pictures/99")

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.err.Error(), strings.TrimSpace(doc.Find("p.error").Text()))
			assert.Equal(t, 0, doc.Find(".picture-card").Length())
		})
	}
}

func TestPictureDetailIdleIsNotFound(t *testing.T) {
	hooks := &fakeHooks{detail: func(string) query.State[domain.Picture] {
		return query.State[domain.Picture]{Status: query.StatusIdle}
	}}
	srv := newTestServer(t, hooks)

	rec, _ := get(t, srv, "/pictures/%20")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPictureDetailLoading(t *testing.T) {
	hooks := &fakeHooks{detail: func(string) query.State[domain.Picture] {
		return query.State[domain.Picture]{Status: query.StatusPending, IsLoading: true, IsFetching: true}
	}}
	srv := newTestServer(t, hooks)

	rec, doc := get(t, srv, "/pictures/1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Loading picture...", strings.TrimSpace(doc.Find("p.loading").Text()))
	assert.Equal(t, 1, doc.Find(`meta[http-equiv="refresh"]`).Length())
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fakeHooks{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestStaticPlaceholders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "images", "1.jpg"), []byte("jpeg-bytes"), 0o644))
	srv := newTestServer(t, &fakeHooks{}, WithStaticDir(dir))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/1.jpg", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg-bytes", rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/9.jpg", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewRequiresHooks(t *testing.T) {
	_, err := New(nil, site.Default(), nil)
	assert.Error(t, err)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	srv := newTestServer(t, &fakeHooks{}, WithAddr("127.0.0.1:0"))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	cancel()

	assert.NoError(t, <-done)
}
