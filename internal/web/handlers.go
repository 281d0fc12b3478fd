package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/samvad-hq/picture-gallery/pkg/httpclient"
	"github.com/samvad-hq/picture-gallery/pkg/pictures"
)

func (s *Server) layout(active, title string) layoutData {
	return layoutData{Site: s.site, Active: active, PageTitle: title}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.write(r, render(w, s.views.home, http.StatusOK, homePage{layoutData: s.layout("/", "")}))
}

func (s *Server) handlePictures(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.URL.Query().Get("refresh") == "1" {
		n := s.hooks.Refresh(ctx)
		s.log.DebugObj("picture queries refreshed", "refresh_meta", map[string]any{"count": n})
	}

	st := s.hooks.All(ctx, s.queryOpts...)

	page := picturesPage{
		layoutData: s.layout("/pictures", "Pictures"),
		IsLoading:  st.IsLoading,
		HasData:    st.HasData(),
	}
	if st.Error != nil {
		page.Error = st.Error.Error()
	}
	if st.IsLoading {
		page.RefreshSeconds = loadingRefreshSeconds
	}
	for i, p := range st.Data {
		page.Cards = append(page.Cards, cardView{Picture: p, Image: s.site.Placeholder(i)})
	}

	s.write(r, render(w, s.views.pictures, http.StatusOK, page))
}

func (s *Server) handlePicture(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	st := s.hooks.Detail(r.Context(), id, s.queryOpts...)

	page := picturePage{
		layoutData: s.layout("/pictures", "Picture "+id),
		IsLoading:  st.IsLoading,
	}
	status := http.StatusOK

	switch {
	case st.IsIdle():
		page.Error = pictures.ErrMissingID.Error()
		status = http.StatusNotFound
	case st.Error != nil:
		page.Error = st.Error.Error()
		status = upstreamStatus(st.Error)
	case st.IsLoading:
		page.RefreshSeconds = loadingRefreshSeconds
	case st.HasData():
		page.Card = &cardView{Picture: st.Data, Image: s.site.PlaceholderFor(st.Data.ID)}
	}

	s.write(r, render(w, s.views.picture, status, page))
}

// upstreamStatus maps a failed picture query to the page status: 404 when
// the API said so, 502 for anything else.
func upstreamStatus(err error) int {
	if errors.Is(err, pictures.ErrMissingID) {
		return http.StatusNotFound
	}
	var apiErr *httpclient.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) write(r *http.Request, err error) {
	if err == nil {
		return
	}
	s.log.ErrorObj("page render failed", "render_error", map[string]any{
		"path":  r.URL.Path,
		"error": err.Error(),
	})
}
