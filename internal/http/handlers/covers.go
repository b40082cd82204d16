package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"givepool/internal/authz"
)

const maxCoverBytes = 5 << 20

// Extension by sniffed content type. Anything else is refused.
var coverExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// CoverUpload stores a fundraiser cover image and swaps the public URL. The
// replaced object is removed best-effort after the new URL is committed.
func (a *App) CoverUpload(w http.ResponseWriter, r *http.Request) {
	fundraiserID := chi.URLParam(r, "id")
	if _, err := a.Authz.Authorize(r.Context(), a.currentUserID(r), authz.FundraiserRef(fundraiserID), authz.EditorOrAbove); err != nil {
		a.domainError(w, err)
		return
	}
	fundraiser, err := a.Fundraisers.GetByID(r.Context(), fundraiserID)
	if err != nil {
		a.domainError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCoverBytes)
	if err := r.ParseMultipartForm(maxCoverBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file too large or malformed form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.Logger.Error().Err(err).Msg("read cover upload failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	ext, ok := coverExtensions[http.DetectContentType(data)]
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "cover must be jpeg, png or webp")
		return
	}

	key := fmt.Sprintf("covers/%s/%s%s", fundraiserID, uuid.NewString(), ext)
	storedKey, err := a.Store.Write(r.Context(), key, data)
	if err != nil {
		a.domainError(w, err)
		return
	}
	coverURL := a.StorageBaseURL + "/" + storedKey
	if err := a.Fundraisers.SetCoverURL(r.Context(), fundraiserID, coverURL); err != nil {
		a.domainError(w, err)
		return
	}

	if old := strings.TrimPrefix(fundraiser.CoverURL, a.StorageBaseURL+"/"); old != "" && old != fundraiser.CoverURL {
		if err := a.Store.Remove(r.Context(), old); err != nil {
			a.Logger.Warn().Err(err).Str("key", old).Msg("remove replaced cover failed")
		}
	}

	a.json(w, http.StatusOK, map[string]string{"cover_url": coverURL})
}
