package sdk

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dropDatabas3/izzu/internal/face"
	dto "github.com/dropDatabas3/izzu/internal/http/dto/sdk"
	httperrors "github.com/dropDatabas3/izzu/internal/http/errors"
	"github.com/dropDatabas3/izzu/internal/http/helpers"
	svc "github.com/dropDatabas3/izzu/internal/http/services/sdk"
)

type FaceController struct {
	service   svc.FaceService
	maxUpload int64
}

// POST /sdk/face/register (multipart: file, email, project_id, location_lat?, location_lng?)
func (c *FaceController) Register(w http.ResponseWriter, r *http.Request) {
	img, ok := c.readImage(w, r)
	if !ok {
		return
	}
	res, err := c.service.Register(r.Context(), projectID(r), r.FormValue("email"), img, formLocation(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// POST /sdk/face/identify (multipart: file, project_id, location_lat?, location_lng?)
func (c *FaceController) Identify(w http.ResponseWriter, r *http.Request) {
	img, ok := c.readImage(w, r)
	if !ok {
		return
	}
	res, err := c.service.Identify(r.Context(), projectID(r), img, formLocation(r), helpers.Meta(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// POST /sdk/face/verify (multipart: file, project_id; Authorization: Bearer)
func (c *FaceController) Verify(w http.ResponseWriter, r *http.Request) {
	img, ok := c.readImage(w, r)
	if !ok {
		return
	}
	res, err := c.service.Verify(r.Context(), projectID(r), endUserID(r), img, helpers.Meta(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// POST /sdk/face/liveness (multipart: file, project_id)
func (c *FaceController) Liveness(w http.ResponseWriter, r *http.Request) {
	img, ok := c.readImage(w, r)
	if !ok {
		return
	}
	res, err := c.service.Liveness(r.Context(), img)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

func (c *FaceController) readImage(w http.ResponseWriter, r *http.Request) (face.Image, bool) {
	max := c.maxUpload
	if max <= 0 {
		max = 10 << 20
	}
	if r.MultipartForm == nil {
		r.Body = http.MaxBytesReader(w, r.Body, max)
		if err := r.ParseMultipartForm(max); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				httperrors.WriteLegacyError(w, httperrors.ErrBodyTooLarge)
			} else {
				httperrors.WriteLegacyError(w, httperrors.ErrBadRequest.WithDetail("multipart form expected"))
			}
			return face.Image{}, false
		}
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		httperrors.WriteLegacyError(w, httperrors.ErrMissingFields.WithDetail("file is required"))
		return face.Image{}, false
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, max))
	if err != nil || len(data) == 0 {
		httperrors.WriteLegacyError(w, httperrors.ErrMissingFields.WithDetail("file is empty"))
		return face.Image{}, false
	}
	ct := hdr.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	if !strings.HasPrefix(ct, "image/") {
		httperrors.WriteLegacyError(w, httperrors.ErrBadRequest.WithDetail("file must be an image"))
		return face.Image{}, false
	}
	return face.Image{Filename: hdr.Filename, ContentType: ct, Data: data}, true
}

// formLocation lee location_lat/location_lng del form (lat/lng como alias);
// ambos o ninguno.
func formLocation(r *http.Request) *dto.Location {
	for _, pair := range [][2]string{{"location_lat", "location_lng"}, {"lat", "lng"}} {
		lat, err1 := strconv.ParseFloat(strings.TrimSpace(r.FormValue(pair[0])), 64)
		lng, err2 := strconv.ParseFloat(strings.TrimSpace(r.FormValue(pair[1])), 64)
		if err1 == nil && err2 == nil {
			return &dto.Location{Lat: lat, Lng: lng}
		}
	}
	return nil
}
