package sdk

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartRequest(t *testing.T, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/sdk/face/identify", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req
}

func TestFormLocation(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]string
		want   []float64
	}{
		{"sdk field names", map[string]string{"location_lat": "-34.6", "location_lng": "-58.4"}, []float64{-34.6, -58.4}},
		{"short alias", map[string]string{"lat": "10.5", "lng": "20.5"}, []float64{10.5, 20.5}},
		{"sdk names win", map[string]string{"location_lat": "1", "location_lng": "2", "lat": "9", "lng": "9"}, []float64{1, 2}},
		{"half a pair", map[string]string{"location_lat": "1"}, nil},
		{"not a number", map[string]string{"location_lat": "north", "location_lng": "2"}, nil},
		{"absent", map[string]string{"project_id": "p"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loc := formLocation(multipartRequest(t, tc.fields))
			if tc.want == nil {
				assert.Nil(t, loc)
				return
			}
			require.NotNil(t, loc)
			assert.InDelta(t, tc.want[0], loc.Lat, 1e-9)
			assert.InDelta(t, tc.want[1], loc.Lng, 1e-9)
		})
	}
}
