package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"spill-bot/internal/domain/entity"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func sar() *entity.File {
	return &entity.File{Name: "scene.png", Data: []byte("sar-bytes")}
}

func detectionError(t *testing.T, err error) *entity.DetectionError {
	t.Helper()
	require.ErrorIs(t, err, entity.ErrDetectionFailed)
	var de *entity.DetectionError
	require.ErrorAs(t, err, &de)
	return de
}

func TestClient_Detect_SendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/predict", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		require.Equal(t, "scene.png", header.Filename)
		require.Equal(t, "sar-bytes", string(data))

		ais, aisHeader, err := r.FormFile("ais")
		require.NoError(t, err)
		defer ais.Close()
		require.Equal(t, "tracks.csv", aisHeader.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"statistics":{"spill_area_km2":1,"confidence":50,"pixel_count":10,"coverage_percentage":0.5}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	res, err := c.Detect(context.Background(), sar(), &entity.File{Name: "tracks.csv", Data: []byte("mmsi,lat,lon")})
	require.NoError(t, err)
	require.Equal(t, entity.ResponseJSONOnly, res.Kind)
}

func TestClient_Detect_WithoutAIS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, err := r.FormFile("ais")
		require.ErrorIs(t, err, http.ErrMissingFile)
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes(t, 8, 6))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).Detect(context.Background(), sar(), nil)
	require.NoError(t, err)
	require.Equal(t, entity.ResponseBinary, res.Kind)
	require.Equal(t, image.Rect(0, 0, 8, 6), res.Image.Bounds())
	require.Nil(t, res.Stats)
}

func TestClient_Detect_JSONWithImage(t *testing.T) {
	body, err := json.Marshal(map[string]any{
		"image": base64.StdEncoding.EncodeToString(pngBytes(t, 4, 4)),
		"statistics": map[string]any{
			"spill_area_km2":      2.5,
			"confidence":          87,
			"pixel_count":         1250,
			"coverage_percentage": 3.2,
			"timestamp":           "2024-01-01 10:00:00",
		},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).Detect(context.Background(), sar(), nil)
	require.NoError(t, err)
	require.Equal(t, entity.ResponseJSONWithImage, res.Kind)
	require.NotNil(t, res.Image)
	require.Equal(t, 2.5, res.Stats.SpillAreaKm2)
	require.Equal(t, float64(87), res.Stats.Confidence)
	require.Equal(t, int64(1250), res.Stats.PixelCount)
	require.Equal(t, 3.2, res.Stats.CoveragePercentage)
	require.Equal(t, "2024-01-01 10:00:00", res.Stats.Timestamp)
}

func TestClient_Detect_FlatSchemaDataURL(t *testing.T) {
	body, err := json.Marshal(map[string]any{
		"success":          true,
		"spill_detected":   true,
		"confidence":       0.87,
		"coverage_percent": 3.2,
		"area_km2":         2.5,
		"num_pixels":       1250,
		"result_image":     "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 2, 2)),
		"status":           "HIGH RISK",
		"message":          "Oil spill detected!",
	})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write(body)
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).Detect(context.Background(), sar(), nil)
	require.NoError(t, err)
	require.Equal(t, entity.ResponseJSONWithImage, res.Kind)
	require.Equal(t, float64(87), res.Stats.Confidence)
	require.Equal(t, int64(1250), res.Stats.PixelCount)
	require.Equal(t, "HIGH RISK", res.Stats.Status)
	require.NotNil(t, res.Stats.SpillDetected)
	require.True(t, *res.Stats.SpillDetected)
}

func TestClient_Detect_OctetStreamTIFF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, image.NewGray(image.Rect(0, 0, 5, 5)), nil))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).Detect(context.Background(), sar(), nil)
	require.NoError(t, err)
	require.Equal(t, entity.ResponseBinary, res.Kind)
	require.Equal(t, 5, res.Image.Bounds().Dx())
}

func TestClient_Detect_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Detect(context.Background(), sar(), nil)
	de := detectionError(t, err)
	require.Equal(t, entity.FailureBackend, de.Kind)
	require.Equal(t, http.StatusInternalServerError, de.Status)
	require.Equal(t, "model not loaded", de.Detail)
}

func TestClient_Detect_BackendErrorMultibyteDetail(t *testing.T) {
	body := strings.Repeat("a", 199) + strings.Repeat("ошибка ", 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Detect(context.Background(), sar(), nil)
	de := detectionError(t, err)
	require.Equal(t, http.StatusBadGateway, de.Status)
	require.True(t, utf8.ValidString(de.Detail))
	require.LessOrEqual(t, len(de.Detail), 200)
	require.Equal(t, strings.Repeat("a", 199), de.Detail)
}

func TestTruncate_RuneBoundary(t *testing.T) {
	require.Equal(t, "abc", truncate("abc", 10))
	require.Equal(t, "a", truncate("aош", 2))
	require.Equal(t, "aо", truncate("aош", 3))
	require.Equal(t, "", truncate("ош", 1))
}

func TestClient_Detect_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"statistics":`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Detect(context.Background(), sar(), nil)
	require.Equal(t, entity.FailureDecode, detectionError(t, err).Kind)
}

func TestClient_Detect_JSONWithoutStatistics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"foo":"bar"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Detect(context.Background(), sar(), nil)
	require.Equal(t, entity.FailureDecode, detectionError(t, err).Kind)
}

func TestClient_Detect_BrokenImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("not a png"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Detect(context.Background(), sar(), nil)
	require.Equal(t, entity.FailureDecode, detectionError(t, err).Kind)
}

func TestClient_Detect_ResponseTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes(t, 64, 64))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, WithMaxResponseBytes(16)).Detect(context.Background(), sar(), nil)
	require.Equal(t, entity.FailureDecode, detectionError(t, err).Kind)
}

func TestClient_Detect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).Detect(context.Background(), sar(), nil)
	require.Equal(t, entity.FailureNetwork, detectionError(t, err).Kind)
}

func TestClient_Detect_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL).Detect(ctx, sar(), nil)
	require.Equal(t, entity.FailureTimeout, detectionError(t, err).Kind)
}

func TestClient_Detect_MissingPrimary(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1").Detect(context.Background(), nil, nil)
	require.ErrorIs(t, err, entity.ErrMissingInput)
}

func TestClient_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"online","message":"Backend is running"}`))
	}))
	defer srv.Close()

	status, err := NewClient(srv.URL).Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, "online", status.Status)
	require.Equal(t, "Backend is running", status.Message)
}

func TestClient_HealthUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Health(context.Background())
	de := detectionError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, de.Status)
}
