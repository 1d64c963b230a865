package reporter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workagent/internal/models"
)

func TestClient_SendActivity(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
		wantCode   int
		unauth     bool
	}{
		{name: "successful send", statusCode: http.StatusOK, wantCode: http.StatusOK},
		{name: "server error", statusCode: http.StatusInternalServerError, wantErr: true, wantCode: 500},
		{name: "unauthorized", statusCode: http.StatusUnauthorized, wantErr: true, wantCode: 401, unauth: true},
		{name: "created is not success", statusCode: http.StatusCreated, wantErr: true, wantCode: 201},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got models.ActivityRecord
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/v1/log-activity", r.URL.Path)
				assert.Equal(t, "emp_key", r.Header.Get("x-api-key"))
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				body, _ := io.ReadAll(r.Body)
				assert.NoError(t, json.Unmarshal(body, &got))

				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			client := NewClient(srv.URL+"/v1/", "emp_key")
			err := client.SendActivity(context.Background(), models.ActivityRecord{
				AppName:         "main.go - workagent - Visual Studio Code",
				Status:          models.StatusIdle,
				DurationSeconds: 30,
			})

			assert.Equal(t, "main.go - workagent - Visual Studio Code", got.AppName)
			assert.Equal(t, models.StatusIdle, got.Status)
			assert.Equal(t, int64(30), got.DurationSeconds)

			if !tt.wantErr {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				var se *StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, ActivityPath, se.Endpoint)
			}
			assert.Equal(t, tt.wantCode, StatusCode(err))
			assert.Equal(t, tt.unauth, errors.Is(err, ErrUnauthorized))
		})
	}
}

func TestClient_SendActivityWireFormat(t *testing.T) {
	var raw map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k").SendActivity(context.Background(), models.ActivityRecord{
		AppName: "Slack", Status: models.StatusWorking, DurationSeconds: 30,
	})
	require.NoError(t, err)

	assert.Len(t, raw, 3)
	assert.Equal(t, "Slack", raw["app_name"])
	assert.Equal(t, "working", raw["status"])
	assert.Equal(t, float64(30), raw["duration_seconds"])
}

func TestClient_UploadScreenshot(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload-screenshot", r.URL.Path)
		assert.Equal(t, "emp_key", r.Header.Get("x-api-key"))

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		file, header, err := r.FormFile("screenshot")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()

		assert.Equal(t, "screenshot.jpg", header.Filename)
		assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))

		data, _ := io.ReadAll(file)
		assert.Equal(t, jpeg, data)

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "emp_key").UploadScreenshot(context.Background(), &models.ScreenshotBlob{
		Data:       jpeg,
		CapturedAt: time.Now(),
	})
	assert.NoError(t, err)
}

func TestClient_UploadScreenshotRejectsEmpty(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k")
	assert.Error(t, client.UploadScreenshot(context.Background(), nil))
	assert.Error(t, client.UploadScreenshot(context.Background(), &models.ScreenshotBlob{}))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(srv.URL, "k", WithTimeouts(50*time.Millisecond, 50*time.Millisecond))

	start := time.Now()
	err := client.SendActivity(context.Background(), models.ActivityRecord{AppName: "x", Status: models.StatusWorking})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 0, StatusCode(err))
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestClient_Validate(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		unauth     bool
		wantErr    bool
	}{
		{"valid key", http.StatusOK, false, false},
		{"invalid key", http.StatusUnauthorized, true, true},
		{"server down", http.StatusServiceUnavailable, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec models.ActivityRecord
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&rec)
				w.WriteHeader(tt.statusCode)
			}))
			defer srv.Close()

			err := NewClient(srv.URL, "k").Validate(context.Background())
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.unauth, errors.Is(err, ErrUnauthorized))

			assert.Equal(t, "Agent Started", rec.AppName)
			assert.Equal(t, models.StatusWorking, rec.Status)
			assert.Zero(t, rec.DurationSeconds)
		})
	}
}

func TestClient_ValidateNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(url, "k").Validate(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Endpoint: ActivityPath, Code: 503}
	assert.Equal(t, "/log-activity returned status 503", err.Error())

	err.Body = "maintenance"
	assert.Equal(t, "/log-activity returned status 503: maintenance", err.Error())
}
