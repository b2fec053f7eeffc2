package detection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firewatch-worker-go/internal/config"
	"firewatch-worker-go/internal/models"
)

func newClient(endpoint string) *Client {
	return NewClient(&config.Config{
		DetectorEndpoint: endpoint,
		DetectorTimeout:  time.Second,
	})
}

func testFrame() *models.Frame {
	return &models.Frame{Data: []byte{0xFF, 0xD8, 0xFF}, FrameID: 7}
}

func TestClient_ParsesDetections(t *testing.T) {
	var gotContentType, gotFrameID string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotFrameID = r.Header.Get("X-Frame-ID")
		w.Write([]byte(`{"detections":[
			{"x1":10,"y1":20,"x2":110,"y2":220,"confidence":0.87,"class_id":0,"label":"fire"},
			{"x1":5,"y1":5,"x2":50,"y2":60,"confidence":0.43,"class_id":1,"label":"smoke"}
		]}`))
	}))
	defer ts.Close()

	dets, err := newClient(ts.URL).Detect(context.Background(), testFrame())
	require.NoError(t, err)
	require.Len(t, dets, 2)

	assert.Equal(t, "image/jpeg", gotContentType)
	assert.Equal(t, "7", gotFrameID)
	assert.Equal(t, "fire", dets[0].Label)
	assert.InDelta(t, 0.87, dets[0].Confidence, 1e-9)
	assert.Equal(t, 1, dets[1].ClassID)
}

func TestClient_EmptyDetections(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"detections":[]}`))
	}))
	defer ts.Close()

	dets, err := newClient(ts.URL).Detect(context.Background(), testFrame())
	require.NoError(t, err)
	assert.Empty(t, dets)
}

func TestClient_ServerErrorEntersBackoff(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := newClient(ts.URL)

	_, err := client.Detect(context.Background(), testFrame())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	// The immediate retry is rejected locally by the backoff window.
	_, err = client.Detect(context.Background(), testFrame())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backoff")
}

func TestClient_RecoversAfterBackoff(t *testing.T) {
	fail := true
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"detections":[]}`))
	}))
	defer ts.Close()

	client := newClient(ts.URL)
	_, err := client.Detect(context.Background(), testFrame())
	require.Error(t, err)

	// Rewind the failure clock instead of sleeping through the backoff.
	client.mu.Lock()
	client.lastFailTime = time.Now().Add(-time.Minute)
	client.mu.Unlock()

	fail = false
	_, err = client.Detect(context.Background(), testFrame())
	assert.NoError(t, err)
}
