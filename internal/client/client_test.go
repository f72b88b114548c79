package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iconidentify/fbgrab/internal/domain"
)

func TestParseBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://localhost:9847", "http://localhost:9847", false},
		{"localhost:9847", "http://localhost:9847", false},
		{" https://grab.example/some/path?x=1 ", "https://grab.example", false},
		{"", "", true},
		{"http://", "", true},
	}

	for _, tt := range tests {
		u, err := parseBaseURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseBaseURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && u.String() != tt.want {
			t.Errorf("parseBaseURL(%q) = %q, want %q", tt.in, u.String(), tt.want)
		}
	}
}

func TestClient_ProcessVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/process" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-Request-ID"); got != "session-1" {
			t.Errorf("X-Request-ID = %q", got)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["url"] != "https://fb.com/v/1" {
			t.Errorf("url = %q", body["url"])
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(domain.ProcessingResult{
			Success:    true,
			DownloadID: "abc",
			Title:      "Clip",
			Formats:    []domain.VideoFormat{{FormatID: "hd"}},
			Message:    domain.MsgProcessed,
		})
	}))
	defer server.Close()

	c, err := NewClient(server.URL, "session-1")
	if err != nil {
		t.Fatal(err)
	}

	result, err := c.ProcessVideo(context.Background(), "https://fb.com/v/1")
	if err != nil {
		t.Fatalf("ProcessVideo error = %v", err)
	}
	if !result.Success || result.DownloadID != "abc" || len(result.Formats) != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestClient_ProcessVideo_FailureResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"message":"Video is private"}`))
	}))
	defer server.Close()

	c, _ := NewClient(server.URL, "")

	result, err := c.ProcessVideo(context.Background(), "https://fb.com/v/1")
	if err != nil {
		t.Fatalf("ProcessVideo error = %v", err)
	}
	if result.Success || result.Message != "Video is private" {
		t.Errorf("result = %+v", result)
	}
}

func TestClient_ProcessVideo_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
		wantSent   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"too many requests"}`, http.StatusTooManyRequests, "too many requests", domain.ErrUpstreamStatus},
		{"bad request", http.StatusBadRequest, `{"error":"invalid request body"}`, http.StatusBadRequest, "invalid request body", domain.ErrUpstreamStatus},
		{"malformed success body", http.StatusOK, `not json`, 0, "", domain.ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, _ := NewClient(server.URL, "")

			_, err := c.ProcessVideo(context.Background(), "https://fb.com/v/1")
			if !errors.Is(err, tt.wantSent) {
				t.Fatalf("error = %v, want %v", err, tt.wantSent)
			}
			if tt.wantStatus == 0 {
				return
			}
			ue, ok := domain.AsUpstream(err)
			if !ok {
				t.Fatalf("error %v is not an UpstreamError", err)
			}
			if ue.StatusCode != tt.wantStatus || ue.Message != tt.wantMsg {
				t.Errorf("upstream = %d %q, want %d %q", ue.StatusCode, ue.Message, tt.wantStatus, tt.wantMsg)
			}
		})
	}
}

func TestClient_ProcessVideo_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	serverURL := server.URL
	server.Close()

	c, _ := NewClient(serverURL, "")

	if _, err := c.ProcessVideo(context.Background(), "https://fb.com/v/1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/download/abc" || r.URL.Query().Get("format_id") != "hd" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		w.Write([]byte("video bytes"))
	}))
	defer server.Close()

	c, _ := NewClient("http://unused.example", "")

	body, err := c.Fetch(context.Background(), server.URL+"/api/download/abc?url=x&format_id=hd")
	if err != nil {
		t.Fatalf("Fetch error = %v", err)
	}
	defer body.Close()

	data, _ := io.ReadAll(body)
	if string(data) != "video bytes" {
		t.Errorf("body = %q", data)
	}
}

func TestClient_Fetch_ErrorShapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"fastapi detail", `{"detail":"Download failed: gone"}`, "Download failed: gone"},
		{"message", `{"message":"nope"}`, "nope"},
		{"server error", `{"error":"Failed to download video"}`, "Failed to download video"},
		{"not json", `<html>bad gateway</html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, _ := NewClient(server.URL, "")

			_, err := c.Fetch(context.Background(), server.URL+"/api/download/abc")
			ue, ok := domain.AsUpstream(err)
			if !ok {
				t.Fatalf("error %v is not an UpstreamError", err)
			}
			if ue.StatusCode != http.StatusBadGateway {
				t.Errorf("status = %d", ue.StatusCode)
			}
			if ue.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", ue.Message, tt.wantMsg)
			}
			if !strings.Contains(err.Error(), "502") {
				t.Errorf("error text = %q", err.Error())
			}
		})
	}
}
