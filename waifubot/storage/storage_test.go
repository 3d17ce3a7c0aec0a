package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/disgoorg/waifu-bot/waifubot/render"
)

func TestSpacesArtSource_Art(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cards/art/rem.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("png-bytes"))
		default:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
		}
	}))
	defer srv.Close()

	src, err := NewSpacesArtSource(context.Background(), SpacesOptions{
		Key:       "key",
		Secret:    "secret",
		Region:    "ams3",
		Bucket:    "cards",
		Endpoint:  srv.URL,
		ArtRoot:   "/art/",
		PathStyle: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		key     string
		want    string
		wantErr error
	}{
		{name: "found", key: "rem.png", want: "png-bytes"},
		{name: "leading slash", key: "/rem.png", want: "png-bytes"},
		{name: "missing", key: "emilia.png", wantErr: render.ErrArtNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := src.Art(context.Background(), tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Art() error = %v, want %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("Art() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDirArtSource_Art(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "rem.png"), []byte("png-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}
	src := NewDirArtSource(root)

	if got, err := src.Art(context.Background(), "rem.png"); err != nil || string(got) != "png-bytes" {
		t.Errorf("Art(rem.png) = %q, %v", got, err)
	}
	if _, err := src.Art(context.Background(), "nope.png"); !errors.Is(err, render.ErrArtNotFound) {
		t.Errorf("Art(nope.png) error = %v", err)
	}
	if got, err := src.Art(context.Background(), "../../rem.png"); err != nil || string(got) != "png-bytes" {
		t.Errorf("escaping key was not confined to root: %q, %v", got, err)
	}
}
