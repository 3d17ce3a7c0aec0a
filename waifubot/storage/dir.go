package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/disgoorg/waifu-bot/waifubot/render"
)

// DirArtSource serves portraits from a local directory, for deployments without Spaces.
type DirArtSource struct {
	root string
}

func NewDirArtSource(root string) *DirArtSource {
	return &DirArtSource{root: root}
}

func (d *DirArtSource) Art(_ context.Context, key string) ([]byte, error) {
	// Cleaning a rooted path drops any leading "..", keeping reads under root.
	clean := filepath.Clean("/" + key)
	data, err := os.ReadFile(filepath.Join(d.root, clean))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", render.ErrArtNotFound, key)
	}
	return data, err
}
