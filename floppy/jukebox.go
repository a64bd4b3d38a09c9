package floppy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zerkman/zest"
	"github.com/zerkman/zest/flopimg"
	"github.com/zerkman/zest/logger"
)

// Jukebox inserts the images of a directory into a drive one after the other,
// in name order, and starts again from the first once they have all been
// played.
type Jukebox struct {
	Dir      string
	Interval time.Duration
	Drive    int
	Changer  zest.FloppyChanger
}

// Images lists the image files of the directory, in name order.
func (j *Jukebox) Images() ([]string, error) {
	entries, err := os.ReadDir(j.Dir)
	if err != nil {
		return nil, err
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, err := flopimg.FormatFromPath(entry.Name()); err == nil {
			images = append(images, filepath.Join(j.Dir, entry.Name()))
		}
	}
	return images, nil
}

// Run changes the disk every Interval until `ctx` is cancelled. Images that
// fail to load are logged and skipped on the next tick.
func (j *Jukebox) Run(ctx context.Context) error {
	if j.Interval <= 0 {
		return fmt.Errorf("invalid jukebox interval %s", j.Interval)
	}
	images, err := j.Images()
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return zest.ErrNotFound.WithMessage(fmt.Sprintf("no floppy images in %s", j.Dir))
	}

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	for i := 0; ; i = (i + 1) % len(images) {
		if err := j.Changer.ChangeFloppy(images[i], j.Drive); err != nil {
			logger.Logf("jukebox", "%s: %v", images[i], err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
