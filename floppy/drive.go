package floppy

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/zerkman/zest/disks"
	"github.com/zerkman/zest/flopimg"
	"github.com/zerkman/zest/logger"
)

// Drive is one of the two floppy drives. It holds at most one image.
//
// The track buffer is only accessed under the I/O lock, which is never held
// during file I/O: a disk change opens and closes files with the lock released
// and only takes it to swap the image pointer.
type Drive struct {
	id      int
	options flopimg.Options

	// change serializes disk changes.
	change sync.Mutex

	mu           sync.Mutex
	image        *flopimg.Image
	writeProtect bool
	// disk changes every time the drive is emptied or loaded.
	disk uint64
}

// NewDrive creates an empty drive. `options` is used to open every inserted
// image.
func NewDrive(id int, options flopimg.Options) *Drive {
	return &Drive{id: id, options: options}
}

// Name returns the drive letter.
func (d *Drive) Name() string {
	return string(rune('A' + d.id))
}

// Change ejects the current disk, writing it back if it was modified, then
// inserts the image at `path`. An empty path only ejects. The image is opened
// read-only when `writeProtect` is set.
//
// If the new image cannot be opened the drive is left empty. Errors from both
// the eject and the insert are returned.
func (d *Drive) Change(path string, writeProtect bool) error {
	d.change.Lock()
	defer d.change.Unlock()

	d.mu.Lock()
	old := d.image
	d.image = nil
	d.writeProtect = writeProtect
	d.disk++
	d.mu.Unlock()

	var result *multierror.Error
	if old != nil {
		if err := old.Close(); err != nil {
			logger.Logf("floppy", "drive %s: ejecting %s: %v", d.Name(), old.Path(), err)
			result = multierror.Append(result, err)
		} else {
			logger.Logf("floppy", "drive %s: ejected %s", d.Name(), old.Path())
		}
	}
	if path == "" {
		return result.ErrorOrNil()
	}

	options := d.options
	options.ReadOnly = writeProtect
	img, err := flopimg.Open(path, options)
	if err != nil {
		logger.Logf("floppy", "drive %s: %v", d.Name(), err)
		return multierror.Append(result, err).ErrorOrNil()
	}

	d.mu.Lock()
	d.image = img
	d.disk++
	d.mu.Unlock()
	logger.Logf("floppy", "drive %s: inserted %s", d.Name(), path)
	return result.ErrorOrNil()
}

// Eject removes the disk, writing it back if it was modified.
func (d *Drive) Eject() error {
	return d.Change("", d.WriteProtected())
}

// Inserted tells whether the drive holds a disk.
func (d *Drive) Inserted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.image != nil
}

// Path returns the path of the inserted image, or an empty string.
func (d *Drive) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.image == nil {
		return ""
	}
	return d.image.Path()
}

// Geometry returns the geometry of the inserted disk.
func (d *Drive) Geometry() (disks.Geometry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.image == nil {
		return disks.Geometry{}, false
	}
	return d.image.Geometry(), true
}

// WriteProtected tells whether the write-protect tab is set.
func (d *Drive) WriteProtected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeProtect
}

// SetWriteProtect changes the write-protect tab. It takes effect on the next
// write; an image inserted write-protected stays read-only on disk until it is
// inserted again.
func (d *Drive) SetWriteProtect(protect bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeProtect = protect
}

// ReadTrack copies bytes of a track starting at `offset` into `dst`. It
// returns false when there is no disk or the position cannot exist.
func (d *Drive) ReadTrack(track, side, offset int, dst []byte) bool {
	_, ok := d.read(track, side, offset, dst)
	return ok
}

// read is ReadTrack, also returning the disk the bytes came from.
func (d *Drive) read(track, side, offset int, dst []byte) (uint64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.image == nil {
		return d.disk, false
	}
	slot := d.image.Track(track, side)
	if slot == nil || offset < 0 || offset >= len(slot) {
		return d.disk, false
	}
	copy(dst, slot[offset:])
	return d.disk, true
}

// WriteTrack copies `src` into a track starting at `offset` and marks the
// track for write-back. Nothing is written to a write-protected disk.
func (d *Drive) WriteTrack(track, side, offset int, src []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeLocked(track, side, offset, src)
}

// writeDisk is WriteTrack, but only writes if `disk` is still inserted.
func (d *Drive) writeDisk(disk uint64, track, side, offset int, src []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if disk != d.disk {
		logger.Logf("floppy", "drive %s: dropped a write for an ejected disk", d.Name())
		return false
	}
	return d.writeLocked(track, side, offset, src)
}

func (d *Drive) writeLocked(track, side, offset int, src []byte) bool {
	if d.image == nil || d.writeProtect || d.image.ReadOnly() {
		return false
	}
	slot := d.image.Track(track, side)
	if slot == nil || offset < 0 || offset >= len(slot) {
		return false
	}
	copy(slot[offset:], src)
	d.image.MarkWriteback(track, side)
	return true
}
