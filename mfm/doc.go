// Package mfm builds and parses MFM track images as seen by a WD1772 style
// floppy disk controller.
//
// A track is exactly [TrackSize] bytes long and holds, for every sector, an ID
// field and a data field. Each field is introduced by an address mark: a run of
// zero bytes, three 0xA1 sync bytes, and a tag byte (0xFE for an ID field,
// 0xFB for a data field). Fields end with a big-endian CRC16.
//
// Two hardware revisions disagree on the sync run length and on the CRC preset.
// A [Dialect] captures one revision; every function that encodes or scans a
// track takes one explicitly.
package mfm
