// Package compression implements the run-length encoding used by MSA (Magic
// Shadow Archiver) floppy disk images.
//
// Every track of an MSA image is compressed on its own. A run is written as
// four bytes: the marker 0xE5, the repeated byte, and the run length as a
// big-endian 16-bit number. Any other byte stands for itself. Since 0xE5 is
// the marker, a literal 0xE5 must always be written as a run, even when it
// occurs only once:
//
//	41 42 42 42 42 42 42 E5 43
//	41 E5 42 00 06 E5 E5 00 01 43
//
// Runs shorter than four bytes (other than 0xE5) are cheaper as literals and
// are left alone. A packed track that is not smaller than the raw data is
// stored raw instead; readers tell the two apart by the length prefix of the
// track.
package compression
