package compression

// ByteRun is a stretch of identical bytes in a track.
type ByteRun struct {
	Byte byte
	// RunLength is the number of bytes in the run, always at least 1.
	RunLength int
}

// RunScanner splits an in-memory track into runs of identical bytes.
type RunScanner struct {
	data      []byte
	pos       int
	maxLength int
}

// NewRunScanner returns a scanner over `data`. Runs longer than `maxLength`
// bytes are split; a `maxLength` of 0 means no limit.
func NewRunScanner(data []byte, maxLength int) *RunScanner {
	return &RunScanner{data: data, maxLength: maxLength}
}

// Next returns the run starting at the current position, and false once the
// whole track has been consumed.
func (s *RunScanner) Next() (ByteRun, bool) {
	if s.pos >= len(s.data) {
		return ByteRun{}, false
	}

	value := s.data[s.pos]
	end := s.pos + 1
	for end < len(s.data) && s.data[end] == value {
		if s.maxLength > 0 && end-s.pos >= s.maxLength {
			break
		}
		end++
	}

	run := ByteRun{Byte: value, RunLength: end - s.pos}
	s.pos = end
	return run, true
}
