package floppy

// PipelineDepth is the number of read positions remembered by a Pipeline.
const PipelineDepth = 3

// WriteDelay is the number of requests between the read of a window and the
// request carrying the data the hardware writes to it.
const WriteDelay = 2

// Position is a window of a track served to the hardware.
type Position struct {
	Offset int
	Count  int
	Drive  int
	Track  int
	Side   int
	// Disk identifies the disk the window was read from.
	Disk uint64
}

// Pipeline is a fixed-size delay line of the most recently served positions.
// The zero value is empty and ready to use.
type Pipeline struct {
	entries [PipelineDepth]Position
	next    int
	size    int
}

// Push records a position, evicting the oldest one when the pipeline is full.
func (p *Pipeline) Push(pos Position) {
	p.entries[p.next] = pos
	p.next = (p.next + 1) % PipelineDepth
	if p.size < PipelineDepth {
		p.size++
	}
}

// Delayed returns the position pushed `n` pushes before the most recent one;
// Delayed(0) is the most recent. It fails when fewer than n+1 positions have
// been pushed.
func (p *Pipeline) Delayed(n int) (Position, bool) {
	if n < 0 || n >= p.size {
		return Position{}, false
	}
	return p.entries[(p.next-1-n+2*PipelineDepth)%PipelineDepth], true
}

// Len gives the number of positions held.
func (p *Pipeline) Len() int {
	return p.size
}

// Reset empties the pipeline.
func (p *Pipeline) Reset() {
	*p = Pipeline{}
}
