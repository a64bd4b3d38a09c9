package zest

// Request register bit layout. The FPGA posts one 32-bit request word per
// 16-byte window of the rotating track.
const (
	RequestRead  = 1 << 31
	RequestWrite = 1 << 30

	RequestAddrShift  = 21
	RequestAddrMask   = 0x1ff
	RequestTrackShift = 13
	RequestTrackMask  = 0xff
	RequestDriveShift = 12
	RequestDriveMask  = 0x1
)

// Register window layout, in bytes.
const (
	RequestRegisterOffset = 0
	FIFOOffset            = 8 * 4
	FIFOSize              = 16
	RegisterWindowSize    = 0x1000
)

// Track timing. One revolution is MaxAddr+1 FIFO windows; the last full
// window before the index is only TrackTailSize bytes long.
const (
	TrackSize     = 6250
	MaxAddr       = 390
	TrackTailSize = TrackSize % FIFOSize
)

const (
	DriveA = 0
	DriveB = 1

	NumDrives = 2
)
