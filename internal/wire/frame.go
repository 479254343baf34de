package wire

// FrameKind tells text envelopes apart from binary image frames.
type FrameKind int

const (
	FrameText FrameKind = iota
	FrameBinary
)

func (k FrameKind) String() string {
	switch k {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Frame is one inbound WebSocket message.
type Frame struct {
	Kind FrameKind
	Data []byte
}
