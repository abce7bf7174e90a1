package opus

import "bytes"

// SilenceFrame is the frame a Discord client sends (usually five times in a
// row) right before it stops transmitting.
var SilenceFrame = []byte{0xF8, 0xFF, 0xFE}

// IsSilence reports whether frame is the silence marker rather than speech.
func IsSilence(frame []byte) bool {
	return bytes.Equal(frame, SilenceFrame)
}
