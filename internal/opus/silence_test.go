package opus_test

import (
	"testing"

	"github.com/glizzus/voice-overlay/internal/opus"
)

func TestIsSilence(t *testing.T) {
	tc := []struct {
		name  string
		frame []byte
		want  bool
	}{
		{name: "silence marker", frame: []byte{0xF8, 0xFF, 0xFE}, want: true},
		{name: "empty frame", frame: nil, want: false},
		{name: "speech", frame: []byte{0x78, 0x01, 0x02, 0x03}, want: false},
		{name: "marker prefix only", frame: []byte{0xF8, 0xFF}, want: false},
	}

	for _, testCase := range tc {
		t.Run(testCase.name, func(t *testing.T) {
			if got := opus.IsSilence(testCase.frame); got != testCase.want {
				t.Errorf("IsSilence(%v) = %v, want %v", testCase.frame, got, testCase.want)
			}
		})
	}
}
