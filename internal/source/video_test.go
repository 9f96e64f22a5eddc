package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenloop/lumend/internal/frame"
)

// The decoder blocks in deliver once the frame channel fills; Close must
// release it even when nobody is draining, or pipeline teardown waits on
// the parked streaming thread forever.
func TestVideoCloseReleasesBlockedDecoder(t *testing.T) {
	v := newVideoSequence("clip.mp4")
	for i := 0; i < cap(v.frames); i++ {
		require.True(t, v.deliver(frame.Frame{}))
	}

	unblocked := make(chan bool, 1)
	go func() { unblocked <- v.deliver(frame.Frame{}) }()

	select {
	case <-unblocked:
		t.Fatal("deliver returned with the channel full and no reader")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, v.Close())
	select {
	case ok := <-unblocked:
		assert.False(t, ok, "frame after close must be discarded")
	case <-time.After(2 * time.Second):
		t.Fatal("deliver still blocked after Close")
	}
}

func TestVideoCloseIsIdempotent(t *testing.T) {
	v := newVideoSequence("clip.mp4")
	require.NoError(t, v.Close())
	require.NoError(t, v.Close())
}
