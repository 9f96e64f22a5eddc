package source

import (
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/lumenloop/lumend/internal/frame"
)

// defaultVideoFrameDuration is used when the container does not report
// a usable frame rate; 30 fps is assumed.
const defaultVideoFrameDuration = time.Second / 30

// videoSequence streams frames out of a video container through a
// GStreamer decode pipeline:
//
//	filesrc ! decodebin ! videoconvert ! video/x-raw,format=RGB ! appsink
//
// Frames arrive via the appsink new-sample callback and are handed to
// Next through a small buffered channel, so decode stays ahead of the
// render loop by at most a few frames.
type videoSequence struct {
	path     string
	pipeline *gst.Pipeline
	frames   chan frame.Frame
	eos      chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
	started  bool
}

func newVideoSequence(path string) *videoSequence {
	return &videoSequence{
		path:   path,
		frames: make(chan frame.Frame, 4),
		eos:    make(chan struct{}),
		quit:   make(chan struct{}),
	}
}

func (v *videoSequence) start() error {
	gst.Init(nil)

	desc := fmt.Sprintf(
		"filesrc location=%q ! decodebin ! videoconvert ! video/x-raw,format=RGB ! appsink name=sink sync=false",
		v.path)
	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return &DecodeError{Path: v.path, Err: err}
	}

	elem, err := pipeline.GetElementByName("sink")
	if err != nil {
		pipeline.SetState(gst.StateNull)
		return &DecodeError{Path: v.path, Err: err}
	}
	sink := app.SinkFromElement(elem)

	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: v.onSample,
		EOSFunc: func(_ *app.Sink) {
			close(v.eos)
		},
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return &DecodeError{Path: v.path, Err: err}
	}
	v.pipeline = pipeline
	return nil
}

func (v *videoSequence) onSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return gst.FlowOK
	}

	w, h := sampleDims(sample)
	if w <= 0 || h <= 0 || len(data) < h {
		buffer.Unmap()
		return gst.FlowOK
	}

	// GStreamer pads RGB rows to 4-byte boundaries; derive the actual
	// stride from the buffer rather than assuming w*3.
	stride := len(data) / h
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := data[y*stride:]
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i+0] = row[x*3+0]
			img.Pix[i+1] = row[x*3+1]
			img.Pix[i+2] = row[x*3+2]
			img.Pix[i+3] = 0xFF
		}
	}

	dur := buffer.Duration()
	buffer.Unmap()
	if dur <= 0 || dur > time.Second {
		dur = defaultVideoFrameDuration
	}

	v.deliver(frame.Frame{Img: img, Duration: dur})
	return gst.FlowOK
}

// deliver hands a decoded frame to Next, blocking while the channel is
// full so decode cannot outrun playback. Close releases a blocked
// streaming thread via quit; without that, tearing down the pipeline
// would wait forever on a callback parked here.
func (v *videoSequence) deliver(f frame.Frame) bool {
	select {
	case v.frames <- f:
		return true
	case <-v.eos:
		return false
	case <-v.quit:
		return false
	}
}

func sampleDims(sample *gst.Sample) (w, h int) {
	caps := sample.GetCaps()
	if caps == nil {
		return 0, 0
	}
	st := caps.GetStructureAt(0)
	if st == nil {
		return 0, 0
	}
	if wv, err := st.GetValue("width"); err == nil {
		w, _ = wv.(int)
	}
	if hv, err := st.GetValue("height"); err == nil {
		h, _ = hv.(int)
	}
	return w, h
}

func (v *videoSequence) Next() (frame.Frame, error) {
	if !v.started {
		if err := v.start(); err != nil {
			return frame.Frame{}, err
		}
		v.started = true
	}

	select {
	case f := <-v.frames:
		return f, nil
	case <-v.eos:
		// Drain frames already decoded before the EOS arrived.
		select {
		case f := <-v.frames:
			return f, nil
		default:
			return frame.Frame{}, io.EOF
		}
	case <-time.After(10 * time.Second):
		return frame.Frame{}, &DecodeError{Path: v.path, Err: fmt.Errorf("decode stalled")}
	}
}

func (v *videoSequence) Close() error {
	// Unblock the streaming thread first; SetState(Null) waits for it.
	v.quitOnce.Do(func() { close(v.quit) })
	if v.pipeline != nil {
		v.pipeline.SetState(gst.StateNull)
		v.pipeline = nil
	}
	return nil
}
