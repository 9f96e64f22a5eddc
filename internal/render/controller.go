package render

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumenloop/lumend/internal/config"
	"github.com/lumenloop/lumend/internal/device"
	"github.com/lumenloop/lumend/internal/frame"
	"github.com/lumenloop/lumend/internal/pattern"
	"github.com/lumenloop/lumend/internal/source"
)

// State is the controller's playback state.
type State int

const (
	StateIdle State = iota
	StatePlayingAsset
	StatePlayingPattern
)

// idlePoll is how often the worker re-checks for work while idle.
const idlePoll = 20 * time.Millisecond

// Status is a point-in-time snapshot of the controller. External layers
// only ever see copies of this; the live state stays behind the lock.
type Status struct {
	Running    bool      `json:"running"`
	Path       string    `json:"path,omitempty"`
	Pattern    string    `json:"pattern,omitempty"`
	Frames     uint64    `json:"frames"`
	LastDrawMS float64   `json:"last_draw_ms"`
	StartedAt  time.Time `json:"started_at"`
}

// Params is a partial render-config update; nil fields are left
// unchanged. Applied values are clamped, never rejected.
type Params struct {
	Gamma      *float64    `json:"gamma,omitempty"`
	RGBBalance *[3]float64 `json:"rgb_balance,omitempty"`
	Rotate     *int        `json:"rotate,omitempty"`
	MirrorX    *bool       `json:"mirror_x,omitempty"`
	MirrorY    *bool       `json:"mirror_y,omitempty"`
	FPSCap     *float64    `json:"fps_cap,omitempty"`
	Scale      *string     `json:"scale,omitempty"`
}

// Controller owns the single worker goroutine that pulls frames from
// the active source or pattern, pushes them through transform, color
// correction, and the mapper, and draws them on the output device.
//
// All control operations are safe for concurrent use; shared state is
// guarded by one mutex, and no blocking I/O or device write happens
// while it is held. Cancellation is cooperative: the worker observes a
// generation counter at two safe points per frame, bounding stop
// latency to roughly one frame period.
type Controller struct {
	dev device.Device
	log zerolog.Logger

	mu        sync.Mutex
	cfg       config.RenderConfig
	topo      config.Topology
	mapper    *Mapper
	state     State
	path      string
	patName   string
	patParams pattern.Params
	gen       uint64

	frames     uint64
	lastDrawMS float64
	startedAt  time.Time
	latest     frame.Frame

	// onExhausted, when set, is consulted after a finite asset plays
	// out; returning a path keeps the controller in asset mode on that
	// path instead of going idle. Used for playlist advancement.
	onExhausted func() (string, bool)

	quit chan struct{}
	done chan struct{}
}

// NewController builds a controller around dev and starts its worker.
func NewController(dev device.Device, cfg *config.Config, log zerolog.Logger) *Controller {
	mapper, err := NewMapper(cfg.Topology)
	if err != nil {
		log.Warn().Err(err).Msg("pixel map unavailable; using row-major order")
	}
	c := &Controller{
		dev:    dev,
		log:    log,
		cfg:    cfg.Render,
		topo:   cfg.Topology,
		mapper: mapper,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	c.cfg.Clamp()
	go c.run()
	return c
}

// OnExhausted installs the finite-asset exhaustion hook. Must be set
// before playback starts; typically wired to a playlist's Next.
func (c *Controller) OnExhausted(fn func() (string, bool)) {
	c.mu.Lock()
	c.onExhausted = fn
	c.mu.Unlock()
}

// Start switches playback to the asset at path. The path must resolve
// to an existing regular file; otherwise source.ErrAssetNotFound is
// returned and the current state is untouched.
func (c *Controller) Start(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %s", source.ErrAssetNotFound, path)
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", source.ErrAssetNotFound, path)
	}

	c.mu.Lock()
	c.state = StatePlayingAsset
	c.path = abs
	c.patName = ""
	c.patParams = nil
	c.resetStatsLocked()
	c.gen++
	c.mu.Unlock()

	c.log.Info().Str("path", abs).Msg("playback started")
	return nil
}

// StartPattern switches playback to the named builtin pattern. Unknown
// names fall back to solid black; the switch itself always succeeds.
func (c *Controller) StartPattern(name string, params pattern.Params) {
	if !pattern.Known(name) {
		c.log.Warn().Str("pattern", name).Msg("unknown pattern; falling back to black")
	}

	c.mu.Lock()
	c.state = StatePlayingPattern
	c.patName = name
	c.patParams = params
	c.path = ""
	c.resetStatsLocked()
	c.gen++
	c.mu.Unlock()

	c.log.Info().Str("pattern", name).Msg("pattern started")
}

// Stop returns the controller to idle. The cached preview image and the
// mapper survive a stop.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.state = StateIdle
	c.path = ""
	c.patName = ""
	c.patParams = nil
	c.gen++
	c.mu.Unlock()

	c.log.Info().Msg("playback stopped")
}

// SetRenderParams merges p into the live render config. Values are
// clamped into range. The change takes effect on the next frame without
// interrupting playback; frame counters are never reset here.
func (c *Controller) SetRenderParams(p Params) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.Gamma != nil {
		c.cfg.Gamma = *p.Gamma
	}
	if p.RGBBalance != nil {
		c.cfg.RGBBalance = *p.RGBBalance
	}
	if p.Rotate != nil {
		c.cfg.Rotate = *p.Rotate
	}
	if p.MirrorX != nil {
		c.cfg.MirrorX = *p.MirrorX
	}
	if p.MirrorY != nil {
		c.cfg.MirrorY = *p.MirrorY
	}
	if p.FPSCap != nil {
		c.cfg.FPSCap = *p.FPSCap
	}
	if p.Scale != nil {
		c.cfg.Scale = *p.Scale
	}
	c.cfg.Clamp()
}

// SetTopology swaps the device topology and rebuilds the mapper, which
// caches derived geometry. Playback continues; the next frame uses the
// new canvas.
func (c *Controller) SetTopology(topo config.Topology) {
	mapper, err := NewMapper(topo)
	if err != nil {
		c.log.Warn().Err(err).Msg("pixel map unavailable; using row-major order")
	}
	c.mu.Lock()
	c.topo = topo
	c.mapper = mapper
	c.mu.Unlock()
}

// SetBrightness forwards to the output device. Hardware rejection is
// logged, never fatal.
func (c *Controller) SetBrightness(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	if err := c.dev.SetBrightness(v); err != nil {
		c.log.Warn().Err(err).Float64("brightness", v).Msg("device rejected brightness")
	}
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Running:    c.state != StateIdle,
		Path:       c.path,
		Pattern:    c.patName,
		Frames:     c.frames,
		LastDrawMS: c.lastDrawMS,
		StartedAt:  c.startedAt,
	}
}

// LatestImage returns a copy of the most recently emitted frame, or nil
// if nothing has been drawn yet.
func (c *Controller) LatestImage() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest.Img == nil {
		return nil
	}
	return c.latest.Clone().Img
}

// RenderConfig returns a copy of the live render configuration.
func (c *Controller) RenderConfig() config.RenderConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Close signals the worker, awaits its exit, and closes the device.
func (c *Controller) Close() error {
	close(c.quit)
	<-c.done
	return c.dev.Close()
}

func (c *Controller) resetStatsLocked() {
	c.frames = 0
	c.lastDrawMS = 0
	c.startedAt = time.Now()
}

// ---- worker ----

type playResult int

const (
	playCancelled playResult = iota
	playExhausted
	playFailed
	playQuit
)

func (c *Controller) run() {
	defer close(c.done)
	bo := newBackoff(c.log)
	for {
		select {
		case <-c.quit:
			return
		default:
		}

		c.mu.Lock()
		st, gen := c.state, c.gen
		path := c.path
		name, params := c.patName, c.patParams
		w, h := c.topo.Width, c.topo.Height
		c.mu.Unlock()

		switch st {
		case StateIdle:
			if !c.sleep(idlePoll) {
				return
			}
		case StatePlayingAsset:
			c.playAsset(gen, path, bo)
		case StatePlayingPattern:
			seq := pattern.New(name, params, w, h)
			res := c.play(gen, seq, bo)
			seq.Close()
			if res == playQuit {
				return
			}
		}
	}
}

// playAsset opens and plays one pass of the asset at path. Open and
// decode failures keep the requested mode: the worker backs off and the
// outer loop retries, so a transient I/O failure does not force the
// caller to re-issue Start. Normal exhaustion advances the playlist if
// one is wired, otherwise transitions to idle.
func (c *Controller) playAsset(gen uint64, path string, bo *backoff) {
	seq, err := source.Open(path)
	if err != nil {
		bo.fail(err)
		c.sleep(bo.next())
		return
	}
	defer seq.Close()

	switch c.play(gen, seq, bo) {
	case playExhausted:
		c.advanceOrIdle(gen)
	case playFailed:
		c.sleep(bo.next())
	}
}

// play pumps frames from seq until cancellation, exhaustion, or error.
// Cancellation is checked immediately before and after the inter-frame
// sleep; there is no mid-frame preemption.
func (c *Controller) play(gen uint64, seq source.Sequence, bo *backoff) playResult {
	for {
		if c.cancelled(gen) {
			return playCancelled
		}

		f, err := seq.Next()
		if errors.Is(err, io.EOF) {
			return playExhausted
		}
		if err != nil {
			bo.fail(err)
			return playFailed
		}
		if fw, fh := f.Size(); fw == 0 || fh == 0 {
			bo.fail(fmt.Errorf("empty frame from source"))
			return playFailed
		}

		start := time.Now()

		c.mu.Lock()
		cfg := c.cfg
		mapper := c.mapper
		w, h := c.topo.Width, c.topo.Height
		c.mu.Unlock()

		img := Transform(f.Img, cfg, w, h)
		img = Correct(img, cfg)
		pix := mapper.Serialize(img)

		if err := c.dev.Draw(w, h, pix); err != nil {
			bo.fail(err)
			if !c.sleep(bo.next()) {
				return playQuit
			}
			continue
		}
		bo.reset()

		drawMS := float64(time.Since(start).Microseconds()) / 1000.0
		c.mu.Lock()
		if c.gen == gen {
			c.frames++
			c.lastDrawMS = drawMS
			c.latest = frame.Frame{Img: img, Duration: f.Duration}
		}
		c.mu.Unlock()

		if c.cancelled(gen) {
			return playCancelled
		}
		if !c.sleep(c.pace(f, cfg)) {
			return playQuit
		}
		if c.cancelled(gen) {
			return playCancelled
		}
	}
}

// pace returns the inter-frame sleep: the frame's own duration when it
// has one, otherwise the fps cap interval.
func (c *Controller) pace(f frame.Frame, cfg config.RenderConfig) time.Duration {
	if f.Duration > 0 {
		return f.Duration
	}
	fps := cfg.FPSCap
	if fps < 1 {
		fps = 1
	}
	return time.Duration(float64(time.Second) / fps)
}

// advanceOrIdle handles normal exhaustion of a finite asset: move to
// the next playlist item when a hook is wired, else go idle. A control
// operation that raced the exhaustion wins.
func (c *Controller) advanceOrIdle(gen uint64) {
	c.mu.Lock()
	hook := c.onExhausted
	c.mu.Unlock()

	var next string
	var ok bool
	if hook != nil {
		next, ok = hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	if ok && next != "" {
		if abs, err := filepath.Abs(next); err == nil {
			if info, err := os.Stat(abs); err == nil && !info.IsDir() {
				c.path = abs
				c.resetStatsLocked()
				c.gen++
				c.log.Info().Str("path", abs).Msg("playlist advanced")
				return
			}
		}
		c.log.Warn().Str("path", next).Msg("playlist item missing; going idle")
	}
	c.state = StateIdle
	c.path = ""
	c.gen++
}

func (c *Controller) cancelled(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen != gen
}

// sleep waits for d or until shutdown; false means the controller is
// shutting down.
func (c *Controller) sleep(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-c.quit:
		return false
	case <-t.C:
		return true
	}
}

// ---- error backoff ----

// backoff bounds the retry rate after decode or device failures and
// rate-limits the log storm a permanently broken asset would otherwise
// produce: the first few failures log at warn, after that only every
// twentieth.
type backoff struct {
	log   zerolog.Logger
	d     time.Duration
	fails int
}

const (
	backoffInitial = 250 * time.Millisecond
	backoffMax     = 5 * time.Second
)

func newBackoff(log zerolog.Logger) *backoff {
	return &backoff{log: log, d: backoffInitial}
}

func (b *backoff) fail(err error) {
	b.fails++
	if b.fails <= 3 || b.fails%20 == 0 {
		b.log.Warn().Err(err).Int("consecutive_failures", b.fails).Msg("render error; backing off")
	}
}

func (b *backoff) next() time.Duration {
	d := b.d
	b.d *= 2
	if b.d > backoffMax {
		b.d = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.d = backoffInitial
	b.fails = 0
}
