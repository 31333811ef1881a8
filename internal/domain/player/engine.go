package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Defaults for Options.
const (
	DefaultTickInterval     = 100 * time.Millisecond
	DefaultRestartThreshold = 0.10
)

// Options configures an Engine.
type Options struct {
	Factory  TransportFactory
	Opener   StreamOpener      // optional, needed for waveforms
	Waveform WaveformProcessor // optional

	TickInterval     time.Duration
	RestartThreshold float64 // Previous restarts the track above this progress
	MailboxSize      int
}

type command struct {
	name  string
	fn    func() error
	reply chan error
}

// Engine owns the queue, the current entry and the single live transport.
// All state is confined to the goroutine running Run; commands are closures
// executed there in the order they are received.
type Engine struct {
	factory          TransportFactory
	opener           StreamOpener
	waveform         WaveformProcessor
	tick             time.Duration
	restartThreshold float64
	mailboxSize      int

	cmds    chan command
	events  chan func()
	quit    chan struct{}
	stopped chan struct{}
	started atomic.Bool
	once    sync.Once

	snap   atomic.Pointer[Snapshot]
	subsMu sync.Mutex
	subs   map[*Subscription]struct{}
	dead   bool

	// Loop-owned state.
	runCtx      context.Context
	queue       Queue
	curToken    string
	transport   Transport
	loadGen     uint64
	waveGen     uint64
	waveCancel  context.CancelFunc
	amplitudes  []int
	playing     bool
	position    int64
	duration    int64
	progress    float64
	seq         uint64
	queueRev    uint64
	queueCopy   []QueueEntry
}

// NewEngine creates an engine. Call Run to start processing commands.
func NewEngine(opts Options) *Engine {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.RestartThreshold <= 0 {
		opts.RestartThreshold = DefaultRestartThreshold
	}
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = DefaultMailboxSize
	}

	e := &Engine{
		factory:          opts.Factory,
		opener:           opts.Opener,
		waveform:         opts.Waveform,
		tick:             opts.TickInterval,
		restartThreshold: opts.RestartThreshold,
		mailboxSize:      opts.MailboxSize,
		cmds:             make(chan command),
		events:           make(chan func(), 16),
		quit:             make(chan struct{}),
		stopped:          make(chan struct{}),
		subs:             make(map[*Subscription]struct{}),
		runCtx:           context.Background(),
		queueCopy:        []QueueEntry{},
		amplitudes:       []int{},
	}
	e.snap.Store(emptySnapshot())
	return e
}

// Run processes commands, transport events and sampling ticks until ctx is
// cancelled or Close is called.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return errors.New("engine already running")
	}
	defer close(e.stopped)
	defer e.shutdown()

	e.runCtx = ctx
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	log.Info().Dur("tick", e.tick).Msg("Playback engine started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.quit:
			return nil
		case cmd := <-e.cmds:
			cmd.reply <- e.exec(cmd)
		case ev := <-e.events:
			ev()
		case <-ticker.C:
			e.sample()
		}
	}
}

// Close stops the engine, releases the transport and closes all subscriptions.
func (e *Engine) Close() {
	e.once.Do(func() {
		close(e.quit)
	})
	if e.started.Load() {
		<-e.stopped
	} else {
		e.closeSubscriptions()
	}
}

func (e *Engine) shutdown() {
	if e.waveCancel != nil {
		e.waveCancel()
	}
	e.releaseTransport()
	e.closeSubscriptions()
	log.Info().Msg("Playback engine stopped")
}

func (e *Engine) closeSubscriptions() {
	e.subsMu.Lock()
	subs := make([]*Subscription, 0, len(e.subs))
	for s := range e.subs {
		subs = append(subs, s)
	}
	e.subs = make(map[*Subscription]struct{})
	e.dead = true
	e.subsMu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}

// do runs fn on the engine goroutine and waits for its result.
func (e *Engine) do(ctx context.Context, name string, fn func() error) error {
	select {
	case <-e.quit:
		return ErrEngineClosed
	default:
	}

	reply := make(chan error, 1)
	select {
	case e.cmds <- command{name: name, fn: fn, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.quit:
		return ErrEngineClosed
	case <-e.stopped:
		return ErrEngineClosed
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) exec(cmd command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("command", cmd.name).Interface("panic", r).Msg("Engine command panicked")
			err = fmt.Errorf("%s: panic: %v", cmd.name, r)
		}
	}()
	err = cmd.fn()
	e.publish(0, nil)
	return err
}

// post delivers an event from another goroutine to the engine loop.
func (e *Engine) post(fn func()) {
	select {
	case e.events <- fn:
	case <-e.quit:
	case <-e.stopped:
	}
}

// Snapshot returns the most recently published state.
func (e *Engine) Snapshot() Snapshot {
	return *e.snap.Load()
}

// Subscribe returns a subscription for updates touching any of fields.
func (e *Engine) Subscribe(fields Field) *Subscription {
	if fields == 0 {
		fields = FieldAll
	}
	s := newSubscription(fields, e.mailboxSize, e.unsubscribe)

	e.subsMu.Lock()
	dead := e.dead
	if !dead {
		e.subs[s] = struct{}{}
	}
	e.subsMu.Unlock()

	if dead {
		s.Close()
	}
	return s
}

func (e *Engine) unsubscribe(s *Subscription) {
	e.subsMu.Lock()
	delete(e.subs, s)
	e.subsMu.Unlock()
}

// publish stores a new snapshot and fans it out when something changed.
func (e *Engine) publish(extra Field, err error) {
	next := e.buildSnapshot()
	prev := e.snap.Load()
	changed := diff(prev, next) | extra
	if changed == 0 {
		return
	}

	e.seq++
	next.Seq = e.seq
	e.snap.Store(next)

	u := Update{Changed: changed, Snapshot: *next, Err: err}
	e.subsMu.Lock()
	for s := range e.subs {
		s.offer(u)
	}
	e.subsMu.Unlock()
}

func (e *Engine) buildSnapshot() *Snapshot {
	if e.queueRev != e.queue.rev {
		e.queueCopy = e.queue.Entries()
		e.queueRev = e.queue.rev
	}

	s := &Snapshot{
		Status:       StatusEmpty,
		CurrentIndex: e.currentIndex(),
		Queue:        e.queueCopy,
		Amplitudes:   e.amplitudes,
		queueRev:     e.queueRev,
	}

	if s.CurrentIndex < 0 {
		return s
	}

	cur := e.queue.entries[s.CurrentIndex]
	s.Current = &cur
	s.IsPlaying = e.playing
	s.Status = StatusPause
	if e.playing {
		s.Status = StatusPlay
	}
	s.PositionMillis = e.position
	s.DurationMillis = e.duration
	s.Progress = e.progress
	s.CanPlayNext = s.CurrentIndex < e.queue.Len()-1
	s.CanPlayPrevious = s.CurrentIndex > 0
	return s
}

func (e *Engine) currentIndex() int {
	return e.queue.IndexOf(e.curToken)
}

// sample polls the live transport. A panic in one tick is logged and the
// sampler keeps running. Sampling only ever raises the play state: a
// transport that went quiet on its own is waiting for its completion event,
// and commands or complete clear the state.
func (e *Engine) sample() {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Progress sampling panicked")
		}
	}()

	t := e.transport
	if t == nil {
		return
	}

	if t.IsPlaying() {
		e.playing = true
		e.readPosition(t)
	}
	e.publish(0, nil)
}

func (e *Engine) readPosition(t Transport) {
	e.position = t.PositionMillis()
	if d := t.DurationMillis(); d > 0 {
		e.duration = d
	}
	_, e.progress = progressOf(e.position, e.duration)
}

// progressOf returns the raw position ratio and the value shown to observers.
// The shown value drops to zero near both ends of the track.
func progressOf(pos, dur int64) (raw, shown float64) {
	if dur <= 0 {
		return 0, 0
	}
	raw = float64(pos) / float64(dur)
	if raw > 0.99 || raw < 0.001 {
		return raw, 0
	}
	return raw, raw
}

// switchTo loads the entry at idx and makes it current.
// On failure the previous transport and selection are left untouched.
func (e *Engine) switchTo(ctx context.Context, idx int, play bool) error {
	entry, err := e.queue.At(idx)
	if err != nil {
		return err
	}
	if e.factory == nil {
		return fmt.Errorf("%w: no transport factory", ErrMediaLoad)
	}

	gen := e.loadGen + 1
	t, err := e.factory.Load(ctx, entry.Track, func() {
		e.post(func() { e.complete(gen) })
	})
	if err != nil {
		err = fmt.Errorf("%w: track %s: %w", ErrMediaLoad, entry.Track.ID, err)
		log.Warn().Err(err).Str("track", entry.Track.ID).Msg("Failed to load track")
		e.publish(FieldError, err)
		return err
	}

	e.releaseTransport()
	e.loadGen = gen
	e.transport = t
	e.curToken = entry.Token
	e.position = 0
	e.progress = 0
	e.duration = t.DurationMillis()
	if e.duration <= 0 {
		e.duration = entry.Track.DurationMillis
	}
	e.playing = false

	if play {
		if err := t.Start(); err != nil {
			log.Warn().Err(err).Str("track", entry.Track.ID).Msg("Failed to start playback")
		} else {
			e.playing = true
		}
	}

	log.Info().
		Str("track", entry.Track.ID).
		Str("title", entry.Track.Title).
		Int("index", idx).
		Bool("playing", e.playing).
		Msg("Current entry changed")

	e.requestWaveform(entry.Track)
	return nil
}

func (e *Engine) releaseTransport() {
	if e.transport == nil {
		return
	}
	if err := e.transport.Stop(); err != nil {
		log.Warn().Err(err).Msg("Failed to stop transport")
	}
	e.transport = nil
}

// clearCurrent stops playback and leaves the engine with no current entry.
func (e *Engine) clearCurrent() {
	e.releaseTransport()
	e.loadGen++
	e.curToken = ""
	e.playing = false
	e.position = 0
	e.duration = 0
	e.progress = 0
	e.cancelWaveform()
	log.Info().Msg("Playback cleared")
}

// complete handles natural end of the track loaded with generation gen.
func (e *Engine) complete(gen uint64) {
	if gen != e.loadGen || e.transport == nil {
		log.Debug().Uint64("gen", gen).Uint64("current", e.loadGen).Msg("Ignoring stale completion")
		return
	}

	idx := e.currentIndex()
	if idx >= 0 && idx < e.queue.Len()-1 {
		err := e.switchTo(e.runCtx, idx+1, true)
		if err == nil {
			e.publish(0, nil)
			return
		}
		log.Warn().Err(err).Msg("Failed to advance after completion")
	}

	t := e.transport
	if err := t.Pause(); err != nil {
		log.Warn().Err(err).Msg("Failed to pause at end of queue")
	}
	if err := t.SeekTo(0); err != nil {
		log.Warn().Err(err).Msg("Failed to rewind at end of queue")
	}
	e.playing = false
	e.position = 0
	e.progress = 0
	log.Info().Int("index", idx).Msg("Playback finished")
	e.publish(0, nil)
}

func (e *Engine) cancelWaveform() {
	if e.waveCancel != nil {
		e.waveCancel()
		e.waveCancel = nil
	}
	e.waveGen++
	e.amplitudes = []int{}
}

// requestWaveform clears the amplitudes and computes new ones off the loop.
// Only the result of the most recent request is applied.
func (e *Engine) requestWaveform(track Track) {
	e.cancelWaveform()
	if e.waveform == nil || e.opener == nil {
		return
	}

	gen := e.waveGen
	ctx, cancel := context.WithCancel(e.runCtx)
	e.waveCancel = cancel

	go func() {
		amps, err := e.computeWaveform(ctx, track)
		e.post(func() {
			if gen != e.waveGen {
				return
			}
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Warn().Err(err).Str("track", track.ID).Msg("Waveform unavailable")
				}
				return
			}
			e.amplitudes = amps
			e.publish(0, nil)
		})
	}()
}

func (e *Engine) computeWaveform(ctx context.Context, track Track) ([]int, error) {
	stream, err := e.opener.OpenAudioStream(ctx, track)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrProcessing, track.ID, err)
	}
	defer stream.Close()

	amps, err := e.waveform.ProcessAudio(ctx, stream)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrProcessing, track.ID, err)
	}
	if amps == nil {
		amps = []int{}
	}
	return amps, nil
}
