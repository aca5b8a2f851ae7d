// Package recplay re-renders a recorded display session dump as a video file.
package recplay

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dmisol/recplay/clock"
	"github.com/dmisol/recplay/defs"
	"github.com/dmisol/recplay/display"
	"github.com/dmisol/recplay/encoder"
	"github.com/dmisol/recplay/protocol"
	"github.com/dmisol/recplay/status"
	"github.com/dmisol/recplay/streams"
	"github.com/google/uuid"
)

type state int

const (
	stateReplaying state = iota
	stateFinished
	stateFailed
)

// Kind tells a caller what went wrong
type Kind int

const (
	KindDump        Kind = iota + 1 // the dump is corrupt or inconsistent
	KindEncoderInit                 // the output encoder can't be set up
	KindOutput                      // the output can't be written
)

func (k Kind) String() string {
	switch k {
	case KindDump:
		return "dump"
	case KindEncoderInit:
		return "encoder"
	case KindOutput:
		return "output"
	}
	return "unknown"
}

// Failure is the single result of a failed replay
type Failure struct {
	Kind   Kind
	Offset int64  // byte offset of the offending instruction, -1 when not related to the dump
	Opcode string // empty for framing errors
	Err    error
}

func (f *Failure) Error() string {
	switch {
	case f.Opcode != "":
		return fmt.Sprintf("%s error at offset %d (%s): %v", f.Kind, f.Offset, f.Opcode, f.Err)
	case f.Offset >= 0:
		return fmt.Sprintf("%s error at offset %d: %v", f.Kind, f.Offset, f.Err)
	}
	return fmt.Sprintf("%s error: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func kindOf(err error) Kind {
	switch {
	case errors.Is(err, defs.ErrEncoderInit):
		return KindEncoderInit
	case errors.Is(err, defs.ErrOutput):
		return KindOutput
	}
	return KindDump
}

// Replay owns the whole state of one dump being re-rendered, it isn't shared
type Replay struct {
	conf    *defs.ReplayConf
	session string

	display *display.Display
	streams *streams.Table
	clock   *clock.Clock
	video   *encoder.Video

	progress *status.Progress
	unknown  map[string]int
	state    state
}

// NewReplay takes over video, it is closed here if conf is unusable
func NewReplay(conf *defs.ReplayConf, video *encoder.Video) (r *Replay, err error) {
	if err = conf.Validate(); err != nil {
		video.Close()
		err = &Failure{Kind: KindEncoderInit, Offset: -1, Err: err}
		return
	}
	r = &Replay{
		conf:    conf,
		session: uuid.NewString(),
		display: display.New(),
		streams: streams.NewTable(),
		clock:   clock.New(conf.Interval()),
		video:   video,
		unknown: make(map[string]int),
	}
	r.progress = status.NewProgress(r.session)
	return
}

// Open prepares the replay of the dump at path into out. The encoder is set
// up here, so any codec problem shows before a single instruction is read.
func Open(path, out string, conf *defs.ReplayConf) (r *Replay, in io.ReadCloser, err error) {
	if err = conf.Validate(); err != nil {
		err = &Failure{Kind: KindEncoderInit, Offset: -1, Err: err}
		return
	}
	if in, err = os.Open(path); err != nil {
		err = &Failure{Kind: KindDump, Offset: -1, Err: err}
		return
	}
	var v *encoder.Video
	if v, err = encoder.Open(out, conf); err != nil {
		in.Close()
		in = nil
		err = &Failure{Kind: KindEncoderInit, Offset: -1, Err: err}
		return
	}
	if r, err = NewReplay(conf, v); err != nil {
		in.Close()
		in = nil
	}
	return
}

// Encode replays the dump at path and writes the video to out
func Encode(path, out string, conf *defs.ReplayConf) error {
	r, in, err := Open(path, out, conf)
	if err != nil {
		return err
	}
	defer in.Close()
	return r.Run(in)
}

func (r *Replay) Session() string {
	return r.session
}

func (r *Replay) Progress() *status.Progress {
	return r.progress
}

// Run consumes the dump until its end, a disconnect or the first fatal error.
// The video is closed on return in every case.
func (r *Replay) Run(in io.Reader) error {
	p := protocol.NewParser(in)
	r.Println("replaying at", r.conf.FPS, "fps into", r.conf.Width, "x", r.conf.Height)

	for r.state == stateReplaying {
		ins, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return r.fail(err, p.Offset(), "")
		}
		r.progress.Instruction(ins.Offset)

		if err = r.dispatch(ins); err != nil {
			return r.fail(err, ins.Offset, ins.Opcode)
		}
	}
	return r.finish()
}

func (r *Replay) dispatch(ins *protocol.Instruction) error {
	h, ok := handlers[ins.Opcode]
	if !ok {
		if !ignored[ins.Opcode] {
			r.unknown[ins.Opcode]++
			if r.unknown[ins.Opcode] == 1 {
				r.Println("skipping unknown instruction", ins.Opcode)
			} else {
				r.Debug("skipping unknown instruction", ins.Opcode)
			}
		}
		return nil
	}
	if len(ins.Args) < h.minArgs {
		return fmt.Errorf("%w: %d arguments, %d required", defs.ErrSemantic, len(ins.Args), h.minArgs)
	}
	return h.fn(r, &args{ins: ins})
}

// emit advances the video as the clock says
func (r *Replay) emit(t clock.Tick) error {
	if t.Prepare {
		r.video.Prepare(r.display.Composite())
	}
	for i := 0; i < t.Repeat; i++ {
		if err := r.video.Write(); err != nil {
			return err
		}
	}
	if t.Fresh {
		r.video.Prepare(r.display.Composite())
		if err := r.video.Write(); err != nil {
			return err
		}
	}
	r.progress.Frames(t.Frames())
	return nil
}

func (r *Replay) finish() error {
	if r.clock.Flush() {
		if err := r.emit(clock.Tick{Fresh: true}); err != nil {
			return r.fail(err, -1, "")
		}
	}
	if n := r.streams.Pending(); n > 0 {
		r.Println("warning:", n, "streams never ended")
	}
	for op, n := range r.unknown {
		r.Debug("skipped", n, "x", op)
	}

	if err := r.video.Close(); err != nil {
		return r.fail(err, -1, "")
	}
	r.state = stateFinished
	r.progress.SetState(status.StateFinished)
	r.Println("done,", r.video.Frames(), "frames")
	return nil
}

func (r *Replay) fail(err error, offset int64, opcode string) error {
	r.state = stateFailed
	r.progress.SetState(status.StateFailed)
	r.video.Close()

	f := &Failure{Kind: kindOf(err), Offset: offset, Opcode: opcode, Err: err}
	if f.Kind != KindDump {
		f.Offset, f.Opcode = -1, ""
	}
	r.Println(f)
	return f
}

func (r *Replay) Println(i ...interface{}) {
	log.Println("replay", r.session, i)
}

// Debug only logs in verbose mode
func (r *Replay) Debug(i ...interface{}) {
	if r.conf.Verbose {
		log.Println("replay", r.session, i)
	}
}
