// Package status exposes the progress of a running replay over http.
package status

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"

	"github.com/valyala/fasthttp"
)

const (
	StateReplaying = "replaying"
	StateFinished  = "finished"
	StateFailed    = "failed"
)

// Progress is updated by the replay and read by the handler concurrently
type Progress struct {
	Session string

	instructions int64
	frames       int64
	timestamp    int64
	offset       int64
	state        atomic.Value
}

func NewProgress(session string) *Progress {
	p := &Progress{Session: session}
	p.state.Store(StateReplaying)
	return p
}

func (p *Progress) Instruction(offset int64) {
	atomic.AddInt64(&p.instructions, 1)
	atomic.StoreInt64(&p.offset, offset)
}

func (p *Progress) Frames(n int) {
	atomic.AddInt64(&p.frames, int64(n))
}

func (p *Progress) Timestamp(ms int64) {
	atomic.StoreInt64(&p.timestamp, ms)
}

func (p *Progress) SetState(s string) {
	p.state.Store(s)
}

// Snapshot is the json body of /status
type Snapshot struct {
	Session      string `json:"session"`
	State        string `json:"state"`
	Instructions int64  `json:"instructions"`
	Frames       int64  `json:"frames"`
	Timestamp    int64  `json:"timestamp"`
	Offset       int64  `json:"offset"`
}

func (p *Progress) Snapshot() Snapshot {
	return Snapshot{
		Session:      p.Session,
		State:        p.state.Load().(string),
		Instructions: atomic.LoadInt64(&p.instructions),
		Frames:       atomic.LoadInt64(&p.frames),
		Timestamp:    atomic.LoadInt64(&p.timestamp),
		Offset:       atomic.LoadInt64(&p.offset),
	}
}

// Board collects the replays of one process
type Board struct {
	mu   sync.Mutex
	list []*Progress
}

func (b *Board) Add(p *Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.list = append(b.list, p)
}

func (b *Board) snapshots(session string) (out []Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.list {
		if session == "" || session == p.Session {
			out = append(out, p.Snapshot())
		}
	}
	return
}

// Handler serves /status?session=xxx, the session is optional
func Handler(b *Board) fasthttp.RequestHandler {
	return func(r *fasthttp.RequestCtx) {
		if string(r.Path()) != "/status" {
			r.Error("not found", fasthttp.StatusNotFound)
			return
		}
		session := string(r.FormValue("session"))

		out := b.snapshots(session)
		if session != "" && len(out) == 0 {
			r.Error("no such session", fasthttp.StatusNotFound)
			return
		}

		body, err := json.Marshal(out)
		if err != nil {
			r.Error("can't marshal", fasthttp.StatusInternalServerError)
			return
		}
		r.SetContentType("application/json")
		r.SetBody(body)
	}
}

// Serve runs the endpoint until ctx is done
func Serve(ctx context.Context, addr string, b *Board) {
	srv := &fasthttp.Server{Handler: Handler(b)}
	go func() {
		<-ctx.Done()
		srv.Shutdown()
	}()
	if err := srv.ListenAndServe(addr); err != nil {
		log.Println("status", addr, err)
	}
}
