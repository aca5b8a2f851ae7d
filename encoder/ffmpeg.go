package encoder

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// ffmpeg is fed raw rgba frames on stdin, it does pixel conversion, encoding and muxing
type ffmpeg struct {
	cmd    *exec.Cmd
	pipe   io.WriteCloser
	stderr lockedBuffer

	width, height int
}

// lockedBuffer collects what ffmpeg says on stderr, exec copies into it from its own goroutine
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(b.buf.String())
}

var ErrNoFFMPEG = errors.New("ffmpeg not installed")

func newFFMPEG(p Params) (b Backend, err error) {
	if _, err = exec.LookPath("ffmpeg"); err != nil {
		err = ErrNoFFMPEG
		return
	}
	var ok bool
	if ok, err = ffmpegHasEncoder(p.Codec); err != nil {
		return
	}
	if !ok {
		err = fmt.Errorf("codec %q is not available", p.Codec)
		return
	}

	f := &ffmpeg{width: p.Width, height: p.Height}
	f.cmd = exec.Command("ffmpeg", ffmpegArgs(p)...)
	f.cmd.Stderr = &f.stderr

	if f.pipe, err = f.cmd.StdinPipe(); err != nil {
		return
	}
	if err = f.cmd.Start(); err != nil {
		return
	}
	f.Println("encoding", p.Path, "codec", p.Codec, "at", p.Bitrate, "bps")
	b = f
	return
}

func ffmpegArgs(p Params) []string {
	return []string{
		"-v", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"-r", strconv.Itoa(p.FPS),
		"-i", "-",
		"-c:v", p.Codec,
		"-b:v", strconv.Itoa(p.Bitrate),
		"-pix_fmt", "yuv420p",
		"-an",
		"-y",
		p.Path,
	}
}

// ffmpegHasEncoder looks the codec up in the output of ffmpeg -encoders
func ffmpegHasEncoder(codec string) (ok bool, err error) {
	var out []byte
	if out, err = exec.Command("ffmpeg", "-hide_banner", "-encoders").Output(); err != nil {
		return
	}
	ok = listsEncoder(out, codec)
	return
}

func listsEncoder(out []byte, codec string) bool {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		// " V....D libx264   libx264 H.264 ..."
		if len(fields) >= 2 && len(fields[0]) == 6 && fields[0][0] == 'V' && fields[1] == codec {
			return true
		}
	}
	return false
}

func (f *ffmpeg) Encode(frame *image.RGBA, pts int64) error {
	if _, err := f.pipe.Write(frame.Pix); err != nil {
		return fmt.Errorf("frame %d: %w (%s)", pts, err, f.stderr.String())
	}
	return nil
}

func (f *ffmpeg) Close() error {
	f.pipe.Close()
	if err := f.cmd.Wait(); err != nil {
		return fmt.Errorf("%w (%s)", err, f.stderr.String())
	}
	return nil
}

func (f *ffmpeg) Println(i ...interface{}) {
	log.Println("ffmpeg", i)
}
