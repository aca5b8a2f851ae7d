// dumpenc renders recorded session dumps into video files, one <dump>.m4v per input.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dmisol/recplay"
	"github.com/dmisol/recplay/defs"
	"github.com/dmisol/recplay/status"
)

const outputSuffix = ".m4v"

func main() {
	var (
		config  = flag.String("config", "", "yaml file with the defaults")
		size    = flag.String("s", "", "frame size as WxH")
		bitrate = flag.Int("r", 0, "bitrate in bits per second")
		codec   = flag.String("c", "", "codec id: libavcodec name, x264:<profile> or opencv:<fourcc>")
		fps     = flag.Int("fps", 0, "output frame rate")
		force   = flag.Bool("f", false, "overwrite existing output files")
		addr    = flag.String("status", "", "serve progress on this address")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [options] dump...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	conf := defs.DefaultConf()
	if *config != "" {
		var err error
		if conf, err = defs.LoadConf(*config); err != nil {
			log.Println("config:", err)
			os.Exit(2)
		}
	}
	if *size != "" {
		if _, err := fmt.Sscanf(strings.ToLower(*size), "%dx%d", &conf.Width, &conf.Height); err != nil {
			log.Println("invalid size", *size)
			os.Exit(2)
		}
	}
	if *bitrate != 0 {
		conf.Bitrate = *bitrate
	}
	if *codec != "" {
		conf.Codec = *codec
	}
	if *fps != 0 {
		conf.FPS = *fps
	}
	if *addr != "" {
		conf.Status = *addr
	}
	conf.Force = conf.Force || *force
	conf.Verbose = conf.Verbose || *verbose
	if err := conf.Validate(); err != nil {
		log.Println("config:", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	board := &status.Board{}
	if conf.Status != "" {
		go status.Serve(ctx, conf.Status, board)
	}

	failed := 0
	for _, path := range flag.Args() {
		if err := encode(path, path+outputSuffix, conf, board); err != nil {
			log.Println(path, err)
			failed++
		}
	}
	log.Println(flag.NArg()-failed, "of", flag.NArg(), "dumps encoded")
	if failed > 0 {
		cancel()
		os.Exit(1)
	}
}

func encode(path, out string, conf *defs.ReplayConf, board *status.Board) error {
	if _, err := os.Stat(out); err == nil && !conf.Force {
		return fmt.Errorf("%s exists, use -f to overwrite", out)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	r, in, err := recplay.Open(path, out, conf)
	if err != nil {
		return err
	}
	defer in.Close()

	board.Add(r.Progress())
	log.Println(path, "->", out, "session", r.Session())
	return r.Run(in)
}
