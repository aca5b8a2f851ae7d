package defs

import (
	"path"
	"testing"
	"time"
)

func TestLoadConf(t *testing.T) {
	c, err := LoadConf(path.Join("testdata", "replay.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Codec != "libx264" || c.Width != 1024 || c.Height != 768 || c.FPS != 30 || !c.Verbose {
		t.Fatalf("unexpected conf %+v", c)
	}
	if c.Bitrate != DefaultBitrate {
		t.Fatalf("bitrate should fall back to default, got %d", c.Bitrate)
	}
}

func TestLoadConfMissing(t *testing.T) {
	if _, err := LoadConf(path.Join("testdata", "nope.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(c *ReplayConf)
		ok   bool
	}{
		{"defaults", func(c *ReplayConf) {}, true},
		{"no codec", func(c *ReplayConf) { c.Codec = "" }, false},
		{"zero width", func(c *ReplayConf) { c.Width = 0 }, false},
		{"negative height", func(c *ReplayConf) { c.Height = -1 }, false},
		{"zero bitrate", func(c *ReplayConf) { c.Bitrate = 0 }, false},
		{"zero fps", func(c *ReplayConf) { c.FPS = 0 }, false},
		{"max fps", func(c *ReplayConf) { c.FPS = MaxFPS }, true},
		{"fps above max", func(c *ReplayConf) { c.FPS = MaxFPS + 1 }, false},
		{"fps beyond nanoseconds", func(c *ReplayConf) { c.FPS = 2000000000 }, false},
	}
	for _, tc := range cases {
		c := DefaultConf()
		tc.mod(c)
		if err := c.Validate(); (err == nil) != tc.ok {
			t.Errorf("%s: got %v", tc.name, err)
		}
	}
}

func TestInterval(t *testing.T) {
	c := DefaultConf()
	if c.Interval() != 40*time.Millisecond {
		t.Fatalf("25 fps should give 40ms, got %v", c.Interval())
	}
	c.FPS = 1
	if c.Interval() != time.Second {
		t.Fatalf("1 fps should give 1s, got %v", c.Interval())
	}
}
