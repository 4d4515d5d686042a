package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scott-cotton/cli"
	"github.com/signadot/xmlh/format"
)

func TestOutputInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.xml")
	if err := os.WriteFile(path, []byte("<old/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	cc := &cli.Context{}
	out, err := openOutput(cc, path)
	if err != nil {
		t.Fatal(err)
	}
	if d, _ := os.ReadFile(path); string(d) != "<old/>" {
		t.Errorf("target changed before commit: %q", d)
	}
	fmt.Fprint(cc.Out, "<new/>")
	if err := out.commit(true); err != nil {
		t.Fatal(err)
	}
	if d, _ := os.ReadFile(path); string(d) != "<new/>" {
		t.Errorf("got %q", d)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("left %d files behind", len(entries)-1)
	}
}

func TestOutputDiscarded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.xml")
	if err := os.WriteFile(path, []byte("<old/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	cc := &cli.Context{}
	out, err := openOutput(cc, path)
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprint(cc.Out, "<partial")
	if err := out.commit(false); err != nil {
		t.Fatal(err)
	}
	if d, _ := os.ReadFile(path); string(d) != "<old/>" {
		t.Errorf("got %q", d)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("left %d files behind", len(entries)-1)
	}
}

func TestOutputStdout(t *testing.T) {
	for _, path := range []string{"", "-"} {
		cc := &cli.Context{}
		out, err := openOutput(cc, path)
		if err != nil {
			t.Fatal(err)
		}
		if cc.Out != nil {
			t.Errorf("%q: output redirected", path)
		}
		if err := out.commit(true); err != nil {
			t.Error(err)
		}
	}
}

func TestKeepOutput(t *testing.T) {
	tests := []struct {
		err  error
		keep bool
	}{
		{nil, true},
		{cli.ExitCodeErr(1), true},
		{fmt.Errorf("diff: %w", cli.ExitCodeErr(1)), true},
		{errors.New("parse failed"), false},
		{cli.ErrUsage, false},
	}
	for _, tc := range tests {
		if got := keepOutput(tc.err); got != tc.keep {
			t.Errorf("%v: got %v", tc.err, got)
		}
	}
}

func TestCheckFormats(t *testing.T) {
	x := format.XMLFormat
	tests := []struct {
		cfg MainConfig
		ok  bool
	}{
		{MainConfig{}, true},
		{MainConfig{X: true}, true},
		{MainConfig{X: true, H: true}, false},
		{MainConfig{H: true, InFormat: &x}, true},
		{MainConfig{H: true, InFormat: &x, OutFormat: &x}, false},
	}
	for i, tc := range tests {
		err := tc.cfg.checkFormats()
		if (err == nil) != tc.ok {
			t.Errorf("%d: %v", i, err)
		}
		if err != nil && !errors.Is(err, cli.ErrUsage) {
			t.Errorf("%d: %v is not a usage error", i, err)
		}
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	quiet := newLogger(&buf, false)
	quiet.Debug("hidden")
	quiet.Info("hidden")
	quiet.Warn("shown", "k", "v")
	got := buf.String()
	if strings.Contains(got, "hidden") || !strings.Contains(got, "level=WARN msg=shown k=v") {
		t.Errorf("quiet logger wrote %q", got)
	}
	if strings.Contains(got, "time=") {
		t.Errorf("time attribute in %q", got)
	}
	buf.Reset()
	newLogger(&buf, true).Debug("detail")
	if !strings.Contains(buf.String(), "level=DEBUG msg=detail") {
		t.Errorf("verbose logger wrote %q", buf.String())
	}
}
