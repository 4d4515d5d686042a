package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/xmlh/format"
	"github.com/signadot/xmlh/tree"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xh.yaml")
	os.WriteFile(path, []byte(`guardThreshold: 3
workers: 2
parse:
  format: html
  recover: true
encode:
  indent: true
  color: false
`), 0o644)
	t.Setenv("XH_WORKERS", "")
	t.Setenv("XH_GUARD_THRESHOLD", "")
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	html := format.HTMLFormat
	no := false
	want := &Config{
		GuardThreshold: 3,
		Workers:        2,
		Parse:          ParseConfig{Format: &html, Recover: true},
		Encode:         EncodeConfig{Indent: true, Color: &no},
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
	if len(c.ParseOptions()) != 6 || len(c.EncodeOptions()) != 3 {
		t.Error("options")
	}
}

func TestLoadMissing(t *testing.T) {
	t.Setenv("XH_GUARD_THRESHOLD", "")
	t.Setenv("XH_WORKERS", "")
	c, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), c); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	for name, src := range map[string]string{
		"bad.yaml":    "parse: [",
		"format.yaml": "parse:\n  format: json\n",
		"guard.yaml":  "guardThreshold: 0\n",
	} {
		path := filepath.Join(dir, name)
		os.WriteFile(path, []byte(src), 0o644)
		if _, err := Load(path); err == nil {
			t.Errorf("%s: no error", name)
		}
	}
}

func TestFromEnv(t *testing.T) {
	c := Default()
	env := map[string]string{"XH_GUARD_THRESHOLD": "5", "XH_WORKERS": "8"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	if err := c.FromEnv(lookup); err != nil {
		t.Fatal(err)
	}
	if c.GuardThreshold != 5 || c.Workers != 8 {
		t.Errorf("got %+v", c)
	}
	env["XH_WORKERS"] = "many"
	if err := c.FromEnv(lookup); !errors.Is(err, ErrConfig) {
		t.Errorf("err %v", err)
	}
}

func TestApply(t *testing.T) {
	c := Default()
	c.GuardThreshold = 7
	prev := c.Apply()
	defer tree.SetMutationThreshold(prev)
	if tree.MutationThreshold() != 7 {
		t.Errorf("threshold %d", tree.MutationThreshold())
	}
}
