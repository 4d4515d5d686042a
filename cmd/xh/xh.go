package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scott-cotton/cli"
)

// xhMain parses the global options, loads the configuration and runs the
// selected subcommand with its output redirected as -o asks.
func xhMain(cfg *MainConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	if err := cfg.checkFormats(); err != nil {
		return err
	}
	if len(args) == 0 {
		return cli.ErrNoCommandProvided
	}
	sub := cfg.Main.FindSub(cc, args[0])
	if sub == nil {
		return fmt.Errorf("%w: %q", cli.ErrNoSuchCommand, args[0])
	}
	if err := cfg.setup(cc); err != nil {
		return err
	}
	out, err := openOutput(cc, cfg.Out)
	if err != nil {
		return err
	}
	err = sub.Run(cc, args[1:])
	if cerr := out.commit(keepOutput(err)); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		cfg.Log.Debug("command failed", "command", sub.Name, "error", err)
	}
	if errors.Is(err, cli.ErrUsage) {
		sub.Usage(cc, err)
		os.Exit(sub.Exit(cc, err))
	}
	return err
}

// checkFormats rejects contradictory format flags.
func (cfg *MainConfig) checkFormats() error {
	switch {
	case cfg.X && cfg.H:
		return fmt.Errorf("%w: -x and -H are exclusive", cli.ErrUsage)
	case (cfg.X || cfg.H) && cfg.InFormat != nil && cfg.OutFormat != nil:
		return fmt.Errorf("%w: -x and -H have no effect with both -I and -O", cli.ErrUsage)
	}
	return nil
}

// keepOutput reports whether a command's output is worth keeping. A
// command that signals only its exit status, like diff finding
// differences, still produced its output.
func keepOutput(err error) bool {
	var xc cli.ExitCodeErr
	return err == nil || errors.As(err, &xc)
}

// output is the destination given with -o. It is written through a
// temporary file beside it which replaces it on commit, so a document can
// be rewritten in place and a failed command leaves it untouched.
type output struct {
	path string
	tmp  *os.File
}

func openOutput(cc *cli.Context, path string) (*output, error) {
	if path == "" || path == "-" {
		return &output{}, nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, fmt.Errorf("error opening output %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	cc.Out = tmp
	return &output{path: path, tmp: tmp}, nil
}

func (o *output) commit(keep bool) error {
	if o.tmp == nil {
		return nil
	}
	err := o.tmp.Close()
	if err == nil && keep {
		err = os.Rename(o.tmp.Name(), o.path)
	}
	if err != nil || !keep {
		os.Remove(o.tmp.Name())
	}
	return err
}
