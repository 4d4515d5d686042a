package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/scott-cotton/cli"
	"github.com/signadot/xmlh/config"
	"github.com/signadot/xmlh/encode"
	"github.com/signadot/xmlh/format"
	"github.com/signadot/xmlh/metrics"
	"github.com/signadot/xmlh/parse"
)

type MainConfig struct {
	Color   bool `cli:"name=color desc='encode with color'"`
	Indent  bool `cli:"name=i aliases=indent desc='indent output'"`
	NoDecl  bool `cli:"name=nodecl desc='omit the xml declaration'"`
	Recover bool `cli:"name=recover desc='keep what can be read from malformed input'"`
	Verbose bool `cli:"name=v aliases=verbose desc='log parser diagnostics and debug events'"`

	X bool `cli:"name=x aliases=xml desc='do i/o in xml'"`
	H bool `cli:"name=H aliases=html desc='do i/o in html'"`

	ConfigPath string `cli:"name=config desc='configuration file (default xh.yaml)'"`

	InFormat, OutFormat *format.Format

	Out string

	Conf     *config.Config
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Log      *slog.Logger

	Main *cli.Command
}

func (cfg *MainConfig) fmtFunc(fps ...**format.Format) cli.FuncOpt {
	return cli.FuncOpt(func(_ *cli.Context, v string) (any, error) {
		f, err := format.ParseFormat(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", cli.ErrUsage, err)
		}
		for _, fp := range fps {
			*fp = &f
		}
		return f, nil
	})
}

// outOpt records the output path; see openOutput.
func (cfg *MainConfig) outOpt(_ *cli.Context, a string) (any, error) {
	cfg.Out = a
	return a, nil
}

// setup loads the configuration, installs it and builds the logger and
// metrics shared by the subcommands.
func (cfg *MainConfig) setup(cc *cli.Context) error {
	path := cfg.ConfigPath
	if path == "" {
		path = "xh.yaml"
	}
	conf, err := config.Load(path)
	if err != nil {
		return err
	}
	conf.Apply()
	cfg.Conf = conf
	cfg.Log = newLogger(cc.Err, cfg.Verbose || conf.Parse.Verbose)
	cfg.Registry = prometheus.NewRegistry()
	cfg.Metrics = metrics.New(cfg.Registry)
	return nil
}

func (cfg *MainConfig) isSet(name string) bool {
	for _, opt := range cfg.Main.Opts {
		if opt.Name == name {
			return opt.Value != nil
		}
	}
	return false
}

func (cfg *MainConfig) inFormat() *format.Format {
	var f *format.Format
	switch {
	case cfg.X:
		f = new(format.Format)
		*f = format.XMLFormat
	case cfg.H:
		f = new(format.Format)
		*f = format.HTMLFormat
	}
	if cfg.InFormat != nil {
		f = cfg.InFormat
	}
	return f
}

func (cfg *MainConfig) parseOpts() []parse.ParseOption {
	res := cfg.Conf.ParseOptions()
	if f := cfg.inFormat(); f != nil {
		res = append(res, parse.ParseFormat(*f))
	}
	if cfg.isSet("recover") {
		res = append(res, parse.Recover(cfg.Recover))
	}
	if cfg.isSet("v") {
		res = append(res, parse.Verbose(cfg.Verbose))
	}
	return append(res, parse.ParseLogger(cfg.Log), parse.ParseMetrics(cfg.Metrics))
}

func (cfg *MainConfig) encOpts(w io.Writer) []encode.EncodeOption {
	res := cfg.Conf.EncodeOptions()
	if cfg.isSet("i") {
		res = append(res, encode.Indent(cfg.Indent))
	}
	if cfg.isSet("nodecl") {
		res = append(res, encode.NoDeclaration(cfg.NoDecl))
	}
	out := cfg.OutFormat
	switch {
	case cfg.X && out == nil:
		res = append(res, encode.EncodeFormat(format.XMLFormat))
	case cfg.H && out == nil:
		res = append(res, encode.EncodeFormat(format.HTMLFormat))
	case out != nil:
		res = append(res, encode.EncodeFormat(*out))
	}
	if cfg.isSet("color") {
		if cfg.Color {
			res = append(res, encode.EncodeColors(encode.NewColors()))
		}
		return res
	}
	if c := cfg.Conf.Encode.Color; c != nil {
		if *c {
			res = append(res, encode.EncodeColors(encode.NewColors()))
		}
		return res
	}
	if colors := encode.AutoColors(w); colors != nil {
		res = append(res, encode.EncodeColors(colors))
	}
	return res
}

// colored reports whether the output would be colored.
func (cfg *MainConfig) colored(w io.Writer) bool {
	if cfg.isSet("color") {
		return cfg.Color
	}
	if c := cfg.Conf.Encode.Color; c != nil {
		return *c
	}
	return encode.AutoColors(w) != nil
}

type FmtConfig struct {
	*MainConfig

	Fmt *cli.Command
}

type QueryConfig struct {
	*MainConfig
	Where  string `cli:"name=where desc='keep nodes for which this expression holds'"`
	Values bool   `cli:"name=values desc='print string values instead of nodes'"`
	Count  bool   `cli:"name=count desc='print the number of selected nodes'"`
	NS     map[string]string

	Query *cli.Command
}

type C14NConfig struct {
	*MainConfig
	Mode      string `cli:"name=mode desc='c14n, exc-c14n or c14n11'"`
	Comments  bool   `cli:"name=comments desc='keep comments'"`
	Inclusive string `cli:"name=inclusive desc='comma separated inclusive namespace prefixes'"`

	C14N *cli.Command
}

type DiffConfig struct {
	*MainConfig
	Reverse   bool `cli:"name=r desc='reverse the diff'"`
	Canonical bool `cli:"name=c14n desc='compare canonical forms'"`
	Context   int  `cli:"name=U desc='lines of context, negative for all'"`

	Diff *cli.Command
}

type StatsConfig struct {
	*MainConfig
	Workers      int  `cli:"name=w aliases=workers desc='files processed concurrently'"`
	PrintMetrics bool `cli:"name=metrics desc='print collected metrics'"`

	Stats *cli.Command
}

type EditConfig struct {
	*MainConfig
	Edits []edit

	Edit *cli.Command
}
