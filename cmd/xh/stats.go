package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/panjf2000/ants/v2"
	"github.com/scott-cotton/cli"
	"github.com/signadot/xmlh/metrics"
	"github.com/signadot/xmlh/readonly"
)

type fileStats struct {
	File             string `yaml:"file"`
	Error            string `yaml:"error,omitempty"`
	readonly.Summary `yaml:",inline"`
}

type statsReport struct {
	Files []fileStats      `yaml:"files"`
	Total readonly.Summary `yaml:"total"`
}

func stats(cfg *StatsConfig, cc *cli.Context, args []string) error {
	files, err := cfg.Stats.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: stats requires files", cli.ErrUsage)
	}
	workers := cfg.Workers
	if workers < 0 {
		workers = cfg.Conf.Workers
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	report := statsReport{Files: make([]fileStats, len(files))}
	if err := collectStats(ctx, cfg, cc, files, workers, report.Files); err != nil {
		return err
	}
	failed := 0
	for _, fs := range report.Files {
		if fs.Error != "" {
			failed++
			continue
		}
		report.Total.Add(fs.Summary)
	}
	d, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	if _, err := cc.Out.Write(d); err != nil {
		return err
	}
	if cfg.PrintMetrics {
		if err := metrics.WriteText(cc.Out, cfg.Registry); err != nil {
			return err
		}
	}
	if failed > 0 {
		return cli.ExitCodeErr(1)
	}
	return nil
}

// collectStats parses the files on a pool of workers, each document's
// subtrees being walked concurrently as well.
func collectStats(ctx context.Context, cfg *StatsConfig, cc *cli.Context, files []string, workers int, out []fileStats) error {
	size := max(workers, 1)
	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(v any) {
		cfg.Log.Error("stats worker panic", "panic", v)
	}))
	if err != nil {
		return err
	}
	defer pool.Release()
	for i, file := range files {
		out[i].File = file
	}
	err = submitAll(pool, len(files), func(i int) {
		s, err := fileSummary(ctx, cfg, cc, files[i], workers)
		if err != nil {
			out[i].Error = err.Error()
			return
		}
		out[i].Summary = s
	})
	if err != nil {
		return err
	}
	return ctx.Err()
}

type submitter interface {
	Submit(task func()) error
}

// submitAll runs task(i) for i in [0, n) on pool. It returns once every
// submitted task has finished, also when a submission fails.
func submitAll(pool submitter, n int, task func(i int)) error {
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			task(i)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return err
		}
	}
	wg.Wait()
	return nil
}

func fileSummary(ctx context.Context, cfg *StatsConfig, cc *cli.Context, file string, workers int) (readonly.Summary, error) {
	if file == "-" {
		return readonly.Summary{}, errors.New("stats reads files only")
	}
	doc, err := getDocFile(cc, file, cfg.parseOpts()...)
	if err != nil {
		return readonly.Summary{}, err
	}
	defer doc.Close()
	top := doc.AsNode()
	defer top.Release()
	return readonly.Stats(ctx, top.Readonly(), readonly.Options{Workers: workers})
}
