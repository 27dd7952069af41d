package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/loom/internal/demo"
	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/driver"
	"github.com/vango-dev/loom/pkg/element"
	"github.com/vango-dev/loom/pkg/host/memhost"
	"github.com/vango-dev/loom/pkg/reconciler"
	"github.com/vango-dev/loom/pkg/snapshot"
)

type renderOptions struct {
	app         string
	clicks      int
	sliceBudget time.Duration
	yield       time.Duration
	debug       bool
	store       snapshot.Store
}

func renderCmd(g *globals) *cobra.Command {
	var (
		opts        renderOptions
		sliceBudget string
		upload      bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a demo application and print the committed tree",
		Long: `Render mounts a demo application into an in-memory host, drives the
work loop in slices of --slice-budget until the tree is committed, then
clicks the first button --clicks times. Each commit's statistics are
printed, followed by the final HTML.

Examples:
  loom render
  loom render --app todo
  loom render --clicks 3 --slice-budget 50us
  loom render --snapshot`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.sliceBudget = g.cfg.SliceBudget()
			if sliceBudget != "" {
				d, err := time.ParseDuration(sliceBudget)
				if err != nil || d <= 0 {
					return errors.New(errors.CodeInvalidConfig).
						WithDetailf("--slice-budget %q is not a positive duration", sliceBudget)
				}
				opts.sliceBudget = d
			}
			opts.yield = g.cfg.YieldThreshold()
			if opts.yield >= opts.sliceBudget {
				opts.yield = 0
			}
			opts.debug = g.cfg.Scheduler.Debug

			if upload {
				if !g.cfg.SnapshotsEnabled() {
					return errors.New(errors.CodeInvalidConfig).
						WithDetail("--snapshot requires snapshot.bucket in loom.json")
				}
				client := snapshot.NewS3Client(g.cfg.Snapshot.Region)
				opts.store = snapshot.NewS3Store(client, g.cfg.Snapshot.Bucket, g.cfg.Snapshot.Prefix)
			}
			return runRender(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.app, "app", "a", "counter", "Application to render ("+strings.Join(demo.Names(), ", ")+")")
	cmd.Flags().IntVarP(&opts.clicks, "clicks", "n", 0, "Number of clicks on the first button after mounting")
	cmd.Flags().StringVar(&sliceBudget, "slice-budget", "", "Time granted to each work slice (default: scheduler.sliceBudget)")
	cmd.Flags().BoolVar(&upload, "snapshot", false, "Upload each committed tree to the configured snapshot bucket")

	return cmd
}

// runRender mounts the application, replays the clicks and writes the
// per-commit report and final HTML to w.
func runRender(ctx context.Context, w io.Writer, opts renderOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	el, ok := demo.Lookup(opts.app)
	if !ok {
		return errors.New(errors.CodeInvalidConfig).
			WithDetailf("unknown app %q", opts.app).
			WithSuggestion("Use one of: " + strings.Join(demo.Names(), ", "))
	}

	h := memhost.New()
	root := h.NewContainer("root")

	var observers []reconciler.Option
	var obs *snapshot.Observer
	uploadDone := make(chan struct{})
	if opts.store != nil {
		obs = snapshot.NewObserver(root, snapshot.WithStore(opts.store, opts.app))
		observers = append(observers, reconciler.WithCommitObserver(obs.Observe))
		uploadCtx, cancel := context.WithCancel(ctx)
		defer func() {
			cancel()
			<-uploadDone
		}()
		go func() {
			obs.Run(uploadCtx)
			close(uploadDone)
		}()
	} else {
		close(uploadDone)
	}

	slices := 0
	observers = append(observers,
		reconciler.WithYieldThreshold(opts.yield),
		reconciler.WithDebug(opts.debug),
		reconciler.WithCommitObserver(func(info reconciler.CommitInfo) {
			fmt.Fprintf(w, "commit #%d: %d units in %d slices, %d placements, %d updates, %d deletions, %d mutations, %d fibers freed (%s)\n",
				info.Cycle, info.Units, slices, info.Placements, info.Updates, info.Deletions,
				info.Mutations, info.Freed, info.Duration.Round(time.Microsecond))
			slices = 0
		}),
	)
	s := reconciler.New(h, observers...)

	drive := func() error {
		for s.Pending() {
			slices++
			if _, err := s.WorkLoop(driver.Budget(opts.sliceBudget)); err != nil {
				return err
			}
		}
		return nil
	}

	if err := s.Render(el, root); err != nil {
		return err
	}
	if err := drive(); err != nil {
		return err
	}

	for i := 0; i < opts.clicks; i++ {
		button := root.Find("button")
		if button == nil {
			return fmt.Errorf("%s has no button to click", opts.app)
		}
		h.Dispatch(button, element.Event{Type: "click"})
		if err := drive(); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, memhost.HTML(root))
	return nil
}
