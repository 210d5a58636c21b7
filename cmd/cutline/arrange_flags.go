package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cutline/internal/logging"
)

// arrangeFlags are the clip layout flags shared by arrange and inspect.
type arrangeFlags struct {
	clips   []string
	effects []string
	moves   []string
	splits  []string
}

func (f *arrangeFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayVar(&f.clips, "clip", nil, "Append a clip: kind[:duration][:key=value,...] (keys: in, max, wipe, pattern, kinds, unlocked)")
	flags.StringArrayVar(&f.effects, "effect", nil, "Add a top effect: clip-index:video|audio")
	flags.StringArrayVar(&f.moves, "move", nil, "Move a clip after insertion: from:to (to=-1 moves to the end)")
	flags.StringArrayVar(&f.splits, "split", nil, "Split a clip: clip-index@time")
}

// build assembles the arrangement described by the flags. The caller owns
// the result and must release it.
func (f *arrangeFlags) build(ctx *commandContext, cmd *cobra.Command) (*arrangement, error) {
	if len(f.clips) == 0 {
		return nil, fmt.Errorf("at least one --clip is required")
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := ctx.commandLogger(cmd)
	if err != nil {
		return nil, err
	}
	req, err := parseArrangeRequest(cfg, f.clips, f.effects, f.moves, f.splits)
	if err != nil {
		return nil, err
	}
	logger.Debug("building arrangement",
		logging.Int("clips", len(req.clips)),
		logging.Int("effects", len(req.effects)),
		logging.Int("moves", len(req.moves)),
		logging.Int("splits", len(req.splits)),
		logging.Duration("default_transition", cfg.TransitionDuration()),
	)
	return buildArrangement(cfg, logger, req)
}
