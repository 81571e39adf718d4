// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command trigflow runs one pipeline job: a Dealer, a Farmer, an
// Outputter and a configurable number of Workers, all as goroutines
// sharing one in-process transport fabric (spec §6's CLI surface).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fribdaq/trigflow/job"
	"github.com/fribdaq/trigflow/trigerr"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		blockSize int
		numRanks  int
		rawMode   bool
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:   "trigflow <input-file> <output-file> [extra...]",
		Short: "run the trigger-reordering analysis pipeline",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return trigerr.Wrap(trigerr.Config, "need input and output file paths, got %d argument(s)", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logrus.New()
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
			}
			log.SetLevel(level)

			cfg := job.Config{
				InputPath:  args[0],
				OutputPath: args[1],
				Extra:      args[2:],
				BlockSize:  blockSize,
				NumRanks:   numRanks,
				Mode:       job.ModeParameterInput,
			}
			if rawMode {
				cfg.Mode = job.ModeRaw
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			if err := job.Run(ctx, cfg, log); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&blockSize, "block-size", job.DefaultBlockSize, "Dealer read/acquire budget, in bytes")
	cmd.Flags().IntVar(&numRanks, "ranks", 4, "total rank count (dealer, farmer, outputter, workers); must be >= 4")
	cmd.Flags().BoolVar(&rawMode, "raw", false, "treat the input as a raw event stream instead of already-processed parameter data")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "logrus level: trace, debug, info, warn, error")

	return cmd
}
