package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/haolipeng/ipsumdump/pkg/engine"
	"github.com/haolipeng/ipsumdump/pkg/fields"
	"github.com/haolipeng/ipsumdump/pkg/source"
	"github.com/haolipeng/ipsumdump/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Walk an IP summary dump without writing output, reporting format complaints",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg := buildEngineConfig()
	cfg.StopAtEOF = true

	var complaints int
	onError := func(severity source.Severity, landmark, format string, fargs ...any) {
		complaints++
		logrus.Warnf("%s: "+format, append([]any{landmark}, fargs...)...)
	}

	eng, err := engine.NewEngine(cfg, fields.Default(), onError)
	if err != nil {
		return err
	}
	if err := eng.Initialize(); err != nil {
		return err
	}
	defer eng.Cleanup()

	discard := func(*types.Packet) error { return nil }
	if err := eng.Run(context.Background(), discard); err != nil {
		return err
	}

	stats := eng.Metrics().GetStats()
	logrus.Infof("validation complete: %d complaints, %+v", complaints, stats)
	return nil
}
