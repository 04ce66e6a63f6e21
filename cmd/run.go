package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/haolipeng/ipsumdump/pkg/api"
	"github.com/haolipeng/ipsumdump/pkg/engine"
	"github.com/haolipeng/ipsumdump/pkg/fields"
	"github.com/haolipeng/ipsumdump/pkg/sink"
	"github.com/haolipeng/ipsumdump/pkg/source"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay an IP summary dump through the reconstruction engine into a pcap file",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func buildEngineConfig() engine.Config {
	return engine.Config{
		Filename:    appCfg.Dump.Filename,
		StopAtEOF:   appCfg.Dump.StopAtEOF,
		Active:      true,
		Timing:      appCfg.Dump.Timing,
		Checksum:    appCfg.Dump.Checksum,
		SampleProb:  appCfg.Dump.SampleProb,
		Multipacket: appCfg.Dump.Multipacket,
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := buildEngineConfig()

	onError := func(severity source.Severity, landmark, format string, fargs ...any) {
		if severity == source.SeverityError {
			logrus.Errorf("%s: "+format, append([]any{landmark}, fargs...)...)
		} else {
			logrus.Warnf("%s: "+format, append([]any{landmark}, fargs...)...)
		}
	}

	eng, err := engine.NewEngine(cfg, fields.Default(), onError)
	if err != nil {
		return err
	}
	if err := eng.Initialize(); err != nil {
		return err
	}
	defer eng.Cleanup()

	pcapSink, err := sink.NewPcapSink(appCfg.Output.PcapBaseFilename, appCfg.Output.MaxFileSize)
	if err != nil {
		return err
	}
	defer pcapSink.Close()

	if appCfg.Admin.Host != "" {
		srv := api.NewServer(appCfg.Admin.Host, appCfg.Admin.Port)
		srv.RegisterControlService(api.NewControlService(eng))
		go func() {
			if err := srv.Start(); err != nil {
				logrus.Warnf("admin server stopped: %v", err)
			}
		}()
		defer srv.Stop(context.Background())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logrus.Infof("received signal %v, stopping", sig)
		eng.Stop()
		cancel()
	}()

	logrus.Infof("reconstructing packets from %s", cfg.Filename)
	if err := eng.Run(ctx, pcapSink.Write); err != nil && err != context.Canceled {
		return err
	}

	logrus.Infof("done: engine=%+v sink=%+v", eng.Metrics().GetStats(), pcapSink.Metrics().GetStats())
	return nil
}
