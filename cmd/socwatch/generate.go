package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	inputredis "socwatch/internal/input/redis"
	"socwatch/internal/loggen"
	"socwatch/internal/logger"
)

func newGenerateCmd(opts *options) *cobra.Command {
	var (
		count    int
		queue    bool
		replay   string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Send synthetic security logs to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(true)
			if err != nil {
				return err
			}

			var sender loggen.Sender
			if queue {
				rc := cfg.SocWatch.Server.Input.Redis
				consumer, err := inputredis.NewConsumer(inputredis.Config{
					Addr:     rc.Addr,
					Password: rc.Password,
					DB:       rc.DB,
					Key:      rc.Key,
				})
				if err != nil {
					return errors.Wrap(err, "create redis queue")
				}
				defer consumer.Close()
				sender = loggen.QueueSender{Queue: consumer}
				logger.Infof("Sending logs to redis queue %s (%s)", consumer.Key(), rc.Addr)
			} else {
				api, err := newClient(cfg)
				if err != nil {
					return err
				}
				sender = loggen.HTTPSender{Client: api}
				logger.Infof("Sending logs to %s", api.BaseURL())
			}

			var stats loggen.Stats
			if replay != "" {
				f, err := os.Open(replay)
				if err != nil {
					return errors.Wrapf(err, "open capture %s", replay)
				}
				defer f.Close()
				stats, err = loggen.Replay(cmd.Context(), f, sender, interval)
				if err != nil {
					return err
				}
			} else {
				gc := cfg.SocWatch.Generator
				if count > 0 {
					gc.Count = count
				}
				stats, err = loggen.New(loggen.Config{
					MinInterval: gc.MinInterval,
					MaxInterval: gc.MaxInterval,
					Count:       gc.Count,
				}, sender).Run(cmd.Context())
				if err != nil {
					return err
				}
			}

			logger.Infof("Generator finished: sent=%d failed=%d detected=%d", stats.Sent, stats.Failed, stats.Detected)
			fmt.Fprintf(cmd.OutOrStdout(), "sent=%d failed=%d detected=%d\n", stats.Sent, stats.Failed, stats.Detected)
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many logs (0 runs until interrupted)")
	cmd.Flags().BoolVar(&queue, "queue", false, "push to the redis log queue instead of POST /logs")
	cmd.Flags().StringVar(&replay, "replay", "", "replay a captured JSON lines file instead of generating")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "spacing between replayed logs")
	return cmd
}
