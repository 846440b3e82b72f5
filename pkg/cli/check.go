package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenVidu/openvidu-meet-sub010/pkg/health"
	mongostore "github.com/OpenVidu/openvidu-meet-sub010/pkg/store/mongodb"
	redisstore "github.com/OpenVidu/openvidu-meet-sub010/pkg/store/redis"
)

// newCheckCommand probes Redis and MongoDB with the effective configuration
// and reports per-dependency results. Exit status is non-zero when any
// dependency is unreachable.
func newCheckCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe external dependencies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			registry := health.NewRegistry()

			redisAdapter, err := redisstore.NewAdapter(redisstore.Config{
				URL:              cfg.Redis.URL,
				OperationTimeout: cfg.Redis.OperationTimeout,
			}, log)
			if err != nil {
				cmd.PrintErrln("redis: unreachable:", err)
			} else {
				defer func() { _ = redisAdapter.Close() }()
				registry.Register(health.NewAdapterChecker("redis", redisAdapter, cfg.Redis.OperationTimeout))
			}

			mongoAdapter, err := mongostore.NewAdapter(mongostore.Config{
				URL:              cfg.Mongo.URL,
				Database:         cfg.Mongo.Database,
				ConnectTimeout:   cfg.Mongo.ConnectTimeout,
				OperationTimeout: cfg.Mongo.OperationTimeout,
			}, log)
			if err != nil {
				cmd.PrintErrln("mongodb: unreachable:", err)
			} else {
				defer func() { _ = mongoAdapter.Close() }()
				registry.Register(health.NewAdapterChecker("mongodb", mongoAdapter, cfg.Mongo.OperationTimeout))
			}

			results, healthy := registry.CheckAll(cmd.Context())
			for _, result := range results {
				line := fmt.Sprintf("%s: %s", result.Name, result.Status)
				if result.Error != "" {
					line += " (" + result.Error + ")"
				}
				cmd.Println(line)
			}
			if redisAdapter == nil || mongoAdapter == nil || !healthy {
				return errors.New("one or more dependencies are unreachable")
			}
			return nil
		},
	}
}
