package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"defectlog/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

func loadConfig(prefix string) (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process(prefix, c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	switch c.DatabaseDriver {
	case types.DatabaseDriverSQLite:
	case types.DatabaseDriverPostgres:
		if c.DatabaseURL == "" {
			return nil, fmt.Errorf("set %s_DATABASE_URL when DATABASE_DRIVER is postgres", prefix)
		}
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	if c.DataDir == "" {
		return nil, fmt.Errorf("set %s_DATA_DIR", prefix)
	}

	if c.ServerPort == 0 {
		c.ServerPort = 8080
	}

	if c.ReadTimeoutSec == 0 {
		c.ReadTimeoutSec = 10
	}

	if c.WriteTimeoutSec == 0 {
		c.WriteTimeoutSec = 120
	}

	if c.RenderTimeoutSec == 0 {
		c.RenderTimeoutSec = 60
	}

	return c, nil
}

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	config, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return config, nil
}

// newLogger writes JSON for the server and text for interactive commands.
func newLogger(config *types.Config, json bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if json {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(config.LogLevel)
	if err != nil {
		logger.WithError(err).Warnf("unknown LOG_LEVEL %q, using info", config.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
