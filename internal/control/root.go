package control

import (
	"context"
	"time"

	"wispr/internal/api"
	"wispr/internal/config"
	"wispr/internal/logging"

	"github.com/sirupsen/logrus"
)

const backendTimeout = 10 * time.Second

// env loads config and the logger for one-shot commands.
func env(cfgPath string) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.Configure(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// backend returns a client and a bounded context for a single backend call.
func backend(parent context.Context, cfgPath string) (*api.Client, context.Context, context.CancelFunc, error) {
	cfg, logger, err := env(cfgPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, backendTimeout)
	return api.New(cfg, logger), ctx, cancel, nil
}
