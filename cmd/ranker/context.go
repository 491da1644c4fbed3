package main

import (
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/resume-ranker/internal/config"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.LoadFile(path)
	})
	return c.config, c.configErr
}

// logger writes to out. Without --verbose only warnings and errors are shown
// so they do not drown the ranking output.
func (c *commandContext) logger(cfg *config.Config, out io.Writer) *logrus.Entry {
	logger := cfg.Log.NewLogger(out)
	if c.verbose == nil || !*c.verbose {
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger.WithField("service", "ranker-cli")
}
