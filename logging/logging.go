// Package logging builds the process logger.
package logging

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// New returns a logrus logger writing to out. format is "json" or "text".
func New(out io.Writer, level, format string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "logging: level")
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(lvl)
	switch format {
	case "json", "":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, errors.Errorf("logging: unknown format %q", format)
	}
	return log, nil
}

// SQLHook logs statements at debug level; it plugs into store.WithStatementHook.
func SQLHook(log logrus.FieldLogger) func(string) {
	return func(query string) {
		log.WithField("sql", query).Debug("statement")
	}
}
