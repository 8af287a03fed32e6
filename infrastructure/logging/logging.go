package logging

import (
	"io"
	"os"

	"github.com/op/go-logging"
)

const format = `%{time:2006-01-02 15:04:05} %{level:.5s} %{module:-8s} %{message}`

// InitLogger receives the log level as a string (DEBUG, INFO, WARNING,
// ERROR, CRITICAL) and installs a leveled stdout backend for every module.
func InitLogger(logLevel string) error {
	return InitLoggerTo(os.Stdout, logLevel)
}

func InitLoggerTo(w io.Writer, logLevel string) error {
	baseBackend := logging.NewLogBackend(w, "", 0)
	backendFormatter := logging.NewBackendFormatter(baseBackend, logging.MustStringFormatter(format))

	backendLeveled := logging.AddModuleLevel(backendFormatter)
	logLevelCode, err := logging.LogLevel(logLevel)
	if err != nil {
		return err
	}
	backendLeveled.SetLevel(logLevelCode, "")

	logging.SetBackend(backendLeveled)
	return nil
}
