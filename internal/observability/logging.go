package observability

import (
	"os"

	"github.com/sirupsen/logrus"
)

// ConfigureLogging sets the global logrus level and formatter. Production
// logs are JSON, everything else is human readable text.
func ConfigureLogging(level, env string) {
	logrus.SetOutput(os.Stdout)

	if env == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warn("Unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
