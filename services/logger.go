package services

import "github.com/sirupsen/logrus"

var logger logrus.FieldLogger = logrus.StandardLogger()

// SetLogger routes service logs to the application logger.
func SetLogger(l logrus.FieldLogger) {
	if l != nil {
		logger = l
	}
}
