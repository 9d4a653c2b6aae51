package log

import (
	"go.uber.org/zap"
)

var logger = zap.NewNop()

func Init(debug bool) error {
	var (
		l   *zap.Logger
		err error
	)
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	logger = l

	return nil
}

func Get() *zap.Logger {
	return logger
}
