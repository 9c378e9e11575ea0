package authclient

import (
	"github.com/goliatone/go-logger/glog"
)

// ResolveLogger picks the logger for a named component. A provider wins when
// it returns a logger for name, otherwise logger is used, and as a last
// resort the package default.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if provider != nil {
		if resolved := provider.GetLogger(name); resolved != nil {
			return provider, resolved
		}
	}

	if logger == nil {
		logger = defaultLogger()
	}

	return staticLoggerProvider{logger: logger}, logger
}

// ProviderFromLogger adapts a single logger into a LoggerProvider.
func ProviderFromLogger(logger Logger) LoggerProvider {
	if logger == nil {
		logger = defaultLogger()
	}
	return staticLoggerProvider{logger: logger}
}

type staticLoggerProvider struct {
	logger Logger
}

func (p staticLoggerProvider) GetLogger(string) Logger {
	return p.logger
}

func defaultLogger() Logger {
	return glog.NewLogger(
		glog.WithName("authclient"),
		glog.WithLoggerTypePretty(),
		glog.WithAddSource(false),
	)
}
