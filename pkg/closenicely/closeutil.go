package closenicely

import (
	"io"

	"go.uber.org/zap"
)

// OrDebug closes closer, logging (rather than returning) any error. Use it for deferred closes of
// read-only resources where a close failure does not affect the result.
func OrDebug(closer io.Closer) {
	FuncOrDebug(zap.L(), closer.Close)
}

func FuncOrDebug(log *zap.Logger, closer func() error) {
	if err := closer(); err != nil {
		log.Debug("Failed to close resource", zap.Error(err))
	}
}

// Join closes closer and joins its error into *err, for deferred closes of written resources
// where a failed close means the output is incomplete.
func Join(err *error, closer io.Closer) {
	if cerr := closer.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
