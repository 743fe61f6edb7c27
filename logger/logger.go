package logger

import (
	"bufio"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps the sugared zap logger and the log file handle
type Logger struct {
	*zap.SugaredLogger
	base   *zap.Logger
	file   *os.File
	writer *bufio.Writer
}

// Close properly flushes and closes the log file
func (l *Logger) Close() error {
	if err := l.Flush(); err != nil {
		return err
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) Flush() error {
	// zap reports a sync error for stdout on some terminals, the file writer is what matters
	_ = l.base.Sync()
	if l.writer != nil {
		return l.writer.Flush()
	}
	return nil
}

// Child returns a named plain zap logger for libraries that take one, e.g. the etcd client.
func (l *Logger) Child(name string) *zap.Logger {
	return l.base.Named(name)
}

// NewLogger writes log entries to both stdout and filename. An empty filename
// logs to stdout only.
func NewLogger(filename string, level zapcore.Level) (*Logger, error) {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stdout), level),
	}

	var (
		logFile        *os.File
		bufferedWriter *bufio.Writer
	)
	if filename != "" {
		var err error
		logFile, err = os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
		if err != nil {
			return nil, err
		}
		bufferedWriter = bufio.NewWriter(logFile)
		fileEncoderConfig := zap.NewProductionEncoderConfig()
		fileEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEncoderConfig),
			zapcore.AddSync(bufferedWriter),
			level,
		))
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return &Logger{SugaredLogger: base.Sugar(), base: base, file: logFile, writer: bufferedWriter}, nil
}
