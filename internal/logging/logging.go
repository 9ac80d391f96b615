package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Level int32

const (
	DEBUG Level = iota
	INFO
	WARNING
	ERROR
)

var levelNames = map[Level]string{
	DEBUG:   "DEBUG",
	INFO:    "INFO",
	WARNING: "WARNING",
	ERROR:   "ERROR",
}

var current atomic.Int32

func init() {
	current.Store(int32(INFO))
}

func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARNING
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func SetLevel(l Level) {
	current.Store(int32(l))
}

func Enabled(l Level) bool {
	return Level(current.Load()) <= l
}

// Setup 设置日志级别；file 非空时标准库 log 同时写 stdout 和按大小滚动的文件。
// 返回的 io.Closer 在进程退出前关闭。
func Setup(level, file string) (io.Closer, error) {
	SetLevel(ParseLevel(level))
	log.SetFlags(log.LstdFlags)

	if file == "" {
		log.SetOutput(os.Stdout)
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, fmt.Errorf("logging: create log directory: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	return rotator, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func logf(l Level, format string, v ...any) {
	if !Enabled(l) {
		return
	}
	log.Printf("["+levelNames[l]+"] "+format, v...)
}

func Debugf(format string, v ...any) { logf(DEBUG, format, v...) }
func Infof(format string, v ...any)  { logf(INFO, format, v...) }
func Warnf(format string, v ...any)  { logf(WARNING, format, v...) }
func Errorf(format string, v ...any) { logf(ERROR, format, v...) }
