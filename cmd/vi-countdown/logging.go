package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/logger"
)

const (
	logFileName = "vi-countdown.log"
	maxLogSize  = 10 * 1024 * 1024 // 10 MiB
)

// setupLogging routes google/logger and the standard logger to dir/vi-countdown.log when debug is set
// The terminal is in raw mode while the UI runs, so nothing may reach stdout or stderr
// Returns the open file, or nil when logging is disabled or the file cannot be opened
func setupLogging(debug bool, dir string) *os.File {
	if !debug {
		discardLogs()
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		discardLogs()
		return nil
	}

	logPath := filepath.Join(dir, logFileName)
	rotateLog(logPath)

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		discardLogs()
		return nil
	}

	logger.Init("vi-countdown", false, false, f)
	logger.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("logging started, pid %d", os.Getpid())
	return f
}

// discardLogs silences both loggers; the google/logger default writes to stderr until Init runs
func discardLogs() {
	logger.Init("vi-countdown", false, false, io.Discard)
	log.SetOutput(io.Discard)
}

// rotateLog moves an oversized log aside under a timestamped name
func rotateLog(logPath string) {
	info, err := os.Stat(logPath)
	if err != nil || info.Size() <= maxLogSize {
		return
	}
	ext := filepath.Ext(logPath)
	rotated := fmt.Sprintf("%s.%s%s", logPath[:len(logPath)-len(ext)], time.Now().Format("20060102-150405"), ext)
	_ = os.Rename(logPath, rotated)
}
