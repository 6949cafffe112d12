// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package csp

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logMu  sync.RWMutex
	logger = newDefaultLogger()
)

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

// SetLogger replaces the diagnostics logger.
//
// The runtime logs misuse at error level right before panicking, and timer
// and context transitions at debug level. Passing nil restores the default
// logger (stderr, warn level).
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = newDefaultLogger()
	}
	logMu.Lock()
	logger = l
	logMu.Unlock()
}

func diag() *logrus.Logger {
	logMu.RLock()
	l := logger
	logMu.RUnlock()
	return l
}

// fatal logs msg with fields and panics with msg.
func fatal(msg string, fields logrus.Fields) {
	diag().WithFields(fields).Error(msg)
	panic(msg)
}
