package engine

import (
	"bytes"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// lineLogger forwards complete output lines of a child process to the
// structured logger.
type lineLogger struct {
	mu    sync.Mutex
	buf   []byte
	stage string
	level zerolog.Level
}

func newLineLogger(stage string, level zerolog.Level) *lineLogger {
	return &lineLogger{stage: stage, level: level}
}

func (lw *lineLogger) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		lw.emit(lw.buf[:idx])
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}

// Flush logs a trailing partial line.
func (lw *lineLogger) Flush() {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if len(lw.buf) > 0 {
		lw.emit(lw.buf)
		lw.buf = nil
	}
}

func (lw *lineLogger) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	log.WithLevel(lw.level).Str("engine", BackendExec).Str("stage", lw.stage).Msg(string(line))
}
