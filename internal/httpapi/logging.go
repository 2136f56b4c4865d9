package httpapi

import (
	"bufio"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// EnvRequestLog sets the default verbosity of per-request generate logs.
const EnvRequestLog = "LSAI_REQUEST_LOG"

// zlog is an optional structured logger. If unset, the global zerolog logger is used.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer. It must be
// called before NewMux.
func SetLogger(l zerolog.Logger) { zlog = &l }

func logger() *zerolog.Logger {
	if zlog != nil {
		return zlog
	}
	return &log.Logger
}

var defaultRequestLevel = parseRequestLevel(os.Getenv(EnvRequestLog), zerolog.InfoLevel)

// parseRequestLevel maps a verbosity name to a zerolog level. "1" is short
// for debug and "off" silences request logs; anything unknown yields def.
func parseRequestLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def
	case "1":
		return zerolog.DebugLevel
	case "off", "none":
		return zerolog.Disabled
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return def
	}
	return lvl
}

// requestLevel resolves the verbosity for r: ?log= wins over X-Log-Level,
// which wins over LSAI_REQUEST_LOG.
func requestLevel(r *http.Request) zerolog.Level {
	if v := r.URL.Query().Get("log"); v != "" {
		return parseRequestLevel(v, defaultRequestLevel)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseRequestLevel(v, defaultRequestLevel)
	}
	return defaultRequestLevel
}

// requestLogger returns the request-scoped logger filtered at requestLevel.
func requestLogger(r *http.Request) zerolog.Logger {
	return hlog.FromRequest(r).Level(requestLevel(r))
}

// logResponseLines writes each non-empty line of text at debug level.
func logResponseLines(l zerolog.Logger, prefix, text string) {
	if l.GetLevel() > zerolog.DebugLevel {
		return
	}
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		if line := sc.Text(); strings.TrimSpace(line) != "" {
			l.Debug().Msg(prefix + "> " + line)
		}
	}
}
