// Package wclog centralizes the polyfill's logging, matching the
// teacher's initlog() in config.go: a stdlib *log.Logger, switchable
// between a single writer and an io.MultiWriter fan-out, flags always
// log.LstdFlags. No structured logging library is introduced here —
// the teacher never reaches for one.
package wclog

import (
	"io"
	"log"
	"os"
	"sync"
)

var (
	mu  sync.Mutex
	out io.Writer = os.Stderr
	l             = log.New(os.Stderr, "", log.LstdFlags)
)

// SetOutput redirects all future log lines to w. Passing multiple
// writers (via io.MultiWriter) lets a host attach its own sink
// alongside the default, the same pattern config.go's initlog uses to
// write to both a debug.log file and stdout when DEBUG=true.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	l.SetOutput(w)
}

// AddWriter fans log output out to an additional writer without
// dropping the existing one.
func AddWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = io.MultiWriter(out, w)
	l.SetOutput(out)
}

func Printf(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	l.Printf(format, args...)
}

func Println(args ...any) {
	mu.Lock()
	defer mu.Unlock()
	l.Println(args...)
}
