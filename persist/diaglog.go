// diaglog.go
package persist

import (
	"context"
	"os"
	"sync"
	"time"
)

const (
	// FlushInterval is how often buffered entries hit the disk.
	FlushInterval = 5 * time.Second
	// RotateBytes is the file-size cap that triggers rotation.
	RotateBytes = 20 * 1024
)

// DiagLog is an append-only diagnostic log. Writes land in an in-memory
// buffer and are flushed on a fixed timer; before each flush the current file
// size is checked and, past RotateBytes, the file is renamed to a single
// backup (overwriting any previous backup). Two generations maximum: current
// plus one backup, older history is gone by design.
//
// DiagLog implements io.Writer so it can sit behind a log sink; callers are
// expected to hand it complete, already-formatted lines.
type DiagLog struct {
	path   string
	bakext string

	mu  sync.Mutex
	buf []byte
}

func NewDiagLog(path string) *DiagLog {
	return &DiagLog{path: path, bakext: ".1"}
}

// BackupPath is where the rotated generation lives.
func (d *DiagLog) BackupPath() string { return d.path + d.bakext }

// Write buffers p. It never touches the disk and never fails.
func (d *DiagLog) Write(p []byte) (int, error) {
	d.mu.Lock()
	d.buf = append(d.buf, p...)
	d.mu.Unlock()
	return len(p), nil
}

// Log buffers one timestamped line in the "[DD.MM.YYYY HH:MM:SS] message" form.
func (d *DiagLog) Log(msg string) {
	line := "[" + time.Now().Format("02.01.2006 15:04:05") + "] " + msg + "\n"
	_, _ = d.Write([]byte(line))
}

// Run flushes on a fixed timer until ctx is cancelled, then flushes once more.
func (d *DiagLog) Run(ctx context.Context) {
	tick := time.NewTicker(FlushInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			d.Flush()
			return
		case <-tick.C:
			d.Flush()
		}
	}
}

// Flush writes buffered entries to disk, rotating first if the current file
// is over the cap. Errors leave the buffer intact for the next cycle.
func (d *DiagLog) Flush() {
	d.mu.Lock()
	if len(d.buf) == 0 {
		d.mu.Unlock()
		return
	}
	pending := d.buf
	d.buf = nil
	d.mu.Unlock()

	if st, err := os.Stat(d.path); err == nil && st.Size() > RotateBytes {
		// Overwrites any prior backup.
		_ = os.Rename(d.path, d.BackupPath())
	}

	f, err := os.OpenFile(d.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		d.requeue(pending)
		return
	}
	if _, err := f.Write(pending); err != nil {
		d.requeue(pending)
	}
	_ = f.Close()
}

func (d *DiagLog) requeue(pending []byte) {
	d.mu.Lock()
	d.buf = append(pending, d.buf...)
	d.mu.Unlock()
}
