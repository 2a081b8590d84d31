package phh

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/easwar16/Golden-Flop-sub000/internal/engine"
)

// Writer archives one table's hands into <dir>/<name>.phhs, one numbered
// TOML section per hand. Encoding and file IO run on a background
// goroutine, so RecordHand never blocks the caller; it is safe to invoke
// with game locks held. Section numbering continues across restarts.
type Writer struct {
	path    string
	name    string
	logger  *log.Logger
	queue   chan *HandHistory
	done    chan struct{}
	section int
}

// NewWriter opens the table's history file, scanning any existing hands so
// numbering picks up where the last run stopped.
func NewWriter(dir, name string, logger *log.Logger) (*Writer, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("hand history dir: %w", err)
	}

	path := filepath.Join(dir, name+".phhs")
	section, err := lastSection(path)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}

	w := &Writer{
		path:    path,
		name:    name,
		logger:  logger.WithPrefix("history").With("table", name),
		queue:   make(chan *HandHistory, 64),
		done:    make(chan struct{}),
		section: section,
	}
	go w.run()
	return w, nil
}

// RecordHand implements room.HandRecorder. The hand is flattened here,
// synchronously, since the engine structures belong to the caller; the
// encoding and write happen on the writer's goroutine. A full queue drops
// the hand rather than stalling the table.
func (w *Writer) RecordHand(h *engine.Hand, res *engine.Result) {
	hh := Build(h, res, time.Now())
	hh.Table = w.name

	select {
	case w.queue <- hh:
	default:
		w.logger.Warn("Hand history queue full, dropping", "hand", res.HandID)
	}
}

// Close drains queued hands and stops the writer. No RecordHand calls may
// race or follow it.
func (w *Writer) Close() {
	close(w.queue)
	<-w.done
}

func (w *Writer) run() {
	defer close(w.done)
	for hh := range w.queue {
		if err := w.append(hh); err != nil {
			w.logger.Error("Hand history write failed", "hand", hh.HandID, "error", err)
		}
	}
}

func (w *Writer) append(hh *HandHistory) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[%d]\n", w.section+1)
	if err := Encode(&buf, hh); err != nil {
		return err
	}
	buf.WriteByte('\n')

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return err
	}
	w.section++
	return nil
}

// lastSection returns the highest hand number already in the file, zero
// when the file does not exist yet.
func lastSection(path string) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	last := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if len(line) < 3 || line[0] != '[' || line[len(line)-1] != ']' {
			continue
		}
		if n, err := strconv.Atoi(line[1 : len(line)-1]); err == nil && n > last {
			last = n
		}
	}
	return last, sc.Err()
}
