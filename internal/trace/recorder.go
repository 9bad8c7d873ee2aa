// Package trace records the kernel event stream: a CSV file, a binary stream
// (CBOR or length-delimited protobuf), a bounded ring of recent events and a
// log line per event.
package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/emirpasic/gods/queues/circularbuffer"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"fsrtos/internal/kernel"
)

// Record is one flattened kernel event, stamped with the boot it belongs to.
type Record struct {
	Boot      string `cbor:"boot"`
	Seq       uint64 `cbor:"seq"`
	Time      int64  `cbor:"time"` // unix nanoseconds
	Tick      uint16 `cbor:"tick"`
	Kind      string `cbor:"kind"`
	PID       uint16 `cbor:"pid"`
	Class     string `cbor:"class"`
	From      string `cbor:"from"`
	To        string `cbor:"to"`
	RunLength uint16 `cbor:"run_length"`
	Fault     string `cbor:"fault,omitempty"`
}

// Recorder consumes kernel events. Observe is safe to call from any goroutine.
type Recorder struct {
	mu   sync.Mutex
	log  *zap.Logger
	boot uuid.UUID
	seq  uint64
	ring *circularbuffer.Queue

	// CSV sink
	csvFile   *os.File
	csvWriter *csv.Writer

	// binary sink
	binFile io.Closer
	bin     Encoder
}

// NewRecorder keeps the last ringSize events in memory.
func NewRecorder(log *zap.Logger, ringSize int) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	if ringSize <= 0 {
		ringSize = 256
	}
	return &Recorder{
		log:  log,
		boot: uuid.New(),
		ring: circularbuffer.New(ringSize),
	}
}

// SetBoot starts a new boot: following records carry id and the sequence
// restarts at zero.
func (r *Recorder) SetBoot(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boot = id
	r.seq = 0
}

// EnableCSV opens the given file path for CSV logging of events.
func (r *Recorder) EnableCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv trace: %w", err)
	}
	w := csv.NewWriter(f)

	// write header
	if err := w.Write([]string{"boot", "seq", "timestamp", "tick", "event", "pid", "class", "from", "to", "run_length", "fault"}); err != nil {
		f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	w.Flush()

	r.mu.Lock()
	r.csvFile = f
	r.csvWriter = w
	r.mu.Unlock()
	return nil
}

// EnableBinary opens path for the binary stream in the given format.
func (r *Recorder) EnableBinary(path, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create binary trace: %w", err)
	}
	enc, err := NewEncoder(format, f)
	if err != nil {
		f.Close()
		return err
	}
	r.mu.Lock()
	r.binFile = f
	r.bin = enc
	r.mu.Unlock()
	return nil
}

// Observe is a kernel observer. The kernel calls it from its event consumer,
// so the file and log writes below stay off the kernel path.
func (r *Recorder) Observe(ev kernel.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := Record{
		Boot:      r.boot.String(),
		Seq:       r.seq,
		Time:      ev.Time.UnixNano(),
		Tick:      uint16(ev.Tick),
		Kind:      ev.Kind.String(),
		PID:       uint16(ev.PID),
		Class:     ev.Class.String(),
		From:      ev.From.String(),
		To:        ev.To.String(),
		RunLength: uint16(ev.RunLength),
	}
	if ev.Fault != kernel.FaultNone {
		rec.Fault = ev.Fault.String()
	}
	r.seq++
	r.ring.Enqueue(rec)

	// ticks are frequent; keep them out of the log at info level
	if ev.Kind == kernel.EventPreempt {
		r.log.Debug("kernel event", recordFields(rec)...)
	} else {
		r.log.Info("kernel event", recordFields(rec)...)
	}

	if r.csvWriter != nil {
		_ = r.csvWriter.Write([]string{
			rec.Boot,
			strconv.FormatUint(rec.Seq, 10),
			ev.Time.Format(time.RFC3339Nano),
			strconv.FormatUint(uint64(rec.Tick), 10),
			rec.Kind,
			strconv.FormatUint(uint64(rec.PID), 10),
			rec.Class,
			rec.From,
			rec.To,
			strconv.FormatUint(uint64(rec.RunLength), 10),
			rec.Fault,
		})
		r.csvWriter.Flush()
	}
	if r.bin != nil {
		if err := r.bin.Encode(rec); err != nil {
			r.log.Warn("binary trace write failed, disabling sink", zap.Error(err))
			r.bin = nil
		}
	}
}

// Recent returns the buffered records, oldest first.
func (r *Recorder) Recent() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	vals := r.ring.Values()
	out := make([]Record, 0, len(vals))
	for _, v := range vals {
		out = append(out, v.(Record))
	}
	return out
}

// Close flushes and closes every sink.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var first error
	if r.csvFile != nil {
		r.csvWriter.Flush()
		if err := r.csvWriter.Error(); err != nil && first == nil {
			first = err
		}
		if err := r.csvFile.Close(); err != nil && first == nil {
			first = err
		}
		r.csvFile, r.csvWriter = nil, nil
	}
	if r.binFile != nil {
		if err := r.binFile.Close(); err != nil && first == nil {
			first = err
		}
		r.binFile, r.bin = nil, nil
	}
	return first
}

func recordFields(rec Record) []zap.Field {
	fields := []zap.Field{
		zap.String("boot", rec.Boot),
		zap.Uint64("seq", rec.Seq),
		zap.Uint16("tick", rec.Tick),
		zap.String("event", rec.Kind),
		zap.Uint16("pid", rec.PID),
		zap.String("class", rec.Class),
	}
	if rec.Kind == kernel.EventTransition.String() {
		fields = append(fields, zap.String("from", rec.From), zap.String("to", rec.To))
	}
	if rec.Fault != "" {
		fields = append(fields, zap.String("fault", rec.Fault))
	}
	return fields
}
