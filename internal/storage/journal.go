package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	ErrJournalClosed = errors.New("journal is closed")
	ErrBufferFull    = errors.New("journal buffer full")
)

// JournalEntry records one export action. Captured requests themselves are
// never written; only their ids.
type JournalEntry struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"time"`
	SessionID  string    `json:"session_id"`
	Format     string    `json:"format"`
	RequestIDs []string  `json:"request_ids"`
	Bytes      int       `json:"bytes"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	SavedTo    string    `json:"saved_to,omitempty"`
}

// Journal appends JournalEntry lines to date-organized JSONL files. Writes
// are queued and flushed by a background goroutine.
type Journal struct {
	baseDir     string
	fileID      string
	maxSizeMB   int
	writeCh     chan JournalEntry
	done        chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
	currentDate string
	logger      *lumberjack.Logger
	mu          sync.Mutex
	now         func() time.Time
}

// NewJournal starts a journal under baseDir/<date>/exports/<sessionID>.jsonl.
func NewJournal(baseDir, sessionID string, bufferSize, maxSizeMB int) *Journal {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	j := &Journal{
		baseDir:   baseDir,
		fileID:    ShortID(sessionID),
		maxSizeMB: maxSizeMB,
		writeCh:   make(chan JournalEntry, bufferSize),
		done:      make(chan struct{}),
		now:       time.Now,
	}
	j.wg.Add(1)
	go j.writeLoop()
	return j
}

// Record queues e. Missing ids and timestamps are filled in.
func (j *Journal) Record(e JournalEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = j.now().UTC()
	}
	select {
	case <-j.done:
		return ErrJournalClosed
	default:
	}
	select {
	case j.writeCh <- e:
		return nil
	default:
		slog.Warn("journal buffer full, dropping entry", "format", e.Format)
		return ErrBufferFull
	}
}

// Close stops the writer after flushing queued entries.
func (j *Journal) Close() error {
	j.closeOnce.Do(func() { close(j.done) })
	j.wg.Wait()

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.logger != nil {
		err := j.logger.Close()
		j.logger = nil
		return err
	}
	return nil
}

func (j *Journal) writeLoop() {
	defer j.wg.Done()
	for {
		select {
		case e := <-j.writeCh:
			j.write(e)
		case <-j.done:
			timeout := time.After(5 * time.Second)
			for {
				select {
				case e := <-j.writeCh:
					j.write(e)
				case <-timeout:
					slog.Warn("journal close timeout, some entries may be lost")
					return
				default:
					return
				}
			}
		}
	}
}

func (j *Journal) write(e JournalEntry) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to marshal journal entry", "error", err)
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	date := e.Time.UTC().Format("2006-01-02")
	if date != j.currentDate || j.logger == nil {
		if err := j.rotateForDate(date); err != nil {
			slog.Error("failed to open journal file", "error", err)
			return
		}
	}
	if _, err := j.logger.Write(append(data, '\n')); err != nil {
		slog.Error("failed to write journal entry", "error", err)
	}
}

func (j *Journal) rotateForDate(date string) error {
	if j.logger != nil {
		j.logger.Close()
	}
	dir := filepath.Join(j.baseDir, date, "exports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	filename := filepath.Join(dir, j.fileID+".jsonl")
	j.logger = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    j.maxSizeMB,
		MaxBackups: 10,
		MaxAge:     30,
		LocalTime:  false,
	}
	j.currentDate = date
	slog.Info("opened export journal", "file", filename)
	return nil
}
