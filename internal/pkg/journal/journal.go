package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/docmill/docmill/app/models"
	"github.com/docmill/docmill/app/repository"
)

// ErrJournalWrite is returned when a record could not be made durable even
// after retries. Entries are never silently dropped.
var ErrJournalWrite = errors.New("journal write failed")

// writeBackoffs are the delays between write attempts. The journal sits on
// the request path, so the total stays well under a second.
var writeBackoffs = []time.Duration{
	50 * time.Millisecond,
	250 * time.Millisecond,
	1 * time.Second,
}

// pageSize is how many records a cursor pulls per repository round trip.
const pageSize = 200

// Journal is the append-only log of every attempted operation. Records are
// durable before Record returns; nothing here updates or deletes rows.
type Journal struct {
	repo repository.OperationRepository
}

func NewJournal(repo repository.OperationRepository) *Journal {
	return &Journal{repo: repo}
}

// Record appends an entry, retrying transient storage failures with backoff
// before surfacing ErrJournalWrite.
func (j *Journal) Record(ctx context.Context, record *models.OperationRecord) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = j.repo.Create(record)
		if lastErr == nil {
			return nil
		}
		if attempt >= len(writeBackoffs) {
			break
		}
		log.Warnf("[Journal] Write attempt %d failed, retrying in %s: %v",
			attempt+1, writeBackoffs[attempt], lastErr)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrJournalWrite, ctx.Err())
		case <-time.After(writeBackoffs[attempt]):
		}
	}
	return fmt.Errorf("%w: %v", ErrJournalWrite, lastErr)
}

// QueryByDateRange returns a cursor over records with timestamps in
// [start, end), ordered by insertion. The cursor pulls fixed-size pages and
// can be restarted from any record id.
func (j *Journal) QueryByDateRange(start, end time.Time) *Cursor {
	return j.ResumeByDateRange(start, end, 0)
}

// ResumeByDateRange is QueryByDateRange continuing after a known record id.
func (j *Journal) ResumeByDateRange(start, end time.Time, afterID uint) *Cursor {
	return &Cursor{
		repo:    j.repo,
		start:   start,
		end:     end,
		afterID: afterID,
	}
}

// CountSince counts records at or after the cutoff (admin snapshot use).
func (j *Journal) CountSince(cutoff time.Time) (int64, error) {
	return j.repo.CountSince(cutoff)
}

// Cursor is a lazy, finite, restartable scan over a date range of the log.
type Cursor struct {
	repo    repository.OperationRepository
	start   time.Time
	end     time.Time
	afterID uint

	buf  []models.OperationRecord
	pos  int
	done bool
}

// Next returns the next record, or nil once the range is exhausted.
func (c *Cursor) Next() (*models.OperationRecord, error) {
	if c.pos >= len(c.buf) {
		if c.done {
			return nil, nil
		}
		page, err := c.repo.ListRange(c.start, c.end, c.afterID, pageSize)
		if err != nil {
			return nil, fmt.Errorf("journal scan failed: %w", err)
		}
		if len(page) < pageSize {
			c.done = true
		}
		if len(page) == 0 {
			return nil, nil
		}
		c.buf = page
		c.pos = 0
		c.afterID = page[len(page)-1].ID
	}

	rec := &c.buf[c.pos]
	c.pos++
	return rec, nil
}

// LastID reports the id of the most recently fetched page's tail; passing it
// to ResumeByDateRange restarts the scan from the same point.
func (c *Cursor) LastID() uint {
	return c.afterID
}
