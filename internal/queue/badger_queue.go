package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"pdf-rag/internal/domain"
)

// ErrNoMessage is returned by Receive when no message is ready.
var ErrNoMessage = errors.New("no message")

// JobFileRead names the ingestion job carried by the upload queue.
const JobFileRead = "file-read"

// Message is the body of a queued job.
type Message struct {
	JobID   string            `json:"job_id"`
	Name    string            `json:"name"`
	Payload domain.JobPayload `json:"payload"`
}

type storedMessage struct {
	ID           string    `json:"id"`
	Body         Message   `json:"body"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
	VisibleAt    time.Time `json:"visible_at"`
	ReceiveCount int       `json:"receive_count"`
}

// Delivery is a received message. It stays invisible to other consumers until its
// visibility timeout lapses; Ack removes it for good.
type Delivery struct {
	ID           string
	Message      Message
	ReceiveCount int
	q            *BadgerQueue
}

// Ack deletes the message from the queue.
func (d *Delivery) Ack() error { return d.q.delete(d.ID) }

// Extend pushes the message's visibility timeout out by dur from now.
func (d *Delivery) Extend(ctx context.Context, dur time.Duration) error {
	return d.q.Extend(ctx, d.ID, dur)
}

// BadgerQueue is a persistent at-least-once queue stored in Badger.
//
// Keys:
//
//	queue:{name}:msg:{id}                    message JSON
//	queue:{name}:index:{visibleAt nanos}:{id} empty, ordered by visibility
type BadgerQueue struct {
	db                *badger.DB
	name              string
	visibilityTimeout time.Duration
	maxReceive        int
	logger            arbor.ILogger
}

// NewBadgerQueue creates a queue named name over db.
func NewBadgerQueue(db *badger.DB, name string, visibilityTimeout time.Duration, maxReceive int, logger arbor.ILogger) (*BadgerQueue, error) {
	if db == nil {
		return nil, domain.Errorf(domain.ErrConfiguration, "badger db is required")
	}
	if name == "" {
		return nil, domain.Errorf(domain.ErrConfiguration, "queue name is required")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 5 * time.Minute
	}
	if maxReceive <= 0 {
		maxReceive = 3
	}
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &BadgerQueue{
		db:                db,
		name:              name,
		visibilityTimeout: visibilityTimeout,
		maxReceive:        maxReceive,
		logger:            logger,
	}, nil
}

// Name returns the queue name.
func (q *BadgerQueue) Name() string { return q.name }

// Enqueue adds msg to the queue, immediately visible, and returns its message id.
func (q *BadgerQueue) Enqueue(_ context.Context, msg Message) (string, error) {
	now := time.Now()
	sm := storedMessage{
		ID:         uuid.New().String(),
		Body:       msg,
		EnqueuedAt: now,
		VisibleAt:  now,
	}
	data, err := json.Marshal(sm)
	if err != nil {
		return "", fmt.Errorf("marshal queue message: %w", err)
	}
	err = q.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(q.msgKey(sm.ID), data); err != nil {
			return err
		}
		return txn.Set(q.indexKey(sm.VisibleAt, sm.ID), []byte{})
	})
	if err != nil {
		return "", domain.Wrap(domain.ErrStore, err, "enqueue")
	}
	return sm.ID, nil
}

// Receive claims the next visible message. It returns ErrNoMessage when nothing is ready.
// Messages received maxReceive times without an Ack are dropped.
func (q *BadgerQueue) Receive(_ context.Context) (*Delivery, error) {
	var claimed storedMessage
	var found bool
	err := q.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := q.indexPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now()
		var indexKey []byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			ts, id, err := q.parseIndexKey(key)
			if err != nil {
				continue
			}
			if ts.After(now) {
				break
			}

			item, err := txn.Get(q.msgKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				if err := txn.Delete(key); err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}
			var sm storedMessage
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &sm) }); err != nil {
				return err
			}
			if sm.ReceiveCount >= q.maxReceive {
				q.logger.Warn().
					Str("queue", q.name).
					Str("message_id", sm.ID).
					Str("job_id", sm.Body.JobID).
					Int("receive_count", sm.ReceiveCount).
					Msg("Dropping message after max receives")
				if err := txn.Delete(key); err != nil {
					return err
				}
				if err := txn.Delete(q.msgKey(id)); err != nil {
					return err
				}
				continue
			}
			claimed = sm
			indexKey = key
			break
		}
		if indexKey == nil {
			// commit any drops made above
			return nil
		}
		found = true

		claimed.ReceiveCount++
		claimed.VisibleAt = time.Now().Add(q.visibilityTimeout)
		data, err := json.Marshal(claimed)
		if err != nil {
			return err
		}
		if err := txn.Set(q.msgKey(claimed.ID), data); err != nil {
			return err
		}
		if err := txn.Delete(indexKey); err != nil {
			return err
		}
		return txn.Set(q.indexKey(claimed.VisibleAt, claimed.ID), []byte{})
	})
	switch {
	case errors.Is(err, ErrNoMessage):
		return nil, ErrNoMessage
	case errors.Is(err, badger.ErrConflict):
		// another consumer claimed concurrently; the next poll retries
		return nil, ErrNoMessage
	case err != nil:
		return nil, domain.Wrap(domain.ErrStore, err, "receive")
	case !found:
		return nil, ErrNoMessage
	}
	return &Delivery{ID: claimed.ID, Message: claimed.Body, ReceiveCount: claimed.ReceiveCount, q: q}, nil
}

// Extend makes message id invisible for dur from now.
func (q *BadgerQueue) Extend(_ context.Context, id string, dur time.Duration) error {
	err := q.db.Update(func(txn *badger.Txn) error {
		sm, err := q.get(txn, id)
		if err != nil {
			return err
		}
		old := sm.VisibleAt
		sm.VisibleAt = time.Now().Add(dur)
		data, err := json.Marshal(sm)
		if err != nil {
			return err
		}
		if err := txn.Set(q.msgKey(id), data); err != nil {
			return err
		}
		if err := txn.Delete(q.indexKey(old, id)); err != nil {
			return err
		}
		return txn.Set(q.indexKey(sm.VisibleAt, id), []byte{})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Errorf(domain.ErrNotFound, "queue message %s", id)
	}
	if err != nil {
		return domain.Wrap(domain.ErrStore, err, "extend")
	}
	return nil
}

// Len returns the number of messages in the queue, visible or not.
func (q *BadgerQueue) Len(_ context.Context) (int, error) {
	n := 0
	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := q.msgPrefix()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, domain.Wrap(domain.ErrStore, err, "queue length")
	}
	return n, nil
}

// Purge removes every message in the queue.
func (q *BadgerQueue) Purge(_ context.Context) error {
	prefix := []byte(fmt.Sprintf("queue:%s:", q.name))
	var keys [][]byte
	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return domain.Wrap(domain.ErrStore, err, "purge queue")
	}
	wb := q.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return domain.Wrap(domain.ErrStore, err, "purge queue")
		}
	}
	if err := wb.Flush(); err != nil {
		return domain.Wrap(domain.ErrStore, err, "purge queue")
	}
	return nil
}

func (q *BadgerQueue) delete(id string) error {
	err := q.db.Update(func(txn *badger.Txn) error {
		sm, err := q.get(txn, id)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(q.indexKey(sm.VisibleAt, id)); err != nil {
			return err
		}
		return txn.Delete(q.msgKey(id))
	})
	if err != nil {
		return domain.Wrap(domain.ErrStore, err, "ack")
	}
	return nil
}

func (q *BadgerQueue) get(txn *badger.Txn, id string) (storedMessage, error) {
	var sm storedMessage
	item, err := txn.Get(q.msgKey(id))
	if err != nil {
		return sm, err
	}
	err = item.Value(func(val []byte) error { return json.Unmarshal(val, &sm) })
	return sm, err
}

func (q *BadgerQueue) msgPrefix() []byte {
	return []byte(fmt.Sprintf("queue:%s:msg:", q.name))
}

func (q *BadgerQueue) msgKey(id string) []byte {
	return append(q.msgPrefix(), id...)
}

func (q *BadgerQueue) indexPrefix() []byte {
	return []byte(fmt.Sprintf("queue:%s:index:", q.name))
}

// indexKey zero-pads the timestamp so lexical order is visibility order.
func (q *BadgerQueue) indexKey(visibleAt time.Time, id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:index:%020d:%s", q.name, visibleAt.UnixNano(), id))
}

func (q *BadgerQueue) parseIndexKey(key []byte) (time.Time, string, error) {
	suffix, ok := bytes.CutPrefix(key, q.indexPrefix())
	if !ok || len(suffix) < 22 || suffix[20] != ':' {
		return time.Time{}, "", fmt.Errorf("invalid index key %q", key)
	}
	ts, err := strconv.ParseInt(string(suffix[:20]), 10, 64)
	if err != nil {
		return time.Time{}, "", err
	}
	return time.Unix(0, ts), string(suffix[21:]), nil
}
