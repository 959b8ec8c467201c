package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/Temikus/esque/internal/domain"
	"github.com/twmb/franz-go/pkg/kgo"
)

// PartitionConsumer consumes one partition of one topic over a dedicated
// connection in direct-assignment mode. No consumer group is joined and no
// offsets are ever committed, so scans never interfere with existing group
// state. The end offset is captured when the consumer is opened; records
// written after that are not observed.
type PartitionConsumer struct {
	conn      *kgo.Client
	topic     string
	partition int32
	next      int64
	end       int64
}

// ConsumeOne returns the next message from the partition. It returns
// ErrEndOfPartition once the captured end offset has been reached and
// ErrEmptyPoll when no message arrived within the timeout.
func (pc *PartitionConsumer) ConsumeOne(ctx context.Context, timeout time.Duration) (domain.Message, error) {
	if pc.next >= pc.end {
		return domain.Message{}, domain.ErrEndOfPartition
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fetches := pc.conn.PollRecords(cctx, 1)
	if fetches.IsClientClosed() {
		return domain.Message{}, errors.New("partition consumer is closed")
	}

	var rec *kgo.Record
	fetches.EachRecord(func(r *kgo.Record) {
		if rec == nil {
			rec = r
		}
	})
	if rec == nil {
		for _, fe := range fetches.Errors() {
			if !errors.Is(fe.Err, context.DeadlineExceeded) && !errors.Is(fe.Err, context.Canceled) {
				return domain.Message{}, fe.Err
			}
		}
		return domain.Message{}, domain.ErrEmptyPoll
	}

	pc.next = rec.Offset + 1
	return domain.Message{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Timestamp: rec.Timestamp,
		Key:       rec.Key,
		Value:     rec.Value,
	}, nil
}

// Close releases the underlying connection.
func (pc *PartitionConsumer) Close() {
	pc.conn.Close()
}
