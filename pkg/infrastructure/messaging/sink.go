package messaging

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/senharo1981/tdr-store/pkg/domain/model"
)

// LogSink records the outgoing chat link; the client opens it itself.
type LogSink struct {
	logger log.FieldLogger
}

func NewLogSink(logger log.FieldLogger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(_ context.Context, order model.Order) error {
	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"destination": order.Destination,
		"link":        order.Link,
	}).Info("order ready for messaging channel")
	return nil
}

// WriterSink prints the message and the link, for terminal use.
type WriterSink struct {
	w io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Send(ctx context.Context, order model.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(s.w, "%s\n\nOpen: %s\n", order.Message, order.Link)
	return errors.Wrap(err, "write order")
}
