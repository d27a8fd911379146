package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"

	"github.com/hazz-dev/depprobe/internal/config"
	"github.com/hazz-dev/depprobe/internal/health"
)

const (
	// DefaultServiceBusTimeout bounds a schedule/cancel round trip when the
	// caller's context has no deadline.
	DefaultServiceBusTimeout = 10 * time.Second

	queueHealthMessage = "Queue Health Check"
	topicHealthMessage = "Topic Health Check"

	// scheduleAhead keeps the test message far enough in the future that it
	// is always cancelled before delivery.
	scheduleAhead = 24 * time.Hour
)

// MessageScheduler is the part of a Service Bus sender the probes use.
// *azservicebus.Sender satisfies it.
type MessageScheduler interface {
	ScheduleMessages(ctx context.Context, messages []*azservicebus.Message, scheduledEnqueueTime time.Time, options *azservicebus.ScheduleMessagesOptions) ([]int64, error)
	CancelScheduledMessages(ctx context.Context, sequenceNumbers []int64, options *azservicebus.CancelScheduledMessagesOptions) error
}

type serviceBusChecker struct {
	sender MessageScheduler
	body   string
	now    func() time.Time
}

// NewServiceBusQueue returns a probe that schedules a message on queue and
// cancels it again.
func NewServiceBusQueue(sender MessageScheduler, namespace, queue string, logger *slog.Logger) health.Probe {
	return newServiceBusProbe(sender, entityPath(namespace, queue), queueHealthMessage, logger)
}

// NewServiceBusTopic returns a probe that schedules a message on topic and
// cancels it again.
func NewServiceBusTopic(sender MessageScheduler, namespace, topic string, logger *slog.Logger) health.Probe {
	return newServiceBusProbe(sender, entityPath(namespace, topic), topicHealthMessage, logger)
}

func newServiceBusProbe(sender MessageScheduler, resource, body string, logger *slog.Logger) *probe {
	sc := &serviceBusChecker{sender: sender, body: body, now: time.Now}
	return newProbe(resource, logger, sc.attempt)
}

func entityPath(namespace, entity string) string {
	if namespace == "" {
		return entity
	}
	return namespace + "/" + entity
}

// namespaceFromConnectionString returns the namespace name from the Endpoint
// of a Service Bus connection string, e.g. "orders" for
// "Endpoint=sb://orders.servicebus.windows.net/;...". It returns "" when
// there is no usable endpoint.
func namespaceFromConnectionString(connectionString string) string {
	for _, part := range strings.Split(connectionString, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "Endpoint") {
			continue
		}
		u, err := url.Parse(strings.TrimSpace(value))
		if err != nil || u.Hostname() == "" {
			return ""
		}
		name, _, _ := strings.Cut(u.Hostname(), ".")
		return name
	}
	return ""
}

func (c *serviceBusChecker) attempt(ctx context.Context) health.Outcome {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultServiceBusTimeout)
		defer cancel()
	}

	id := uuid.NewString()
	msg := &azservicebus.Message{
		MessageID: &id,
		Body:      []byte(c.body),
	}
	seqs, err := c.sender.ScheduleMessages(ctx, []*azservicebus.Message{msg}, c.now().Add(scheduleAhead), nil)
	if err != nil {
		return health.Failed(fmt.Errorf("scheduling health message: %w", err))
	}
	if err := c.sender.CancelScheduledMessages(ctx, seqs, nil); err != nil {
		return health.Failed(fmt.Errorf("cancelling health message: %w", err))
	}
	return health.Available()
}

func newServiceBusChecker(c config.Check, logger *slog.Logger) (health.Probe, error) {
	client, err := azservicebus.NewClientFromConnectionString(c.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("creating service bus client: %w", err)
	}

	entity, body := c.Queue, queueHealthMessage
	if c.Type == config.TypeServiceBusTopic {
		entity, body = c.Topic, topicHealthMessage
	}

	sender, err := client.NewSender(entity, nil)
	if err != nil {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("creating service bus sender for %q: %w", entity, err)
	}

	namespace := c.Namespace
	if namespace == "" {
		namespace = namespaceFromConnectionString(c.ConnectionString)
	}
	p := newServiceBusProbe(sender, entityPath(namespace, entity), body, logger)
	p.close = func() error {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultServiceBusTimeout)
		defer cancel()
		return errors.Join(sender.Close(ctx), client.Close(ctx))
	}
	return p, nil
}
