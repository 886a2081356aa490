package events

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/internal/enum"
	"github.com/wahajws/amast-crm-sub001/internal/logger"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

const (
	ExchangeCRMEvents  = "crm-events"
	ExchangeDeadLetter = "dead-letter"

	QueueCRMEvents = "crm-events-mailsync"
	DLQCRMEvents   = QueueCRMEvents + "-dlq"

	RoutingKeyLabelSyncCompleted    = "mailsync.label-sync.completed"
	RoutingKeyCampaignStatusChanged = "mailsync.campaign.status-changed"
	RoutingKeyDeadLetter            = "dead-letter"

	DefaultMessageTTL          = 240 * time.Hour // after TTL message moves to DLQ
	DefaultMaxRetries          = 3
	DefaultPublishTimeout      = 5 * time.Second
	DefaultReconnectBackoff    = time.Second
	DefaultMaxReconnectBackoff = 30 * time.Second
)

type PublisherConfig struct {
	MessageTTL          time.Duration
	MaxRetries          int
	PublishTimeout      time.Duration
	ReconnectBackoff    time.Duration
	MaxReconnectBackoff time.Duration
}

func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		MessageTTL:          DefaultMessageTTL,
		MaxRetries:          DefaultMaxRetries,
		PublishTimeout:      DefaultPublishTimeout,
		ReconnectBackoff:    DefaultReconnectBackoff,
		MaxReconnectBackoff: DefaultMaxReconnectBackoff,
	}
}

type RabbitMQPublisher struct {
	connection      *amqp091.Connection
	connectionMutex sync.Mutex
	publishChannel  *amqp091.Channel
	publishMutex    sync.Mutex
	url             string
	appSource       string
	logger          logger.Logger
	confirms        chan amqp091.Confirmation
	config          PublisherConfig
	closed          chan struct{}
	closeOnce       sync.Once
}

func NewRabbitMQPublisher(rabbitmqURL, appSource string, logger logger.Logger, config *PublisherConfig) (*RabbitMQPublisher, error) {
	if config == nil {
		config = DefaultPublisherConfig()
	}

	publisher := &RabbitMQPublisher{
		url:       rabbitmqURL,
		appSource: appSource,
		logger:    logger,
		config:    *config,
		closed:    make(chan struct{}),
	}

	if err := publisher.connect(); err != nil {
		return nil, err
	}
	go publisher.handleReconnection()

	return publisher, nil
}

func (r *RabbitMQPublisher) PublishLabelSyncCompleted(ctx context.Context, event dto.LabelSyncCompleted) error {
	return r.publishEvent(ctx, event.Result.SyncLogID, enum.SYNC_LOG, event, RoutingKeyLabelSyncCompleted)
}

func (r *RabbitMQPublisher) PublishCampaignStatusChanged(ctx context.Context, event dto.CampaignStatusChanged) error {
	return r.publishEvent(ctx, event.CampaignID, enum.EMAIL_CAMPAIGN, event, RoutingKeyCampaignStatusChanged)
}

func (r *RabbitMQPublisher) publishEvent(ctx context.Context, entityId string, entityType enum.EntityType, message interface{}, routingKey string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RabbitMQPublisher.PublishEvent")
	defer span.Finish()
	tracing.TagComponentPublisher(span)
	tracing.TagEntity(span, entityId)
	span.SetTag("routing-key", routingKey)

	event := NewEvent(ctx, span, r.appSource, entityId, entityType, message)
	tracing.LogObjectAsJson(span, "event", event)

	if err := r.publishMessage(ctx, event, routingKey); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// NewEvent wraps a payload in the envelope shared by all published events.
func NewEvent(ctx context.Context, span opentracing.Span, appSource, entityId string, entityType enum.EntityType, message interface{}) dto.Event {
	messageType := reflect.TypeOf(message)
	if messageType.Kind() == reflect.Ptr {
		messageType = messageType.Elem()
	}

	return dto.Event{
		Event: dto.EventDetails{
			Id:         utils.GenerateNanoIDWithPrefix("event", 21),
			EntityId:   entityId,
			EntityType: entityType,
			EventType:  messageType.Name(),
			Data:       message,
		},
		Metadata: dto.EventMetadata{
			UberTraceId: tracing.GetUberTraceId(span),
			AppSource:   appSource,
			UserId:      utils.GetUserIdFromContext(ctx),
			UserEmail:   utils.GetUserEmailFromContext(ctx),
			Timestamp:   utils.Now().Format(time.RFC3339),
		},
	}
}

func (r *RabbitMQPublisher) publishMessage(ctx context.Context, message interface{}, routingKey string) error {
	body, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	var lastErr error
	for attempt := 0; attempt < r.config.MaxRetries; attempt++ {
		lastErr = r.publishWithConfirm(ctx, body, routingKey)
		if lastErr == nil {
			return nil
		}

		r.logger.Warnf("publish attempt %d on %s failed: %v", attempt+1, routingKey, lastErr)
		if attempt < r.config.MaxRetries-1 {
			select {
			case <-time.After(time.Millisecond * 100 * time.Duration(attempt+1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return errors.Wrapf(lastErr, "failed to publish on %s after %d attempts", routingKey, r.config.MaxRetries)
}

func (r *RabbitMQPublisher) publishWithConfirm(ctx context.Context, body []byte, routingKey string) error {
	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := r.ensureConnectionAndChannel(); err != nil {
		return err
	}

	err := r.publishChannel.PublishWithContext(ctx,
		ExchangeCRMEvents,
		routingKey,
		true,  // mandatory
		false, // immediate
		amqp091.Publishing{
			DeliveryMode: amqp091.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    utils.Now(),
		})
	if err != nil {
		return errors.Wrap(err, "failed to publish message")
	}

	select {
	case confirm := <-r.confirms:
		if !confirm.Ack {
			return errors.New("message was not confirmed by server")
		}
	case <-time.After(r.config.PublishTimeout):
		return errors.New("publish confirmation timeout")
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (r *RabbitMQPublisher) connect() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	var err error
	r.connection, err = amqp091.Dial(r.url)
	if err != nil {
		return errors.Wrap(err, "failed to connect to RabbitMQ")
	}

	if err = r.setupTopology(); err != nil {
		return errors.Wrap(err, "failed to setup exchanges and queues")
	}

	if err = r.setupPublishChannel(); err != nil {
		return errors.Wrap(err, "failed to setup publish channel")
	}

	return nil
}

func (r *RabbitMQPublisher) setupPublishChannel() error {
	channel, err := r.connection.Channel()
	if err != nil {
		return errors.Wrap(err, "failed to open publish channel")
	}

	if err = channel.Confirm(false); err != nil {
		channel.Close()
		return errors.Wrap(err, "failed to enable publisher confirms")
	}

	r.confirms = channel.NotifyPublish(make(chan amqp091.Confirmation, 1))
	r.publishChannel = channel
	return nil
}

func (r *RabbitMQPublisher) ensureConnectionAndChannel() error {
	if r.connection == nil || r.connection.IsClosed() {
		if err := r.connect(); err != nil {
			return errors.Wrap(err, "failed to establish connection")
		}
	}

	if r.publishChannel == nil || r.publishChannel.IsClosed() {
		if err := r.setupPublishChannel(); err != nil {
			return errors.Wrap(err, "failed to establish channel")
		}
	}

	return nil
}

func (r *RabbitMQPublisher) handleReconnection() {
	backoff := r.config.ReconnectBackoff

	for {
		r.connectionMutex.Lock()
		notifyClose := r.connection.NotifyClose(make(chan *amqp091.Error, 1))
		r.connectionMutex.Unlock()

		select {
		case <-r.closed:
			return
		case err := <-notifyClose:
			if err == nil {
				// graceful close
				return
			}
			r.logger.Warnf("RabbitMQ connection closed: %v, attempting to reconnect", err)
		}

		for {
			err := r.connect()
			if err == nil {
				r.logger.Info("reconnected to RabbitMQ")
				break
			}

			r.logger.Errorf("failed to reconnect: %v, retrying in %v", err, backoff)
			select {
			case <-r.closed:
				return
			case <-time.After(backoff):
			}

			backoff *= 2
			if backoff > r.config.MaxReconnectBackoff {
				backoff = r.config.MaxReconnectBackoff
			}
		}

		backoff = r.config.ReconnectBackoff
	}
}

// setupTopology declares the topic exchange, the dead letter exchange and
// the service queue with its DLQ.
func (r *RabbitMQPublisher) setupTopology() error {
	channel, err := r.connection.Channel()
	if err != nil {
		return errors.Wrap(err, "failed to open channel for exchange/queue setup")
	}
	defer channel.Close()

	err = channel.ExchangeDeclare(
		ExchangeDeadLetter,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return errors.Wrap(err, "failed to declare dead letter exchange")
	}

	err = channel.ExchangeDeclare(ExchangeCRMEvents, "topic", true, false, false, false, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to declare exchange %s", ExchangeCRMEvents)
	}

	if _, err = channel.QueueDeclare(DLQCRMEvents, true, false, false, false, nil); err != nil {
		return errors.Wrapf(err, "failed to declare DLQ %s", DLQCRMEvents)
	}
	if err = channel.QueueBind(DLQCRMEvents, RoutingKeyDeadLetter, ExchangeDeadLetter, false, nil); err != nil {
		return errors.Wrapf(err, "failed to bind DLQ %s", DLQCRMEvents)
	}

	_, err = channel.QueueDeclare(QueueCRMEvents, true, false, false, false, amqp091.Table{
		"x-dead-letter-exchange":    ExchangeDeadLetter,
		"x-dead-letter-routing-key": RoutingKeyDeadLetter,
		"x-message-ttl":             r.config.MessageTTL.Milliseconds(),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to declare queue %s", QueueCRMEvents)
	}
	if err = channel.QueueBind(QueueCRMEvents, "mailsync.#", ExchangeCRMEvents, false, nil); err != nil {
		return errors.Wrapf(err, "failed to bind queue %s to exchange %s", QueueCRMEvents, ExchangeCRMEvents)
	}

	return nil
}

// Close gracefully shuts down the publisher
func (r *RabbitMQPublisher) Close() error {
	r.closeOnce.Do(func() { close(r.closed) })

	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	var err error
	if r.publishChannel != nil {
		if err = r.publishChannel.Close(); err != nil {
			r.logger.Errorf("error closing publish channel: %v", err)
		}
	}

	if r.connection != nil {
		if closeErr := r.connection.Close(); closeErr != nil {
			r.logger.Errorf("error closing connection: %v", closeErr)
			if err == nil {
				err = closeErr
			}
		}
	}

	return err
}
