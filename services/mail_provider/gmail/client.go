package gmail

import (
	"context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/wahajws/amast-crm-sub001/config"
	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/interfaces"
	mailerrors "github.com/wahajws/amast-crm-sub001/internal/errors"
	"github.com/wahajws/amast-crm-sub001/internal/logger"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
)

const me = "me"

// TokenUpdateFunc persists a token the oauth2 library refreshed.
type TokenUpdateFunc func(token *oauth2.Token) error

type client struct {
	log     logger.Logger
	svc     *gmailv1.Service
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	userID  string
}

// NewBreaker returns the circuit breaker shared by all Gmail clients of the
// process. Client errors (4xx) never trip it.
func NewBreaker(log logger.Logger, cfg *config.GmailConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		IsSuccessful: func(err error) bool {
			var nce *nonCircuitError
			return err == nil || errors.As(err, &nce)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("circuit breaker %s: %s -> %s", name, from.String(), to.String())
		},
	})
}

// NewClient builds a Gmail provider for one mail account. Refreshed tokens
// are handed to onRefresh.
func NewClient(ctx context.Context, log logger.Logger, cfg *config.GmailConfig, account *models.MailAccount,
	breaker *gobreaker.CircuitBreaker, onRefresh TokenUpdateFunc) (interfaces.MailProvider, error) {

	token := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		TokenType:    "Bearer",
	}
	switch {
	case account.TokenExpiry != nil:
		token.Expiry = *account.TokenExpiry
	case account.RefreshToken != "":
		// unknown expiry: refresh on first use
		token.Expiry = time.Now()
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmailv1.GmailReadonlyScope},
	}
	// the client outlives the setup context it is built with
	baseCtx := context.WithoutCancel(ctx)
	source := newTokenSource(baseCtx, log, oauthConfig, token, onRefresh)

	svc, err := gmailv1.NewService(baseCtx, option.WithHTTPClient(oauth2.NewClient(baseCtx, source)))
	if err != nil {
		return nil, errors.Wrap(err, "unable to create Gmail service")
	}

	return &client{
		log:     log,
		svc:     svc,
		limiter: newLimiter(cfg),
		breaker: breaker,
		userID:  account.UserID,
	}, nil
}

func newLimiter(cfg *config.GmailConfig) *rate.Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
}

func (c *client) ListLabels(ctx context.Context) ([]dto.ProviderLabel, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailClient.ListLabels")
	defer span.Finish()
	tracing.TagComponentMailProvider(span)

	var resp *gmailv1.ListLabelsResponse
	err := c.execute(ctx, "ListLabels", func() error {
		var apiErr error
		resp, apiErr = c.svc.Users.Labels.List(me).Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	labels := make([]dto.ProviderLabel, 0, len(resp.Labels))
	for _, label := range resp.Labels {
		labels = append(labels, convertLabel(label))
	}
	return labels, nil
}

func (c *client) ListMessages(ctx context.Context, labelID string, pageSize int64, pageToken string) (*dto.MessagePage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailClient.ListMessages")
	defer span.Finish()
	tracing.TagComponentMailProvider(span)
	tracing.TagLabel(span, labelID)

	var resp *gmailv1.ListMessagesResponse
	err := c.execute(ctx, "ListMessages", func() error {
		call := c.svc.Users.Messages.List(me).LabelIds(labelID).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		var apiErr error
		resp, apiErr = call.Do()
		return apiErr
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	page := &dto.MessagePage{NextPageToken: resp.NextPageToken}
	for _, msg := range resp.Messages {
		page.Messages = append(page.Messages, dto.MessageRef{ID: msg.Id, ThreadID: msg.ThreadId})
	}
	return page, nil
}

func (c *client) GetMessage(ctx context.Context, messageID string) (*dto.ProviderMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailClient.GetMessage")
	defer span.Finish()
	tracing.TagComponentMailProvider(span)
	tracing.TagEntity(span, messageID)

	var msg *gmailv1.Message
	err := c.execute(ctx, "GetMessage", func() error {
		var apiErr error
		msg, apiErr = c.svc.Users.Messages.Get(me, messageID).Format("full").Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	converted, err := convertMessage(msg)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return converted, nil
}

func (c *client) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GmailClient.GetAttachment")
	defer span.Finish()
	tracing.TagComponentMailProvider(span)
	tracing.TagEntity(span, messageID)

	var body *gmailv1.MessagePartBody
	err := c.execute(ctx, "GetAttachment", func() error {
		var apiErr error
		body, apiErr = c.svc.Users.Messages.Attachments.Get(me, messageID, attachmentID).Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	data, err := decodeBase64(body.Data)
	if err != nil {
		err = errors.Wrapf(mailerrors.ErrMalformedMessage, "attachment %s: %v", attachmentID, err)
		tracing.TraceErr(span, err)
		return nil, err
	}
	return data, nil
}

func (c *client) Close() error {
	return nil
}

// execute paces the call with the rate limiter and runs it through the
// circuit breaker.
func (c *client) execute(ctx context.Context, operation string, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return classifyError(operation, err)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) {
				switch apiErr.Code {
				case 400, 401, 403, 404:
					return nil, &nonCircuitError{err: err}
				}
			}
			return nil, err
		}
		return nil, nil
	})

	var nce *nonCircuitError
	if errors.As(err, &nce) {
		err = nce.err
	}
	if err != nil {
		c.log.Warnf("gmail %s failed for user %s (breaker %s): %v", operation, c.userID, c.breaker.State().String(), err)
		return classifyError(operation, err)
	}
	return nil
}

func classifyError(operation string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Wrapf(mailerrors.ErrProviderTransient, "%s: %v", operation, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrapf(mailerrors.ErrConnectionTimeout, "%s: %v", operation, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == 429 || apiErr.Code >= 500) {
		return errors.Wrapf(mailerrors.ErrProviderTransient, "%s: %v", operation, err)
	}
	return errors.Wrap(err, operation)
}

// nonCircuitError wraps errors that must not trip the circuit breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string {
	return e.err.Error()
}

// newTokenSource refreshes through oauthConfig on a context that is never
// cancelled and reports every new access token to onRefresh.
func newTokenSource(ctx context.Context, log logger.Logger, oauthConfig *oauth2.Config, token *oauth2.Token, onRefresh TokenUpdateFunc) *notifyTokenSource {
	ctx = context.WithoutCancel(ctx)
	return &notifyTokenSource{
		src:      oauthConfig.TokenSource(ctx, token),
		current:  token,
		callback: onRefresh,
		log:      log,
	}
}

type notifyTokenSource struct {
	mu       sync.Mutex
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
	log      logger.Logger
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			s.log.Errorf("failed to store refreshed token: %v", err)
		}
	}
	return t, nil
}
