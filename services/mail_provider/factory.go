package mail_provider

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"

	"github.com/wahajws/amast-crm-sub001/config"
	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/internal/enum"
	mailerrors "github.com/wahajws/amast-crm-sub001/internal/errors"
	"github.com/wahajws/amast-crm-sub001/internal/logger"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/services/mail_provider/gmail"
	"github.com/wahajws/amast-crm-sub001/services/mail_provider/imap"
)

type dialFunc func(ctx context.Context, log logger.Logger, account *models.MailAccount) (interfaces.MailProvider, error)

type factory struct {
	log      logger.Logger
	cfg      *config.GmailConfig
	accounts interfaces.MailAccountRepository
	breaker  *gobreaker.CircuitBreaker
	dialIMAP dialFunc
}

// NewMailProviderFactory opens a provider connection per user from the
// stored mail account. All Gmail clients share one circuit breaker.
func NewMailProviderFactory(log logger.Logger, cfg *config.GmailConfig, accounts interfaces.MailAccountRepository) interfaces.MailProviderFactory {
	return &factory{
		log:      log,
		cfg:      cfg,
		accounts: accounts,
		breaker:  gmail.NewBreaker(log, cfg),
		dialIMAP: imap.Dial,
	}
}

func (f *factory) ForUser(ctx context.Context, userID string) (interfaces.MailProvider, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailProviderFactory.ForUser")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagUserId, userID)

	account, err := f.accounts.GetByUserID(ctx, userID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to load mail account")
	}
	if account == nil {
		return nil, errors.Wrapf(mailerrors.ErrMailAccountNotFound, "user %s", userID)
	}
	span.SetTag("provider", account.Provider.String())

	switch account.Provider {
	case enum.MailProviderGmail:
		return gmail.NewClient(ctx, f.log, f.cfg, account, f.breaker, f.tokenUpdater(ctx, userID))
	case enum.MailProviderIMAP:
		provider, err := f.dialIMAP(ctx, f.log, account)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		return provider, nil
	default:
		return nil, errors.Wrapf(mailerrors.ErrUnsupportedProvider, "provider %q", account.Provider)
	}
}

// tokenUpdater persists refreshed tokens outside the request's cancellation
// so a finished sync does not lose a fresh token.
func (f *factory) tokenUpdater(ctx context.Context, userID string) gmail.TokenUpdateFunc {
	persistCtx := context.WithoutCancel(ctx)
	return func(token *oauth2.Token) error {
		expiry := token.Expiry
		if err := f.accounts.UpdateTokens(persistCtx, userID, token.AccessToken, token.RefreshToken, &expiry); err != nil {
			f.log.Errorf("failed to persist refreshed token for user %s: %v", userID, err)
			return err
		}
		return nil
	}
}
