package entity_resolver

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
	"github.com/wahajws/amast-crm-sub001/services/domain_matcher"
)

type entityResolver struct {
	directory interfaces.Directory
	matcher   *domain_matcher.Matcher
}

func NewEntityResolver(directory interfaces.Directory, matcher *domain_matcher.Matcher) interfaces.EntityResolver {
	return &entityResolver{
		directory: directory,
		matcher:   matcher,
	}
}

// Resolve links the email to at most one contact and one account. Label
// evidence outranks sender evidence; the first tier that matches wins.
func (r *entityResolver) Resolve(ctx context.Context, email *models.Email, userID, labelName string) (*dto.Resolution, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EntityResolver.Resolve")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("label.name", labelName)

	resolution, err := r.resolve(ctx, email, userID, labelName)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	email.ContactID = resolution.ContactID
	email.AccountID = resolution.AccountID
	span.SetTag("match.source", string(resolution.Source))

	return resolution, nil
}

func (r *entityResolver) resolve(ctx context.Context, email *models.Email, userID, labelName string) (*dto.Resolution, error) {
	var labelAccount *models.Account

	if labelName != "" {
		account, err := r.directory.FindAccountByFuzzyName(ctx, labelName, userID)
		if err != nil {
			return nil, errors.Wrap(err, "account lookup by label")
		}
		labelAccount = account

		contact, err := r.directory.FindContactByFuzzyName(ctx, labelName, userID)
		if err != nil {
			return nil, errors.Wrap(err, "contact lookup by label")
		}
		if contact != nil {
			accountID := contact.AccountID
			if accountID == nil && labelAccount != nil {
				accountID = &labelAccount.ID
			}
			return &dto.Resolution{
				ContactID: &contact.ID,
				AccountID: accountID,
				Source:    dto.MatchLabelContact,
			}, nil
		}

		if labelAccount != nil {
			return &dto.Resolution{
				AccountID: &labelAccount.ID,
				Source:    dto.MatchLabelAccount,
			}, nil
		}
	}

	if email.FromAddress == "" {
		return &dto.Resolution{Source: dto.MatchNone}, nil
	}

	contact, err := r.directory.FindContactByExactEmail(ctx, email.FromAddress, userID)
	if err != nil {
		return nil, errors.Wrap(err, "contact lookup by sender")
	}
	if contact != nil {
		return &dto.Resolution{
			ContactID: &contact.ID,
			AccountID: contact.AccountID,
			Source:    dto.MatchSenderEmail,
		}, nil
	}

	domain := utils.ExtractDomainFromEmail(email.FromAddress)
	if domain == "" {
		return &dto.Resolution{Source: dto.MatchNone}, nil
	}

	accounts, err := r.directory.FindAccountsForUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "account lookup by website")
	}
	for _, account := range accounts {
		if r.matcher.WebsiteMatchesDomain(account.Website, domain) {
			return &dto.Resolution{
				AccountID: &account.ID,
				Source:    dto.MatchAccountWebsite,
			}, nil
		}
	}

	return &dto.Resolution{Source: dto.MatchNone}, nil
}
