package aggregator

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/interfaces"
	mailerrors "github.com/wahajws/amast-crm-sub001/internal/errors"
	"github.com/wahajws/amast-crm-sub001/internal/logger"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/repository"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
	"github.com/wahajws/amast-crm-sub001/services/domain_matcher"
)

type aggregatorService struct {
	log       logger.Logger
	emails    interfaces.EmailRepository
	directory interfaces.Directory
	matcher   *domain_matcher.Matcher
}

func NewAggregatorService(log logger.Logger, repos *repository.Repositories, matcher *domain_matcher.Matcher) interfaces.AggregatorService {
	return &aggregatorService{
		log:       log,
		emails:    repos.EmailRepository,
		directory: repos.Directory,
		matcher:   matcher,
	}
}

// senderGroup counts a user's emails per sender address so each distinct
// address is matched once per account.
type senderGroup struct {
	address string
	count   int
	last    *time.Time
}

// GetAccountsWithEmailCounts ranks the visible accounts by how many of the
// user's emails came from a domain matching the account name.
func (s *aggregatorService) GetAccountsWithEmailCounts(ctx context.Context, userID string, scope dto.AccountScope, includeZero bool) ([]dto.AccountEmailCount, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "AggregatorService.GetAccountsWithEmailCounts")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("include-zero", includeZero)
	span.SetTag("all-accounts", scope.AllAccounts)

	if userID == "" {
		return nil, mailerrors.ErrUserIdMissing
	}

	accounts, err := s.directory.FindAccounts(ctx, scope.Filter())
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	emails, err := s.emails.ListByUser(ctx, userID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	senders := groupBySender(emails)

	result := make([]dto.AccountEmailCount, 0, len(accounts))
	dropped := 0
	for _, account := range accounts {
		if domain_matcher.NormalizeAccountName(account.Name) == "" {
			dropped++
			continue
		}
		count := s.countForAccount(account, senders)
		if count.EmailCount == 0 && !includeZero {
			continue
		}
		result = append(result, count)
	}
	if dropped > 0 {
		s.log.Debugf("dropped %d accounts without a matchable name", dropped)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].EmailCount != result[j].EmailCount {
			return result[i].EmailCount > result[j].EmailCount
		}
		return strings.ToLower(result[i].AccountName) < strings.ToLower(result[j].AccountName)
	})

	span.SetTag("accounts", len(result))
	return result, nil
}

func (s *aggregatorService) countForAccount(account *models.Account, senders []*senderGroup) dto.AccountEmailCount {
	count := dto.AccountEmailCount{
		AccountID:   account.ID,
		AccountName: account.Name,
		Website:     account.Website,
	}
	for _, sender := range senders {
		if !s.matcher.MatchesAccount(sender.address, account.Name) {
			continue
		}
		count.EmailCount += sender.count
		if sender.last != nil && (count.LastEmailAt == nil || sender.last.After(*count.LastEmailAt)) {
			last := *sender.last
			count.LastEmailAt = &last
		}
	}
	return count
}

func groupBySender(emails []*models.Email) []*senderGroup {
	byAddress := make(map[string]*senderGroup)
	var ordered []*senderGroup
	for _, email := range emails {
		address := strings.ToLower(strings.TrimSpace(email.FromAddress))
		if utils.ExtractDomainFromEmail(address) == "" {
			continue
		}
		sender, ok := byAddress[address]
		if !ok {
			sender = &senderGroup{address: address}
			byAddress[address] = sender
			ordered = append(ordered, sender)
		}
		sender.count++
		if at := emailTime(email); at != nil && (sender.last == nil || at.After(*sender.last)) {
			sender.last = at
		}
	}
	return ordered
}

func emailTime(email *models.Email) *time.Time {
	if email.ReceivedAt != nil {
		return email.ReceivedAt
	}
	return email.SentAt
}
