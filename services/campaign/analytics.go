package campaign

import (
	"context"
	"sort"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/internal/enum"
	mailerrors "github.com/wahajws/amast-crm-sub001/internal/errors"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

const (
	reasonPriority   = "high priority"
	reasonStale      = "pending for too long"
	reasonNoResponse = "sent without communication started"
)

func (s *campaignService) GetAnalytics(ctx context.Context, ownerID string) (*dto.CampaignAnalytics, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CampaignService.GetAnalytics")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	campaigns, err := s.campaigns.ListByOwner(ctx, ownerID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	now := s.now()
	analytics := &dto.CampaignAnalytics{
		Total:      len(campaigns),
		ByStatus:   map[enum.CampaignStatus]int{},
		ByPriority: map[enum.CampaignPriority]int{},
	}
	for _, campaign := range campaigns {
		analytics.ByStatus[campaign.Status]++
		analytics.ByPriority[campaign.Priority]++
		if campaign.CommunicationStarted {
			analytics.CommunicationStarted++
		}
		if len(s.urgencyReasons(campaign, now)) > 0 {
			analytics.Urgent++
		}
	}

	withTemplate, err := s.directory.ListContactIDsWithTemplate(ctx, ownerID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if len(withTemplate) > 0 {
		withCampaign, err := s.campaigns.ListContactIDsWithCampaign(ctx, withTemplate)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		analytics.NotCreated = len(utils.Difference(withTemplate, withCampaign))
	}

	return analytics, nil
}

func (s *campaignService) GetUrgentRecommendations(ctx context.Context, ownerID string, limit int) ([]dto.CampaignRecommendation, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CampaignService.GetUrgentRecommendations")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("limit", limit)

	if limit < 0 || limit > maxRecommendationLimit {
		return nil, errors.Wrapf(mailerrors.ErrInvalidPagination, "limit must be between 1 and %d", maxRecommendationLimit)
	}
	if limit == 0 {
		limit = defaultRecommendationLimit
	}

	campaigns, err := s.campaigns.ListByOwner(ctx, ownerID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	now := s.now()
	recommendations := make([]dto.CampaignRecommendation, 0)
	for _, campaign := range campaigns {
		reasons := s.urgencyReasons(campaign, now)
		if len(reasons) == 0 {
			continue
		}
		recommendations = append(recommendations, dto.CampaignRecommendation{
			Campaign: campaign,
			Reasons:  reasons,
			Age:      now.Sub(campaign.CreatedAt),
		})
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		a, b := recommendations[i].Campaign, recommendations[j].Campaign
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	if len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}
	return recommendations, nil
}

func (s *campaignService) urgencyReasons(campaign *models.EmailCampaign, now time.Time) []string {
	var reasons []string
	if campaign.Priority == enum.PriorityHigh || campaign.Priority == enum.PriorityUrgent {
		reasons = append(reasons, reasonPriority)
	}
	if campaign.Status == enum.CampaignPending && now.Sub(campaign.CreatedAt) > s.staleWindow {
		reasons = append(reasons, reasonStale)
	}
	if (campaign.Status == enum.CampaignSent || campaign.Status == enum.CampaignOpened) && !campaign.CommunicationStarted {
		reasons = append(reasons, reasonNoResponse)
	}
	return reasons
}
