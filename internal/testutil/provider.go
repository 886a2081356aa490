package testutil

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/interfaces"
)

// MailProvider serves messages for a label in fixed-size pages. Page
// tokens are the decimal offset of the next page.
type MailProvider struct {
	mu sync.Mutex

	Labels      []dto.ProviderLabel
	LabelOrder  map[string][]string
	Messages    map[string]*dto.ProviderMessage
	Attachments map[string][]byte

	ListErr       error
	GetErr        map[string]error
	AttachmentErr map[string]error

	GetCalls  map[string]int
	ListCalls int
}

func NewMailProvider() *MailProvider {
	return &MailProvider{
		LabelOrder:    map[string][]string{},
		Messages:      map[string]*dto.ProviderMessage{},
		Attachments:   map[string][]byte{},
		GetErr:        map[string]error{},
		AttachmentErr: map[string]error{},
		GetCalls:      map[string]int{},
	}
}

// AddMessage registers msg under each of its label ids.
func (p *MailProvider) AddMessage(msg *dto.ProviderMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages[msg.ID] = msg
	for _, labelID := range msg.LabelIDs {
		p.LabelOrder[labelID] = append(p.LabelOrder[labelID], msg.ID)
	}
}

func (p *MailProvider) ListLabels(ctx context.Context) ([]dto.ProviderLabel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ListErr != nil {
		return nil, p.ListErr
	}
	return p.Labels, nil
}

func (p *MailProvider) ListMessages(ctx context.Context, labelID string, pageSize int64, pageToken string) (*dto.MessagePage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ListCalls++
	if p.ListErr != nil {
		return nil, p.ListErr
	}

	offset := 0
	if pageToken != "" {
		parsed, err := strconv.Atoi(pageToken)
		if err != nil {
			return nil, errors.Wrap(err, "bad page token")
		}
		offset = parsed
	}

	ids := p.LabelOrder[labelID]
	page := &dto.MessagePage{}
	end := offset + int(pageSize)
	if end > len(ids) {
		end = len(ids)
	}
	for _, id := range ids[offset:end] {
		page.Messages = append(page.Messages, dto.MessageRef{ID: id, ThreadID: p.Messages[id].ThreadID})
	}
	if end < len(ids) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func (p *MailProvider) GetMessage(ctx context.Context, messageID string) (*dto.ProviderMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GetCalls[messageID]++
	if err := p.GetErr[messageID]; err != nil {
		return nil, err
	}
	msg, ok := p.Messages[messageID]
	if !ok {
		return nil, errors.Errorf("message %s not found", messageID)
	}
	return msg, nil
}

func (p *MailProvider) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.AttachmentErr[attachmentID]; err != nil {
		return nil, err
	}
	data, ok := p.Attachments[attachmentID]
	if !ok {
		return nil, errors.Errorf("attachment %s not found", attachmentID)
	}
	return data, nil
}

func (p *MailProvider) Close() error {
	return nil
}

// MailProviderFactory hands out the same provider for every user, or Err.
type MailProviderFactory struct {
	Provider interfaces.MailProvider
	Err      error
}

func (f *MailProviderFactory) ForUser(ctx context.Context, userID string) (interfaces.MailProvider, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Provider, nil
}
