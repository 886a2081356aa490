package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/wahajws/amast-crm-sub001/internal/enum"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

type EmailRepository struct {
	mu        sync.Mutex
	Emails    []*models.Email
	CreateErr map[string]error // keyed by provider message id
	// InsertedConcurrently holds provider message ids another writer stores
	// between the existence check and the insert.
	InsertedConcurrently map[string]bool
}

func NewEmailRepository() *EmailRepository {
	return &EmailRepository{CreateErr: map[string]error{}, InsertedConcurrently: map[string]bool{}}
}

func (r *EmailRepository) Create(ctx context.Context, email *models.Email) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.CreateErr[email.ProviderMessageID]; err != nil {
		return false, err
	}
	if email.ID == "" {
		email.ID = utils.GenerateNanoIDWithPrefix("email", 24)
	}
	if r.InsertedConcurrently[email.ProviderMessageID] {
		return false, nil
	}
	for _, existing := range r.Emails {
		if existing.UserID == email.UserID && existing.ProviderMessageID == email.ProviderMessageID {
			return false, nil
		}
	}
	email.CreatedAt = utils.Now()
	r.Emails = append(r.Emails, email)
	return true, nil
}

func (r *EmailRepository) find(userID, id string) *models.Email {
	for _, email := range r.Emails {
		if email.ID == id && email.UserID == userID && !email.DeletedAt.Valid {
			return email
		}
	}
	return nil
}

func (r *EmailRepository) GetByID(ctx context.Context, userID, id string) (*models.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(userID, id), nil
}

func (r *EmailRepository) ExistsByProviderMessageID(ctx context.Context, userID, providerMessageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, email := range r.Emails {
		if email.UserID == userID && email.ProviderMessageID == providerMessageID {
			return true, nil
		}
	}
	return false, nil
}

func (r *EmailRepository) ListByUser(ctx context.Context, userID string) ([]*models.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Email
	for _, email := range r.Emails {
		if email.UserID == userID && !email.DeletedAt.Valid {
			result = append(result, email)
		}
	}
	return result, nil
}

func (r *EmailRepository) ListUnlinked(ctx context.Context, userID string, limit, offset int) ([]*models.Email, int64, error) {
	all, _ := r.ListByUser(ctx, userID)
	var unlinked []*models.Email
	for _, email := range all {
		if !email.IsLinked() {
			unlinked = append(unlinked, email)
		}
	}
	total := int64(len(unlinked))
	if offset >= len(unlinked) {
		return []*models.Email{}, total, nil
	}
	end := offset + limit
	if end > len(unlinked) {
		end = len(unlinked)
	}
	return unlinked[offset:end], total, nil
}

func (r *EmailRepository) SetRead(ctx context.Context, userID, id string, isRead bool) error {
	return r.mutate(userID, id, func(e *models.Email) { e.IsRead = isRead })
}

func (r *EmailRepository) SetStarred(ctx context.Context, userID, id string, isStarred bool) error {
	return r.mutate(userID, id, func(e *models.Email) { e.IsStarred = isStarred })
}

func (r *EmailRepository) SetLinks(ctx context.Context, userID, id string, contactID, accountID *string) error {
	return r.mutate(userID, id, func(e *models.Email) {
		e.ContactID = contactID
		e.AccountID = accountID
	})
}

func (r *EmailRepository) SoftDelete(ctx context.Context, userID, id string) error {
	return r.mutate(userID, id, func(e *models.Email) {
		e.DeletedAt.Time = utils.Now()
		e.DeletedAt.Valid = true
	})
}

func (r *EmailRepository) mutate(userID, id string, fn func(*models.Email)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := r.find(userID, id)
	if email == nil {
		return nil
	}
	fn(email)
	return nil
}

type EmailAttachmentRepository struct {
	mu          sync.Mutex
	Attachments []*models.EmailAttachment
	Data        map[string][]byte
}

func NewEmailAttachmentRepository() *EmailAttachmentRepository {
	return &EmailAttachmentRepository{Data: map[string][]byte{}}
}

func (r *EmailAttachmentRepository) Create(ctx context.Context, attachment *models.EmailAttachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if attachment.ID == "" {
		attachment.ID = utils.GenerateNanoIDWithPrefix("file", 12)
	}
	r.Attachments = append(r.Attachments, attachment)
	return nil
}

func (r *EmailAttachmentRepository) GetByID(ctx context.Context, id string) (*models.EmailAttachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, attachment := range r.Attachments {
		if attachment.ID == id {
			return attachment, nil
		}
	}
	return nil, nil
}

func (r *EmailAttachmentRepository) ListByEmail(ctx context.Context, emailID string) ([]*models.EmailAttachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.EmailAttachment
	for _, attachment := range r.Attachments {
		if attachment.EmailID == emailID {
			result = append(result, attachment)
		}
	}
	return result, nil
}

func (r *EmailAttachmentRepository) Store(ctx context.Context, attachment *models.EmailAttachment, data []byte) error {
	if err := r.Create(ctx, attachment); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	attachment.StorageKey = attachment.EmailID + "/" + attachment.ID
	attachment.Size = int64(len(data))
	r.Data[attachment.ID] = data
	return nil
}

func (r *EmailAttachmentRepository) GetData(ctx context.Context, id string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Data[id], nil
}

type SyncLogRepository struct {
	mu        sync.Mutex
	Logs      []*models.SyncLog
	Completed map[string]int
}

func NewSyncLogRepository() *SyncLogRepository {
	return &SyncLogRepository{Completed: map[string]int{}}
}

func (r *SyncLogRepository) Start(ctx context.Context, log *models.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if log.ID == "" {
		log.ID = utils.GenerateNanoIDWithPrefix("sync", 16)
	}
	if log.StartedAt.IsZero() {
		log.StartedAt = utils.Now()
	}
	log.Status = enum.SyncStatusRunning
	r.Logs = append(r.Logs, log)
	return nil
}

func (r *SyncLogRepository) Complete(ctx context.Context, log *models.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Completed[log.ID] > 0 {
		return errors.New("sync log is not running")
	}
	r.Completed[log.ID]++
	return nil
}

func (r *SyncLogRepository) GetByID(ctx context.Context, id string) (*models.SyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, log := range r.Logs {
		if log.ID == id {
			return log, nil
		}
	}
	return nil, nil
}

func (r *SyncLogRepository) List(ctx context.Context, userID, labelID string, limit, offset int) ([]*models.SyncLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.SyncLog
	for _, log := range r.Logs {
		if log.UserID == userID && (labelID == "" || log.LabelID == labelID) {
			result = append(result, log)
		}
	}
	total := int64(len(result))
	if offset >= len(result) {
		return []*models.SyncLog{}, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

type LabelSyncSettingRepository struct {
	mu       sync.Mutex
	Settings []*models.LabelSyncSetting
	Err      error
}

func NewLabelSyncSettingRepository(settings ...*models.LabelSyncSetting) *LabelSyncSettingRepository {
	return &LabelSyncSettingRepository{Settings: settings}
}

func (r *LabelSyncSettingRepository) find(userID, labelID string) *models.LabelSyncSetting {
	for _, setting := range r.Settings {
		if setting.UserID == userID && setting.LabelID == labelID {
			return setting
		}
	}
	return nil
}

func (r *LabelSyncSettingRepository) Get(ctx context.Context, userID, labelID string) (*models.LabelSyncSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	return r.find(userID, labelID), nil
}

func (r *LabelSyncSettingRepository) ListByUser(ctx context.Context, userID string) ([]*models.LabelSyncSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var result []*models.LabelSyncSetting
	for _, setting := range r.Settings {
		if setting.UserID == userID {
			result = append(result, setting)
		}
	}
	return result, nil
}

func (r *LabelSyncSettingRepository) ListSyncing(ctx context.Context, userID string) ([]*models.LabelSyncSetting, error) {
	all, err := r.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var result []*models.LabelSyncSetting
	for _, setting := range all {
		if setting.IsSyncing {
			result = append(result, setting)
		}
	}
	return result, nil
}

func (r *LabelSyncSettingRepository) ListUsersWithSyncingLabels(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	seen := map[string]bool{}
	var users []string
	for _, setting := range r.Settings {
		if setting.IsSyncing && !seen[setting.UserID] {
			seen[setting.UserID] = true
			users = append(users, setting.UserID)
		}
	}
	sort.Strings(users)
	return users, nil
}

func (r *LabelSyncSettingRepository) Upsert(ctx context.Context, setting *models.LabelSyncSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing := r.find(setting.UserID, setting.LabelID); existing != nil {
		existing.LabelName = setting.LabelName
		existing.LabelType = setting.LabelType
		return nil
	}
	r.Settings = append(r.Settings, setting)
	return nil
}

func (r *LabelSyncSettingRepository) SetSyncing(ctx context.Context, userID, labelID string, isSyncing bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing := r.find(userID, labelID); existing != nil {
		existing.IsSyncing = isSyncing
		return nil
	}
	r.Settings = append(r.Settings, &models.LabelSyncSetting{UserID: userID, LabelID: labelID, LabelName: labelID, IsSyncing: isSyncing})
	return nil
}

func (r *LabelSyncSettingRepository) MarkSynced(ctx context.Context, userID, labelID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing := r.find(userID, labelID); existing != nil {
		existing.LastSyncedAt = &at
	}
	return nil
}
