package imap

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	goimap "github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/jhillyerd/enmime"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/interfaces"
	mailerrors "github.com/wahajws/amast-crm-sub001/internal/errors"
	"github.com/wahajws/amast-crm-sub001/internal/logger"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
)

const dialTimeout = 30 * time.Second

// conn is the subset of the go-imap client used here.
type conn interface {
	List(ref, name string, ch chan *goimap.MailboxInfo) error
	Select(name string, readOnly bool) (*goimap.MailboxStatus, error)
	UidSearch(criteria *goimap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *goimap.SeqSet, items []goimap.FetchItem, ch chan *goimap.Message) error
	Logout() error
}

type client struct {
	mu       sync.Mutex
	log      logger.Logger
	conn     conn
	raw      *imapclient.Client
	username string
}

// Dial connects and logs in to the account's IMAP server.
func Dial(ctx context.Context, log logger.Logger, account *models.MailAccount) (interfaces.MailProvider, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ImapClient.Dial")
	defer span.Finish()
	tracing.TagComponentMailProvider(span)
	span.SetTag("server", account.ImapServer)
	span.SetTag("port", account.ImapPort)
	span.SetTag("tls", account.ImapTLS)

	serverAddr := fmt.Sprintf("%s:%d", account.ImapServer, account.ImapPort)
	dialer := &net.Dialer{Timeout: dialTimeout, KeepAlive: dialTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	var c *imapclient.Client
	var err error
	if account.ImapTLS {
		c, err = imapclient.DialWithDialerTLS(dialer, serverAddr, &tls.Config{ServerName: account.ImapServer})
	} else {
		c, err = imapclient.DialWithDialer(dialer, serverAddr)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(mailerrors.ErrConnectionTimeout, "failed to connect to %s: %v", serverAddr, err)
	}

	c.Timeout = dialTimeout
	if err := c.Login(account.ImapUsername, account.ImapPassword); err != nil {
		_ = c.Logout()
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "failed to login as %s", account.ImapUsername)
	}
	c.Timeout = 0

	log.Debugf("connected to %s as %s", serverAddr, account.ImapUsername)
	return newClient(log, c, account.ImapUsername, c), nil
}

func newClient(log logger.Logger, conn conn, username string, raw *imapclient.Client) *client {
	return &client{log: log, conn: conn, raw: raw, username: username}
}

func (c *client) ListLabels(ctx context.Context) ([]dto.ProviderLabel, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ImapClient.ListLabels")
	defer span.Finish()
	tracing.TagComponentMailProvider(span)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx); err != nil {
		return nil, err
	}

	mailboxes := make(chan *goimap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.conn.List("", "*", mailboxes)
	}()

	var labels []dto.ProviderLabel
	for info := range mailboxes {
		if label, ok := convertMailbox(info); ok {
			labels = append(labels, label)
		}
	}
	if err := <-done; err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to list folders")
	}
	return labels, nil
}

// ListMessages pages through a folder newest first. The page token is the
// offset into the folder's UID list.
func (c *client) ListMessages(ctx context.Context, labelID string, pageSize int64, pageToken string) (*dto.MessagePage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ImapClient.ListMessages")
	defer span.Finish()
	tracing.TagComponentMailProvider(span)
	tracing.TagLabel(span, labelID)

	offset := 0
	if pageToken != "" {
		parsed, err := strconv.Atoi(pageToken)
		if err != nil || parsed < 0 {
			return nil, errors.Wrapf(mailerrors.ErrInvalidPagination, "page token %q", pageToken)
		}
		offset = parsed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx); err != nil {
		return nil, err
	}

	if _, err := c.conn.Select(labelID, true); err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "failed to select folder %s", labelID)
	}
	uids, err := c.conn.UidSearch(goimap.NewSearchCriteria())
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "failed to search folder %s", labelID)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })

	page := &dto.MessagePage{}
	if offset >= len(uids) {
		return page, nil
	}
	end := offset + int(pageSize)
	if end > len(uids) {
		end = len(uids)
	}
	for _, uid := range uids[offset:end] {
		page.Messages = append(page.Messages, dto.MessageRef{ID: messageID(labelID, uid)})
	}
	if end < len(uids) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func (c *client) GetMessage(ctx context.Context, id string) (*dto.ProviderMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ImapClient.GetMessage")
	defer span.Finish()
	tracing.TagComponentMailProvider(span)
	tracing.TagEntity(span, id)

	folder, msg, env, err := c.fetch(ctx, id)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return convertEnvelope(id, folder, msg.Flags, msg.InternalDate, env)
}

func (c *client) GetAttachment(ctx context.Context, id, attachmentID string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ImapClient.GetAttachment")
	defer span.Finish()
	tracing.TagComponentMailProvider(span)
	tracing.TagEntity(span, id)

	_, _, env, err := c.fetch(ctx, id)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	part := findPart(env.Root, attachmentID)
	if part == nil {
		return nil, errors.Errorf("attachment %s not found in message %s", attachmentID, id)
	}
	return part.Content, nil
}

func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.raw != nil {
		c.raw.Timeout = 5 * time.Second
	}
	return c.conn.Logout()
}

// fetch downloads the whole RFC822 message without setting \Seen.
func (c *client) fetch(ctx context.Context, id string) (string, *goimap.Message, *enmime.Envelope, error) {
	folder, uid, err := parseMessageID(id)
	if err != nil {
		return "", nil, nil, errors.Wrap(mailerrors.ErrMalformedMessage, err.Error())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx); err != nil {
		return "", nil, nil, err
	}

	if _, err := c.conn.Select(folder, true); err != nil {
		return "", nil, nil, errors.Wrapf(err, "failed to select folder %s", folder)
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(uid)
	section := &goimap.BodySectionName{Peek: true}
	items := []goimap.FetchItem{goimap.FetchUid, goimap.FetchFlags, goimap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *goimap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.conn.UidFetch(seqSet, items, messages)
	}()

	var msg *goimap.Message
	for m := range messages {
		if msg == nil {
			msg = m
		}
	}
	if err := <-done; err != nil {
		return "", nil, nil, errors.Wrapf(err, "failed to fetch message %s", id)
	}
	if msg == nil {
		return "", nil, nil, errors.Errorf("message %s not found", id)
	}

	literal := msg.GetBody(section)
	if literal == nil {
		return "", nil, nil, errors.Wrapf(mailerrors.ErrMalformedMessage, "message %s has no body", id)
	}
	raw, err := io.ReadAll(literal)
	if err != nil {
		return "", nil, nil, errors.Wrapf(err, "failed to read message %s", id)
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return "", nil, nil, errors.Wrapf(mailerrors.ErrMalformedMessage, "message %s: %v", id, err)
	}
	return folder, msg, env, nil
}

// begin maps the context deadline onto the connection timeout; go-imap v1
// commands do not take a context.
func (c *client) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(mailerrors.ErrConnectionTimeout, err.Error())
	}
	if c.raw == nil {
		return nil
	}
	c.raw.Timeout = 0
	if deadline, ok := ctx.Deadline(); ok {
		c.raw.Timeout = time.Until(deadline)
	}
	return nil
}
