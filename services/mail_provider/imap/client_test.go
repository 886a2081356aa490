package imap

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wahajws/amast-crm-sub001/internal/enum"
	mailerrors "github.com/wahajws/amast-crm-sub001/internal/errors"
	"github.com/wahajws/amast-crm-sub001/internal/testutil"
	"github.com/wahajws/amast-crm-sub001/services/message_parser"
)

const reportMessage = `From: Alice <alice@acme.com>
To: bob@example.com
Subject: Report
Message-ID: <m1@acme.com>
References: <root@acme.com> <m0@acme.com>
Date: Mon, 02 Feb 2026 10:00:00 +0000
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="XYZ"

--XYZ
Content-Type: text/plain; charset=utf-8

Hello there
--XYZ
Content-Type: application/pdf; name="report.pdf"
Content-Disposition: attachment; filename="report.pdf"
Content-Transfer-Encoding: base64

JVBERi0xLjQ=
--XYZ--
`

type storedMessage struct {
	raw   string
	flags []string
}

type fakeConn struct {
	folders  []*goimap.MailboxInfo
	messages map[string]map[uint32]storedMessage
	selected string
	loggedIn bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{messages: map[string]map[uint32]storedMessage{}, loggedIn: true}
}

func (f *fakeConn) add(folder string, uid uint32, raw string, flags ...string) {
	if f.messages[folder] == nil {
		f.messages[folder] = map[uint32]storedMessage{}
	}
	f.messages[folder][uid] = storedMessage{raw: strings.ReplaceAll(raw, "\n", "\r\n"), flags: flags}
}

func (f *fakeConn) List(ref, name string, ch chan *goimap.MailboxInfo) error {
	defer close(ch)
	for _, info := range f.folders {
		ch <- info
	}
	return nil
}

func (f *fakeConn) Select(name string, readOnly bool) (*goimap.MailboxStatus, error) {
	if _, ok := f.messages[name]; !ok {
		return nil, assert.AnError
	}
	f.selected = name
	return goimap.NewMailboxStatus(name, nil), nil
}

func (f *fakeConn) UidSearch(criteria *goimap.SearchCriteria) ([]uint32, error) {
	var uids []uint32
	for uid := range f.messages[f.selected] {
		uids = append(uids, uid)
	}
	return uids, nil
}

func (f *fakeConn) UidFetch(seqset *goimap.SeqSet, items []goimap.FetchItem, ch chan *goimap.Message) error {
	defer close(ch)
	for uid, stored := range f.messages[f.selected] {
		if !seqset.Contains(uid) {
			continue
		}
		ch <- &goimap.Message{
			Uid:          uid,
			Flags:        stored.flags,
			InternalDate: time.Date(2026, 2, 2, 10, 0, 5, 0, time.UTC),
			Body: map[*goimap.BodySectionName]goimap.Literal{
				{}: bytes.NewBufferString(stored.raw),
			},
		}
	}
	return nil
}

func (f *fakeConn) Logout() error {
	f.loggedIn = false
	return nil
}

func newTestClient(conn *fakeConn) *client {
	return newClient(testutil.Logger(), conn, "bob", nil)
}

func TestListLabels(t *testing.T) {
	conn := newFakeConn()
	conn.folders = []*goimap.MailboxInfo{
		{Name: "INBOX"},
		{Name: "[Gmail]", Attributes: []string{goimap.NoSelectAttr}},
		{Name: "Sent", Attributes: []string{goimap.SentAttr}},
		{Name: "Clients/Acme"},
	}

	labels, err := newTestClient(conn).ListLabels(context.Background())
	require.NoError(t, err)

	require.Len(t, labels, 3)
	assert.Equal(t, enum.LabelTypeSystem.String(), labels[0].Type)
	assert.Equal(t, enum.LabelTypeSystem.String(), labels[1].Type)
	assert.Equal(t, "Clients/Acme", labels[2].ID)
	assert.Equal(t, enum.LabelTypeUser.String(), labels[2].Type)
}

func TestListMessages_NewestFirstPaging(t *testing.T) {
	conn := newFakeConn()
	for _, uid := range []uint32{3, 10, 7} {
		conn.add("INBOX", uid, reportMessage)
	}
	c := newTestClient(conn)

	page, err := c.ListMessages(context.Background(), "INBOX", 2, "")
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "INBOX:10", page.Messages[0].ID)
	assert.Equal(t, "INBOX:7", page.Messages[1].ID)
	assert.Equal(t, "2", page.NextPageToken)

	page, err = c.ListMessages(context.Background(), "INBOX", 2, page.NextPageToken)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "INBOX:3", page.Messages[0].ID)
	assert.Empty(t, page.NextPageToken)

	_, err = c.ListMessages(context.Background(), "INBOX", 2, "abc")
	assert.ErrorIs(t, err, mailerrors.ErrInvalidPagination)
}

func TestGetMessage_ParsesIntoEmail(t *testing.T) {
	conn := newFakeConn()
	conn.add("Clients/Acme", 42, reportMessage, goimap.FlaggedFlag)
	c := newTestClient(conn)

	msg, err := c.GetMessage(context.Background(), "Clients/Acme:42")
	require.NoError(t, err)

	assert.Equal(t, "root@acme.com", msg.ThreadID)
	assert.Equal(t, []string{"Clients/Acme", enum.LabelUnread, enum.LabelStarred}, msg.LabelIDs)

	parsed, err := message_parser.NewParser().Parse(msg, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "Report", parsed.Email.Subject)
	assert.Equal(t, "alice@acme.com", parsed.Email.FromAddress)
	assert.Contains(t, parsed.Email.BodyText, "Hello there")
	assert.False(t, parsed.Email.IsRead)
	assert.True(t, parsed.Email.IsStarred)
	require.Len(t, parsed.Attachments, 1)
	assert.Equal(t, "report.pdf", parsed.Attachments[0].Filename)

	data, err := c.GetAttachment(context.Background(), "Clients/Acme:42", parsed.Attachments[0].AttachmentID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)
}

func TestGetMessage_BadID(t *testing.T) {
	c := newTestClient(newFakeConn())

	_, err := c.GetMessage(context.Background(), "no-uid")
	assert.ErrorIs(t, err, mailerrors.ErrMalformedMessage)
}

func TestClose_LogsOut(t *testing.T) {
	conn := newFakeConn()
	require.NoError(t, newTestClient(conn).Close())
	assert.False(t, conn.loggedIn)
}

func TestMessageIDRoundTrip(t *testing.T) {
	folder, uid, err := parseMessageID(messageID("Work:Projects", 99))
	require.NoError(t, err)
	assert.Equal(t, "Work:Projects", folder)
	assert.Equal(t, uint32(99), uid)
}
