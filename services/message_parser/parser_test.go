package message_parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wahajws/amast-crm-sub001/dto"
	mailerrors "github.com/wahajws/amast-crm-sub001/internal/errors"
)

func textPart(mimeType, body string) *dto.MessagePart {
	return &dto.MessagePart{MimeType: mimeType, Body: &dto.PartBody{Data: []byte(body), Size: int64(len(body))}}
}

func newMessage(headers []dto.Header, parts ...*dto.MessagePart) *dto.ProviderMessage {
	return &dto.ProviderMessage{
		ID:           "msg-1",
		ThreadID:     "thread-1",
		LabelIDs:     []string{"INBOX", "UNREAD"},
		InternalDate: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Payload: &dto.MessagePart{
			MimeType: "multipart/mixed",
			Headers:  headers,
			Parts:    parts,
		},
	}
}

func TestParse_ConcatenatesAllTextParts(t *testing.T) {
	msg := newMessage(
		[]dto.Header{{Name: "From", Value: "alice@acme.com"}},
		&dto.MessagePart{
			MimeType: "multipart/alternative",
			Parts: []*dto.MessagePart{
				textPart("text/plain", "first segment"),
				textPart("text/html", "<p>first</p>"),
			},
		},
		textPart("text/plain; charset=utf-8", "second segment"),
	)

	parsed, err := NewParser().Parse(msg, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "first segmentsecond segment", parsed.Email.BodyText)
	assert.Equal(t, "<p>first</p>", parsed.Email.BodyHTML)
	assert.Empty(t, parsed.Attachments)
}

func TestParse_TextPartsJoinWithoutSeparator(t *testing.T) {
	msg := newMessage(
		[]dto.Header{{Name: "From", Value: "alice@acme.com"}},
		textPart("text/plain", "Hello "),
		textPart("text/plain", "World"),
	)

	parsed, err := NewParser().Parse(msg, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "Hello World", parsed.Email.BodyText)
}

func TestParse_HeadersAreCaseInsensitive(t *testing.T) {
	msg := newMessage([]dto.Header{
		{Name: "FROM", Value: `"Alice Doe" <alice@acme.com>`},
		{Name: "to", Value: `bob@globex.com, "Doe, Jane" <jane@initech.com>`},
		{Name: "CC", Value: "carol@acme.com"},
		{Name: "subject", Value: "  Quarterly review  "},
		{Name: "Date", Value: "Fri, 01 Mar 2024 09:30:00 +0000"},
	}, textPart("text/plain", "hello"))

	parsed, err := NewParser().Parse(msg, "user-1")
	require.NoError(t, err)

	email := parsed.Email
	assert.Equal(t, "user-1", email.UserID)
	assert.Equal(t, "msg-1", email.ProviderMessageID)
	assert.Equal(t, "thread-1", email.ThreadID)
	assert.Equal(t, "alice@acme.com", email.FromAddress)
	assert.Equal(t, "Alice Doe", email.FromName)
	assert.Equal(t, []string{"bob@globex.com", "jane@initech.com"}, []string(email.ToAddresses))
	assert.Equal(t, []string{"carol@acme.com"}, []string(email.CcAddresses))
	assert.Empty(t, email.BccAddresses)
	assert.Equal(t, "Quarterly review", email.Subject)
	require.NotNil(t, email.SentAt)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), *email.SentAt)
	require.NotNil(t, email.ReceivedAt)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), *email.ReceivedAt)
}

func TestParse_LabelFlags(t *testing.T) {
	msg := newMessage([]dto.Header{{Name: "From", Value: "alice@acme.com"}})
	msg.LabelIDs = []string{"INBOX", "STARRED"}

	parsed, err := NewParser().Parse(msg, "user-1")
	require.NoError(t, err)
	assert.True(t, parsed.Email.IsRead)
	assert.True(t, parsed.Email.IsStarred)

	msg.LabelIDs = []string{"INBOX", "UNREAD"}
	parsed, err = NewParser().Parse(msg, "user-1")
	require.NoError(t, err)
	assert.False(t, parsed.Email.IsRead)
	assert.False(t, parsed.Email.IsStarred)
}

func TestParse_CollectsNestedAttachments(t *testing.T) {
	msg := newMessage(
		[]dto.Header{{Name: "From", Value: "alice@acme.com"}},
		textPart("text/plain", "see attached"),
		&dto.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*dto.MessagePart{
				{MimeType: "application/pdf", Filename: "quote.pdf", Body: &dto.PartBody{AttachmentID: "att-1", Size: 1024}},
				// filename without attachment reference is neither body nor attachment
				{MimeType: "text/plain", Filename: "inline.txt", Body: &dto.PartBody{Data: []byte("inline")}},
			},
		},
		&dto.MessagePart{MimeType: "image/png", Filename: "logo.png", Body: &dto.PartBody{AttachmentID: "att-2", Size: 42}},
	)

	parsed, err := NewParser().Parse(msg, "user-1")
	require.NoError(t, err)

	require.Len(t, parsed.Attachments, 2)
	assert.Equal(t, dto.AttachmentRef{AttachmentID: "att-1", Filename: "quote.pdf", MimeType: "application/pdf", Size: 1024}, parsed.Attachments[0])
	assert.Equal(t, "att-2", parsed.Attachments[1].AttachmentID)
	assert.True(t, parsed.Email.HasAttachment)
	assert.Equal(t, 2, parsed.Email.AttachmentCount)
	assert.Equal(t, "see attached", parsed.Email.BodyText)
}

func TestParse_Snippet(t *testing.T) {
	msg := newMessage([]dto.Header{{Name: "From", Value: "alice@acme.com"}}, textPart("text/html", "<html><head><style>p{}</style></head><body><p>Hello   there</p></body></html>"))

	parsed, err := NewParser().Parse(msg, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Hello there", parsed.Email.Snippet)

	msg.Snippet = "It&#39;s done"
	parsed, err = NewParser().Parse(msg, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "It's done", parsed.Email.Snippet)
}

func TestParse_Malformed(t *testing.T) {
	_, err := NewParser().Parse(&dto.ProviderMessage{ID: "x"}, "user-1")
	assert.ErrorIs(t, err, mailerrors.ErrMalformedMessage)

	_, err = NewParser().Parse(newMessage([]dto.Header{{Name: "Subject", Value: "no sender"}}), "user-1")
	assert.ErrorIs(t, err, mailerrors.ErrMalformedMessage)
}

func TestParseAddressList(t *testing.T) {
	addresses := ParseAddressList(`Alice <alice@acme.com>, bob@globex.com,, "Smith, John" <john@initech.com>`)

	require.Len(t, addresses, 3)
	assert.Equal(t, Address{Name: "Alice", Email: "alice@acme.com"}, addresses[0])
	assert.Equal(t, Address{Email: "bob@globex.com"}, addresses[1])
	assert.Equal(t, Address{Name: "Smith, John", Email: "john@initech.com"}, addresses[2])
	assert.Empty(t, ParseAddressList(""))
}
