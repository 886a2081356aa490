package message_parser

import (
	"html"
	"mime"
	"net/mail"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/wahajws/amast-crm-sub001/dto"
	mailerrors "github.com/wahajws/amast-crm-sub001/internal/errors"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

const snippetLength = 200

type Parser struct {
	wordDecoder *mime.WordDecoder
}

func NewParser() *Parser {
	return &Parser{wordDecoder: new(mime.WordDecoder)}
}

// Parse flattens a provider message into an unsaved email row and the list
// of attachments still to be fetched.
func (p *Parser) Parse(message *dto.ProviderMessage, userID string) (*dto.ParsedMessage, error) {
	if message == nil || message.Payload == nil {
		return nil, errors.Wrap(mailerrors.ErrMalformedMessage, "message has no payload")
	}

	headers := message.Payload.Headers

	from := ParseAddressList(p.header(headers, "From"))
	if len(from) == 0 {
		return nil, errors.Wrapf(mailerrors.ErrMalformedMessage, "message %s has no From address", message.ID)
	}

	body := foldParts(message.Payload, bodyParts{})

	email := &models.Email{
		UserID:            userID,
		ProviderMessageID: message.ID,
		ThreadID:          message.ThreadID,
		LabelIDs:          pq.StringArray(append([]string{}, message.LabelIDs...)),
		Subject:           strings.TrimSpace(p.header(headers, "Subject")),
		FromAddress:       from[0].Email,
		FromName:          from[0].Name,
		ToAddresses:       pq.StringArray(emails(ParseAddressList(p.header(headers, "To")))),
		CcAddresses:       pq.StringArray(emails(ParseAddressList(p.header(headers, "Cc")))),
		BccAddresses:      pq.StringArray(emails(ParseAddressList(p.header(headers, "Bcc")))),
		BodyText:          strings.Join(body.text, ""),
		BodyHTML:          strings.Join(body.html, ""),
		HasAttachment:     len(body.attachments) > 0,
		AttachmentCount:   len(body.attachments),
	}
	email.ApplyLabelFlags()
	email.SentAt, email.ReceivedAt = messageTimes(p.header(headers, "Date"), message.InternalDate)
	email.Snippet = buildSnippet(message.Snippet, email.BodyText, email.BodyHTML)

	return &dto.ParsedMessage{
		Email:       email,
		Attachments: body.attachments,
	}, nil
}

// header returns the first header with a case-insensitive name match,
// with RFC 2047 encoded words decoded.
func (p *Parser) header(headers []dto.Header, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			decoded, err := p.wordDecoder.DecodeHeader(h.Value)
			if err != nil {
				return h.Value
			}
			return decoded
		}
	}
	return ""
}

type bodyParts struct {
	text        []string
	html        []string
	attachments []dto.AttachmentRef
}

// foldParts walks the part tree depth-first. Each call returns a new
// accumulator; the input is never modified.
func foldParts(part *dto.MessagePart, acc bodyParts) bodyParts {
	if part == nil {
		return acc
	}

	next := bodyParts{
		text:        append([]string{}, acc.text...),
		html:        append([]string{}, acc.html...),
		attachments: append([]dto.AttachmentRef{}, acc.attachments...),
	}

	switch {
	case isAttachment(part):
		next.attachments = append(next.attachments, dto.AttachmentRef{
			AttachmentID: part.Body.AttachmentID,
			Filename:     part.Filename,
			MimeType:     utils.NormalizeContentType(part.MimeType),
			Size:         part.Body.Size,
		})
	case part.Filename == "" && part.Body != nil && len(part.Body.Data) > 0:
		switch utils.NormalizeContentType(part.MimeType) {
		case "text/plain":
			next.text = append(next.text, string(part.Body.Data))
		case "text/html":
			next.html = append(next.html, string(part.Body.Data))
		}
	}

	for _, child := range part.Parts {
		next = foldParts(child, next)
	}
	return next
}

func isAttachment(part *dto.MessagePart) bool {
	return part.Filename != "" && part.Body != nil && part.Body.AttachmentID != ""
}

func messageTimes(dateHeader string, internalDate time.Time) (sentAt, receivedAt *time.Time) {
	if !internalDate.IsZero() {
		received := internalDate.UTC()
		receivedAt = &received
	}
	if dateHeader != "" {
		if parsed, err := mail.ParseDate(dateHeader); err == nil {
			sent := parsed.UTC()
			sentAt = &sent
		}
	}
	if sentAt == nil {
		sentAt = receivedAt
	}
	if receivedAt == nil {
		receivedAt = sentAt
	}
	return sentAt, receivedAt
}

func buildSnippet(providerSnippet, text, htmlBody string) string {
	if s := collapseWhitespace(html.UnescapeString(providerSnippet)); s != "" {
		return truncate(s, snippetLength)
	}
	if s := collapseWhitespace(text); s != "" {
		return truncate(s, snippetLength)
	}
	if htmlBody == "" {
		return ""
	}
	plain, err := htmlToPlainText(htmlBody)
	if err != nil {
		return ""
	}
	return truncate(collapseWhitespace(plain), snippetLength)
}

func htmlToPlainText(htmlBody string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, head").Each(func(i int, el *goquery.Selection) {
		el.Remove()
	})
	return doc.Text(), nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
