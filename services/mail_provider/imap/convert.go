package imap

import (
	"sort"
	"strconv"
	"strings"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/internal/enum"
	mailerrors "github.com/wahajws/amast-crm-sub001/internal/errors"
)

const rootPartPath = "0"

// Message ids are "<folder>:<uid>"; folders act as labels.
func messageID(folder string, uid uint32) string {
	return folder + ":" + strconv.FormatUint(uint64(uid), 10)
}

func parseMessageID(id string) (string, uint32, error) {
	idx := strings.LastIndex(id, ":")
	if idx <= 0 || idx == len(id)-1 {
		return "", 0, errors.Errorf("invalid message id %q", id)
	}
	uid, err := strconv.ParseUint(id[idx+1:], 10, 32)
	if err != nil {
		return "", 0, errors.Wrapf(err, "invalid message id %q", id)
	}
	return id[:idx], uint32(uid), nil
}

// labelIDs maps IMAP flags onto the provider label ids the parser reads.
func labelIDs(folder string, flags []string) []string {
	labels := []string{folder}
	seen, flagged := false, false
	for _, flag := range flags {
		switch goimap.CanonicalFlag(flag) {
		case goimap.SeenFlag:
			seen = true
		case goimap.FlaggedFlag:
			flagged = true
		}
	}
	if !seen {
		labels = append(labels, enum.LabelUnread)
	}
	if flagged {
		labels = append(labels, enum.LabelStarred)
	}
	return labels
}

func convertMailbox(info *goimap.MailboxInfo) (dto.ProviderLabel, bool) {
	labelType := enum.LabelTypeUser
	for _, attr := range info.Attributes {
		switch attr {
		case goimap.NoSelectAttr:
			return dto.ProviderLabel{}, false
		case goimap.SentAttr, goimap.DraftsAttr, goimap.TrashAttr, goimap.JunkAttr, goimap.AllAttr:
			labelType = enum.LabelTypeSystem
		}
	}
	if strings.EqualFold(info.Name, "INBOX") {
		labelType = enum.LabelTypeSystem
	}
	return dto.ProviderLabel{ID: info.Name, Name: info.Name, Type: labelType.String()}, true
}

func convertEnvelope(id, folder string, flags []string, internalDate time.Time, env *enmime.Envelope) (*dto.ProviderMessage, error) {
	if env == nil || env.Root == nil {
		return nil, errors.Wrapf(mailerrors.ErrMalformedMessage, "message %s has no MIME root", id)
	}

	payload := convertPart(env.Root, rootPartPath)
	payload.Headers = envelopeHeaders(env)

	return &dto.ProviderMessage{
		ID:           id,
		ThreadID:     threadID(env),
		LabelIDs:     labelIDs(folder, flags),
		InternalDate: internalDate,
		Payload:      payload,
	}, nil
}

func convertPart(part *enmime.Part, path string) *dto.MessagePart {
	converted := &dto.MessagePart{
		PartID:   path,
		MimeType: strings.ToLower(part.ContentType),
		Headers:  mimeHeaders(part),
	}

	if part.FirstChild == nil {
		if isAttachmentPart(part) {
			converted.Filename = part.FileName
			if converted.Filename == "" {
				converted.Filename = "part-" + path
			}
			converted.Body = &dto.PartBody{AttachmentID: path, Size: int64(len(part.Content))}
		} else {
			converted.Body = &dto.PartBody{Data: part.Content, Size: int64(len(part.Content))}
		}
		return converted
	}

	index := 1
	for child := part.FirstChild; child != nil; child = child.NextSibling {
		converted.Parts = append(converted.Parts, convertPart(child, childPath(path, index)))
		index++
	}
	return converted
}

// findPart resolves an attachment id produced by convertPart.
func findPart(root *enmime.Part, path string) *enmime.Part {
	if path == rootPartPath {
		return root
	}
	current := root
	for _, segment := range strings.Split(path, ".") {
		n, err := strconv.Atoi(segment)
		if err != nil || n < 1 {
			return nil
		}
		child := current.FirstChild
		for i := 1; i < n && child != nil; i++ {
			child = child.NextSibling
		}
		if child == nil {
			return nil
		}
		current = child
	}
	return current
}

func childPath(parent string, index int) string {
	if parent == rootPartPath {
		return strconv.Itoa(index)
	}
	return parent + "." + strconv.Itoa(index)
}

func isAttachmentPart(part *enmime.Part) bool {
	return part.FileName != "" || strings.EqualFold(part.Disposition, "attachment")
}

func envelopeHeaders(env *enmime.Envelope) []dto.Header {
	keys := env.GetHeaderKeys()
	sort.Strings(keys)
	var headers []dto.Header
	for _, key := range keys {
		for _, value := range env.GetHeaderValues(key) {
			headers = append(headers, dto.Header{Name: key, Value: value})
		}
	}
	return headers
}

func mimeHeaders(part *enmime.Part) []dto.Header {
	if part.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(part.Header))
	for key := range part.Header {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var headers []dto.Header
	for _, key := range keys {
		for _, value := range part.Header[key] {
			headers = append(headers, dto.Header{Name: key, Value: value})
		}
	}
	return headers
}

// threadID uses the first referenced message id, which is the thread root
// for well-behaved clients.
func threadID(env *enmime.Envelope) string {
	if references := strings.Fields(env.GetHeader("References")); len(references) > 0 {
		return strings.Trim(references[0], "<>")
	}
	if inReplyTo := strings.TrimSpace(env.GetHeader("In-Reply-To")); inReplyTo != "" {
		return strings.Trim(inReplyTo, "<>")
	}
	return strings.Trim(strings.TrimSpace(env.GetHeader("Message-ID")), "<>")
}
