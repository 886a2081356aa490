package gmail

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/pkg/errors"
	gmailv1 "google.golang.org/api/gmail/v1"

	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/internal/enum"
	mailerrors "github.com/wahajws/amast-crm-sub001/internal/errors"
)

func convertLabel(label *gmailv1.Label) dto.ProviderLabel {
	labelType := enum.LabelTypeUser
	if strings.EqualFold(label.Type, "system") {
		labelType = enum.LabelTypeSystem
	}
	return dto.ProviderLabel{ID: label.Id, Name: label.Name, Type: labelType.String()}
}

func convertMessage(msg *gmailv1.Message) (*dto.ProviderMessage, error) {
	if msg == nil {
		return nil, errors.Wrap(mailerrors.ErrMalformedMessage, "empty message")
	}

	converted := &dto.ProviderMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		LabelIDs: msg.LabelIds,
		Snippet:  msg.Snippet,
	}
	if msg.InternalDate > 0 {
		converted.InternalDate = time.UnixMilli(msg.InternalDate).UTC()
	}

	if msg.Payload != nil {
		payload, err := convertPart(msg.Payload)
		if err != nil {
			return nil, errors.Wrapf(mailerrors.ErrMalformedMessage, "message %s: %v", msg.Id, err)
		}
		converted.Payload = payload
	}
	return converted, nil
}

func convertPart(part *gmailv1.MessagePart) (*dto.MessagePart, error) {
	converted := &dto.MessagePart{
		PartID:   part.PartId,
		MimeType: part.MimeType,
		Filename: part.Filename,
	}
	for _, header := range part.Headers {
		converted.Headers = append(converted.Headers, dto.Header{Name: header.Name, Value: header.Value})
	}

	if part.Body != nil {
		body := &dto.PartBody{AttachmentID: part.Body.AttachmentId, Size: part.Body.Size}
		if part.Body.Data != "" {
			data, err := decodeBase64(part.Body.Data)
			if err != nil {
				return nil, errors.Wrapf(err, "part %s", part.PartId)
			}
			body.Data = data
		}
		converted.Body = body
	}

	for _, child := range part.Parts {
		if child == nil {
			continue
		}
		convertedChild, err := convertPart(child)
		if err != nil {
			return nil, err
		}
		converted.Parts = append(converted.Parts, convertedChild)
	}
	return converted, nil
}

// decodeBase64 accepts Gmail's URL-safe alphabet with or without padding.
func decodeBase64(data string) ([]byte, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err == nil {
		return decoded, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}
