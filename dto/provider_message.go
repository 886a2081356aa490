package dto

import "time"

// ProviderMessage is the provider-neutral shape of a fetched message: a
// flat header list on the root part and a recursive part tree.
type ProviderMessage struct {
	ID           string
	ThreadID     string
	LabelIDs     []string
	Snippet      string
	InternalDate time.Time
	Payload      *MessagePart
}

type MessagePart struct {
	PartID   string
	MimeType string
	Filename string
	Headers  []Header
	Body     *PartBody
	Parts    []*MessagePart
}

type Header struct {
	Name  string
	Value string
}

// PartBody carries inline Data, or an AttachmentID when the bytes must be
// fetched separately.
type PartBody struct {
	Data         []byte
	AttachmentID string
	Size         int64
}

type MessageRef struct {
	ID       string
	ThreadID string
}

type MessagePage struct {
	Messages      []MessageRef
	NextPageToken string
}

type ProviderLabel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}
