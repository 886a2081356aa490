package enum

type MailProvider string

const (
	MailProviderGmail MailProvider = "gmail"
	MailProviderIMAP  MailProvider = "imap"
)

func (p MailProvider) String() string {
	return string(p)
}

// Provider label ids that carry message flags.
const (
	LabelUnread  = "UNREAD"
	LabelStarred = "STARRED"
)

type LabelType string

const (
	LabelTypeSystem LabelType = "system"
	LabelTypeUser   LabelType = "user"
)

func (t LabelType) String() string {
	return string(t)
}
