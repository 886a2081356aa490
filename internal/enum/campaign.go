package enum

type CampaignStatus string

const (
	CampaignPending CampaignStatus = "PENDING"
	CampaignSent    CampaignStatus = "SENT"
	CampaignOpened  CampaignStatus = "OPENED"
	CampaignReplied CampaignStatus = "REPLIED"
	CampaignBounced CampaignStatus = "BOUNCED"

	// derived, never stored
	CampaignNotCreated CampaignStatus = "NOT_CREATED"
	CampaignNoEmail    CampaignStatus = "NO_EMAIL"
)

func (s CampaignStatus) String() string {
	return string(s)
}

// Rank orders stored statuses by progress so transitions never move backwards.
func (s CampaignStatus) Rank() int {
	switch s {
	case CampaignPending:
		return 1
	case CampaignSent:
		return 2
	case CampaignOpened:
		return 3
	case CampaignReplied, CampaignBounced:
		return 4
	default:
		return 0
	}
}

func (s CampaignStatus) IsStored() bool {
	return s.Rank() > 0
}

type CampaignPriority string

const (
	PriorityLow    CampaignPriority = "LOW"
	PriorityMedium CampaignPriority = "MEDIUM"
	PriorityHigh   CampaignPriority = "HIGH"
	PriorityUrgent CampaignPriority = "URGENT"
)

func (p CampaignPriority) String() string {
	return string(p)
}

func (p CampaignPriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

func (p CampaignPriority) IsValid() bool {
	return p.Rank() > 0
}

type CampaignSource string

const (
	CampaignSourceManual         CampaignSource = "manual"
	CampaignSourceBulkImport     CampaignSource = "bulk_import"
	CampaignSourceLeadGeneration CampaignSource = "lead_generation"
)

func (s CampaignSource) String() string {
	return string(s)
}
