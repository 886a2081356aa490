package dto

type LabelSyncResult struct {
	LabelID       string `json:"labelId"`
	LabelName     string `json:"labelName,omitempty"`
	SyncLogID     string `json:"syncLogId,omitempty"`
	Success       bool   `json:"success"`
	EmailsSynced  int    `json:"emailsSynced"`
	EmailsSkipped int    `json:"emailsSkipped"`
	EmailsFailed  int    `json:"emailsFailed"`
	Error         string `json:"error,omitempty"`
}

type SyncAllResult struct {
	UserID  string            `json:"userId"`
	Results []LabelSyncResult `json:"results"`
}

func (r SyncAllResult) TotalSynced() int {
	total := 0
	for _, result := range r.Results {
		total += result.EmailsSynced
	}
	return total
}
