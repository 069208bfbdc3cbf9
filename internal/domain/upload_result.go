package domain

// UploadResult summarises one ingestion run.
type UploadResult struct {
	Created           int      `json:"created"`
	Updated           int      `json:"updated"`
	TotalProcessed    int      `json:"total_processed"`
	DuplicatesSkipped int      `json:"duplicates_skipped"`
	Failed            int      `json:"failed"`
	Errors            []string `json:"errors"`
	Success           bool     `json:"success"`
}

// NewUploadResult fills in Success: at least one row written and no errors.
func NewUploadResult(created, updated, total, duplicates int, errs []string) UploadResult {
	if errs == nil {
		errs = []string{}
	}
	return UploadResult{
		Created:           created,
		Updated:           updated,
		TotalProcessed:    total,
		DuplicatesSkipped: duplicates,
		Failed:            len(errs),
		Errors:            errs,
		Success:           created+updated > 0 && len(errs) == 0,
	}
}

// FailedUpload reports an upload that wrote nothing.
func FailedUpload(total int, err error) UploadResult {
	return NewUploadResult(0, 0, total, 0, []string{err.Error()})
}
