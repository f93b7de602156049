package verification

import "time"

// SlotResponse is the outward-facing representation of a slot.
type SlotResponse struct {
	Path       *string    `json:"path"`
	UploadedAt *time.Time `json:"uploadedAt"`
	Status     SlotStatus `json:"status"`
}

// DocumentMutationResponse is returned by upload and delete.
type DocumentMutationResponse struct {
	Message               string                        `json:"message"`
	VerificationDocuments map[DocumentType]SlotResponse `json:"verificationDocuments"`
	VerificationStatus    AggregateStatus               `json:"verificationStatus"`
}

// StatusResponse is the polling target.
type StatusResponse struct {
	VerificationStatus AggregateStatus `json:"verificationStatus"`
	Eligible           bool            `json:"eligible"`
}

type reviewRequest struct {
	Decision string `json:"decision"`
}

// DocumentsResponse maps every slot of rec to its wire form.
func DocumentsResponse(rec Record) map[DocumentType]SlotResponse {
	out := make(map[DocumentType]SlotResponse, len(DocumentTypes))
	for _, t := range DocumentTypes {
		slot := rec.Documents[t]
		resp := SlotResponse{Status: slot.Status, UploadedAt: slot.UploadedAt}
		if resp.Status == "" {
			resp.Status = SlotNotSubmitted
		}
		if slot.URL != "" {
			url := slot.URL
			resp.Path = &url
		}
		out[t] = resp
	}
	return out
}

func toMutationResponse(message string, rec Record) DocumentMutationResponse {
	return DocumentMutationResponse{
		Message:               message,
		VerificationDocuments: DocumentsResponse(rec),
		VerificationStatus:    rec.Status,
	}
}
