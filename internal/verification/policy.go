package verification

import (
	"strings"
)

// ApprovalPolicy decides the status a freshly uploaded document starts in.
type ApprovalPolicy interface {
	InitialStatus(docType DocumentType) SlotStatus
}

const (
	PolicyAuto   = "auto"
	PolicyManual = "manual"
)

// AutoApprove accepts every upload immediately.
type AutoApprove struct{}

func (AutoApprove) InitialStatus(DocumentType) SlotStatus { return SlotApproved }

// ManualQueue leaves uploads pending until ReviewDocument records a decision.
type ManualQueue struct{}

func (ManualQueue) InitialStatus(DocumentType) SlotStatus { return SlotPending }

// PolicyFor picks a policy by name, defaulting to AutoApprove.
func PolicyFor(mode string) ApprovalPolicy {
	if strings.EqualFold(strings.TrimSpace(mode), PolicyManual) {
		return ManualQueue{}
	}
	return AutoApprove{}
}
