package verification

import "strings"

// Resolver derives the aggregate status from the four slots and the previous aggregate.
type Resolver func(docs map[DocumentType]Slot, previous AggregateStatus) AggregateStatus

const (
	ResolverStrict = "strict"
	ResolverLegacy = "legacy"
)

// ResolverFor picks a resolver by name. Unknown names get the strict resolver.
func ResolverFor(mode string) Resolver {
	if strings.EqualFold(strings.TrimSpace(mode), ResolverLegacy) {
		return ResolveLegacy
	}
	return ResolveStrict
}

// ResolveLegacy keeps the previous aggregate while any slot is empty,
// so an approved record stays approved after a document is removed.
func ResolveLegacy(docs map[DocumentType]Slot, previous AggregateStatus) AggregateStatus {
	allSubmitted, allApproved := tally(docs)
	switch {
	case allSubmitted && allApproved:
		return StatusApproved
	case allSubmitted:
		return StatusPending
	}
	if !previous.Valid() {
		return StatusNotSubmitted
	}
	return previous
}

// ResolveStrict downgrades to not_submitted as soon as any slot is empty.
func ResolveStrict(docs map[DocumentType]Slot, _ AggregateStatus) AggregateStatus {
	allSubmitted, allApproved := tally(docs)
	switch {
	case allSubmitted && allApproved:
		return StatusApproved
	case allSubmitted:
		return StatusPending
	}
	return StatusNotSubmitted
}

func tally(docs map[DocumentType]Slot) (allSubmitted, allApproved bool) {
	allSubmitted, allApproved = true, true
	for _, t := range DocumentTypes {
		slot, ok := docs[t]
		if !ok || !slot.Submitted() {
			allSubmitted = false
		}
		if !ok || slot.Status != SlotApproved {
			allApproved = false
		}
	}
	return allSubmitted, allApproved
}
