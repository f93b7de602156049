package verification

import (
	"testing"
	"time"
)

func slots(statuses ...SlotStatus) map[DocumentType]Slot {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := make(map[DocumentType]Slot, len(DocumentTypes))
	for i, t := range DocumentTypes {
		st := SlotNotSubmitted
		if i < len(statuses) {
			st = statuses[i]
		}
		if st == SlotNotSubmitted {
			docs[t] = EmptySlot()
			continue
		}
		docs[t] = Slot{Ref: "ref-" + string(t), URL: "u", UploadedAt: &at, Status: st}
	}
	return docs
}

func TestResolvers(t *testing.T) {
	cases := []struct {
		name     string
		docs     map[DocumentType]Slot
		previous AggregateStatus
		legacy   AggregateStatus
		strict   AggregateStatus
	}{
		{
			name:     "empty record",
			docs:     slots(),
			previous: StatusNotSubmitted,
			legacy:   StatusNotSubmitted,
			strict:   StatusNotSubmitted,
		},
		{
			name:     "all approved",
			docs:     slots(SlotApproved, SlotApproved, SlotApproved, SlotApproved),
			previous: StatusNotSubmitted,
			legacy:   StatusApproved,
			strict:   StatusApproved,
		},
		{
			name:     "all submitted one pending",
			docs:     slots(SlotApproved, SlotPending, SlotApproved, SlotApproved),
			previous: StatusApproved,
			legacy:   StatusPending,
			strict:   StatusPending,
		},
		{
			name:     "all submitted one rejected",
			docs:     slots(SlotApproved, SlotApproved, SlotRejected, SlotApproved),
			previous: StatusNotSubmitted,
			legacy:   StatusPending,
			strict:   StatusPending,
		},
		{
			name:     "incomplete after approval",
			docs:     slots(SlotApproved, SlotNotSubmitted, SlotApproved, SlotApproved),
			previous: StatusApproved,
			legacy:   StatusApproved,
			strict:   StatusNotSubmitted,
		},
		{
			name:     "incomplete while pending",
			docs:     slots(SlotPending),
			previous: StatusPending,
			legacy:   StatusPending,
			strict:   StatusNotSubmitted,
		},
		{
			name:     "garbage previous",
			docs:     slots(SlotApproved),
			previous: AggregateStatus("weird"),
			legacy:   StatusNotSubmitted,
			strict:   StatusNotSubmitted,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveLegacy(tc.docs, tc.previous); got != tc.legacy {
				t.Fatalf("legacy: got %s, want %s", got, tc.legacy)
			}
			if got := ResolveStrict(tc.docs, tc.previous); got != tc.strict {
				t.Fatalf("strict: got %s, want %s", got, tc.strict)
			}
		})
	}
}

func TestApprovedImpliesEverySlotApproved(t *testing.T) {
	combos := []SlotStatus{SlotNotSubmitted, SlotPending, SlotApproved, SlotRejected}
	for _, a := range combos {
		for _, b := range combos {
			for _, c := range combos {
				for _, d := range combos {
					docs := slots(a, b, c, d)
					if ResolveStrict(docs, StatusApproved) != StatusApproved {
						continue
					}
					for docType, slot := range docs {
						if slot.Status != SlotApproved || !slot.Submitted() {
							t.Fatalf("approved with %s in state %s", docType, slot.Status)
						}
					}
				}
			}
		}
	}
}

func TestResolverFor(t *testing.T) {
	docs := slots(SlotApproved)
	if got := ResolverFor("legacy")(docs, StatusApproved); got != StatusApproved {
		t.Fatalf("legacy mode: got %s", got)
	}
	for _, mode := range []string{"strict", "", "unknown"} {
		if got := ResolverFor(mode)(docs, StatusApproved); got != StatusNotSubmitted {
			t.Fatalf("mode %q: got %s", mode, got)
		}
	}
}

func TestPolicyFor(t *testing.T) {
	if got := PolicyFor("manual").InitialStatus(DocGovernmentID); got != SlotPending {
		t.Fatalf("manual: got %s", got)
	}
	if got := PolicyFor("").InitialStatus(DocGovernmentID); got != SlotApproved {
		t.Fatalf("default: got %s", got)
	}
}
