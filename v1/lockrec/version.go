package lockrec

import "fmt"

// Version is the opaque compare-and-swap token the document store issues per
// record generation. Coordinators must treat it as a unit: read it, carry it,
// hand it back on the next conditional write.
type Version struct {
	seqNo       int64
	primaryTerm int64
}

// The store's sentinels for a document that has never been written.
const (
	unassignedSeqNo       = -2
	unassignedPrimaryTerm = 0
)

// UnassignedVersion marks a record with no stored counterpart yet. A
// conditional write carrying it must be create-only.
var UnassignedVersion = Version{seqNo: unassignedSeqNo, primaryTerm: unassignedPrimaryTerm}

// NewVersion builds a Version from the sequence number and primary term the
// store returned.
func NewVersion(seqNo, primaryTerm int64) Version {
	return Version{seqNo: seqNo, primaryTerm: primaryTerm}
}

// SeqNo returns the document sequence number.
func (v Version) SeqNo() int64 { return v.seqNo }

// PrimaryTerm returns the document primary term.
func (v Version) PrimaryTerm() int64 { return v.primaryTerm }

// Assigned reports whether the version was issued by the store.
func (v Version) Assigned() bool { return v != UnassignedVersion }

// Equal reports whether two tokens denote the same record generation.
func (v Version) Equal(o Version) bool { return v == o }

func (v Version) String() string {
	if !v.Assigned() {
		return "unassigned"
	}
	return fmt.Sprintf("%d/%d", v.seqNo, v.primaryTerm)
}
