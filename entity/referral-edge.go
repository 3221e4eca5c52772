package entity

// ReferralEdge is a denormalized ancestor row: one per ancestor within
// MaxDepth of a member, written once at enrollment and immutable after.
// GenerationDistance equals the number of sponsor hops (1 = direct sponsor).
type ReferralEdge struct {
	MemberId           string `json:"member_id"`
	AncestorId         string `json:"ancestor_id"`
	GenerationDistance int    `json:"generation_distance"`
}
