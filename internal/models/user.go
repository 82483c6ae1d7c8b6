package models

// UserBankIndex is the append-only set of banks a user has ever linked.
// Used only for discovery; banks are added, never removed.
type UserBankIndex struct {
	UserID string   `json:"user_id"`
	Banks  []string `json:"banks"`
}

// Has reports whether the index already contains the bank.
func (u *UserBankIndex) Has(bank string) bool {
	for _, b := range u.Banks {
		if b == bank {
			return true
		}
	}
	return false
}

// Add appends the bank if it is not already present.
func (u *UserBankIndex) Add(bank string) {
	if !u.Has(bank) {
		u.Banks = append(u.Banks, bank)
	}
}

// ProvisionStatus is the outcome of a first-time account linkage attempt.
type ProvisionStatus string

const (
	ProvisionAdded           ProvisionStatus = "added"
	ProvisionAlreadyExists   ProvisionStatus = "already_exists"
	ProvisionPendingApproval ProvisionStatus = "pending_approval"
)
