package domain

// Identity is the authenticated caller of an operation.
type Identity struct {
	UserID int64
	Role   Role
}

// IsAdmin reports whether the caller may act on every user's records.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// OwnerScope returns the owner filter for queries made on the caller's
// behalf: nil for admins, the caller's own id otherwise.
func (i Identity) OwnerScope() *int64 {
	if i.IsAdmin() {
		return nil
	}
	id := i.UserID
	return &id
}

// CanAccess reports whether the caller may see a record owned by ownerID.
func (i Identity) CanAccess(ownerID int64) bool {
	return i.IsAdmin() || i.UserID == ownerID
}
