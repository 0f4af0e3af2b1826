package domain

// Identity is the caller on whose behalf an operation runs.
type Identity struct {
	UserID  uint64
	IsAdmin bool
}

// CanModify reports whether the caller owns the resource or is an administrator.
func (i Identity) CanModify(ownerID uint64) bool {
	return i.IsAdmin || i.UserID == ownerID
}
