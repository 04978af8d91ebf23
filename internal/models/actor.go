package models

// Actor identifies the operator performing a reconciliation or escalation
// action. Always passed explicitly; there is no ambient current user.
type Actor struct {
	ID   string
	Name string
}
