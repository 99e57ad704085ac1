package domain

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

// Principal is the authenticated caller as asserted by the identity provider.
type Principal struct {
	Subject string
	Roles   []string
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p Principal) IsAdmin() bool { return p.HasRole(RoleAdmin) }

// CanSee reports whether p may read data owned by ownerID.
func (p Principal) CanSee(ownerID string) bool {
	return p.Subject != "" && (p.Subject == ownerID || p.IsAdmin())
}
