package session

// Role is a named role slug assigned to a principal (e.g. "parent",
// "teacher", "admin").
type Role struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Permission is a named permission slug assigned to a principal
// (e.g. "view-students").
type Permission struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Principal is the authenticated user. Populated atomically on login,
// cleared atomically on logout; between those, only UpdateProfile changes
// its mutable fields.
type Principal struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Roles       []Role       `json:"roles"`
	Permissions []Permission `json:"permissions"`
}

// HasRole reports whether the principal holds the role slug.
func (p *Principal) HasRole(slug string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r.Slug == slug {
			return true
		}
	}
	return false
}

// HasPermission reports whether the principal holds the permission slug.
func (p *Principal) HasPermission(slug string) bool {
	if p == nil {
		return false
	}
	for _, perm := range p.Permissions {
		if perm.Slug == slug {
			return true
		}
	}
	return false
}
