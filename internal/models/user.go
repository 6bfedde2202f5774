package models

// UserProfile is the stored profile of a signed-in user, keyed by UID.
type UserProfile struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	Country     string `json:"country,omitempty"`
}

// ProfileUpdate is a merge write; nil fields keep their stored value.
type ProfileUpdate struct {
	Email       *string
	DisplayName *string
	PhotoURL    *string
	Address     *string
	City        *string
	PostalCode  *string
	Country     *string
}

// Empty reports whether u would change nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Email == nil && u.DisplayName == nil && u.PhotoURL == nil &&
		u.Address == nil && u.City == nil && u.PostalCode == nil && u.Country == nil
}

// Apply writes the present fields of u onto p.
func (u ProfileUpdate) Apply(p *UserProfile) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.Email, u.Email)
	set(&p.DisplayName, u.DisplayName)
	set(&p.PhotoURL, u.PhotoURL)
	set(&p.Address, u.Address)
	set(&p.City, u.City)
	set(&p.PostalCode, u.PostalCode)
	set(&p.Country, u.Country)
}
