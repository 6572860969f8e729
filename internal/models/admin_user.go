package models

import "time"

// AdminUser is one row of the operator user directory
type AdminUser struct {
	UID        string     `json:"uid"`
	FullName   string     `json:"fullName"`
	Email      string     `json:"email"`
	Bio        string     `json:"bio"`
	PhotoURL   string     `json:"photoUrl"`
	CrownPrice float64    `json:"crownPrice"`
	IsActive   bool       `json:"isActive"`
	UpdatedAt  *time.Time `json:"updatedAt"`
}

// AdminUserFromCandidate flattens c for the directory. Unset fields become
// empty values; a missing updatedAt stays null.
func AdminUserFromCandidate(c *Candidate) *AdminUser {
	u := &AdminUser{
		UID:        c.ID,
		FullName:   c.FullName,
		Email:      c.Email,
		Bio:        c.Bio,
		PhotoURL:   c.PhotoURL,
		CrownPrice: c.BidAmount(),
		IsActive:   c.IsActive,
	}
	if c.UpdatedAt > 0 {
		t := c.UpdatedAt.Time()
		u.UpdatedAt = &t
	}
	return u
}
