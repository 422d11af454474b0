package users

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// User is the clinic account profile returned by the backend.
type User struct {
	ID         string     `json:"user_id"`               // Backend identifier, e.g. "user_3f9c..."
	Email      string     `json:"email"`                 // Login email
	Name       string     `json:"name"`                  // Display name
	ClinicName string     `json:"clinic_name,omitempty"` // Name of the clinic the account belongs to
	Picture    string     `json:"picture,omitempty"`     // Avatar URL, set for Google sign-ins
	Phone      string     `json:"phone,omitempty"`
	Language   string     `json:"language,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// UnmarshalJSON accepts the identifier as either "user_id" or "id".
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	aux := struct {
		*alias
		AltID string `json:"id"`
	}{alias: (*alias)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = aux.AltID
	}
	return nil
}

// IsZero reports whether the profile carries no identity at all.
func (u *User) IsZero() bool {
	return u == nil || (u.ID == "" && u.Email == "")
}

// DisplayName returns the name, falling back to the email address.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Email
}

// Credentials is the email/password login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c Credentials) Validate() error {
	return required(map[string]string{"email": c.Email, "password": c.Password})
}

// Registration is the payload for creating a new clinic account.
type Registration struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	ClinicName string `json:"clinic_name"`
}

func (r Registration) Validate() error {
	return required(map[string]string{
		"name":        r.Name,
		"email":       r.Email,
		"password":    r.Password,
		"clinic_name": r.ClinicName,
	})
}

func required(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return fmt.Errorf("required fields missing: %s", strings.Join(missing, ", "))
}
