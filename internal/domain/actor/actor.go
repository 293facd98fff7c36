package actor

// Actor is a marketplace user as seen by reports: a customer or a seller.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// DisplayName returns the name, falling back to the email local part and then the ID.
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	for i := 0; i < len(a.Email); i++ {
		if a.Email[i] == '@' && i > 0 {
			return a.Email[:i]
		}
	}
	return a.ID
}
