package model

// Contact is the data structure for a person that we know.
// Name and Phone are always set for a stored contact; Email is nil when absent.
type Contact struct {
	Id    int64   `db:"id"`
	Name  string  `db:"name"`
	Phone string  `db:"phone"`
	Email *string `db:"email"`
}

// Changes holds the values an operator typed in to update a contact. A blank field keeps the
// current value of the contact.
type Changes struct {
	Name  string
	Phone string
	Email string
}

// EmailOr returns the email address of the contact, or the fallback if the contact has none.
func (c Contact) EmailOr(fallback string) string {
	if c.Email == nil || *c.Email == "" {
		return fallback
	}
	return *c.Email
}
