package domain

// User identifies an owner of templates, instances and accounts. Session
// handling lives in the identity provider; the backend only resolves the
// token subject to a local user id.
type User struct {
	ID      int32  `json:"id"`
	Auth0ID string `json:"-"`
	Email   string `json:"email"`
}

type UserRepository interface {
	GetByAuth0ID(auth0ID string) (*User, error)
}
