package uitemplates

// ActiveUserParams holds information about the active user.
type ActiveUserParams struct {
	// LoggedIn is true if the current user is logged in.
	LoggedIn bool

	// DisplayName is the user's display name, falling back to their email.
	DisplayName string
}
