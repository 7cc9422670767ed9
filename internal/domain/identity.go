package domain

// IdentityKind discriminates registered users from ephemeral guests.
type IdentityKind int

const (
	IdentityRegistered IdentityKind = iota
	IdentityGuest
)

// Identity is a tagged participant identity: either a registered user id
// or an ephemeral guest id, never both.
type Identity struct {
	Kind IdentityKind
	ID   string
}

func RegisteredIdentity(userID string) Identity {
	return Identity{Kind: IdentityRegistered, ID: userID}
}

func GuestIdentity(guestID string) Identity {
	return Identity{Kind: IdentityGuest, ID: guestID}
}

func (i Identity) IsRegistered() bool { return i.Kind == IdentityRegistered }

func (i Identity) IsGuest() bool { return i.Kind == IdentityGuest }
