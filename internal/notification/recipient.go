package notification

import "github.com/google/uuid"

// Recipient is a resolved delivery target: the channel-specific address for
// a recipient id, produced by the contact resolver. The address holds
// whatever the channel needs (email address, E.164 phone number, device
// token, user id for the in-app inbox).
type Recipient struct {
	ID          uuid.UUID
	Kind        RecipientKind
	Address     string
	DisplayName string
}
