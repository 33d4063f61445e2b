package entity

// Participant is a chat member. Identity is the email address; the name is
// informational only.
type Participant struct {
	name  ParticipantName
	email EmailAddress
}

func NewParticipant(name ParticipantName, email EmailAddress) Participant {
	return Participant{name: name, email: email}
}

// ParticipantOf validates raw strings on the way in.
func ParticipantOf(name, email string) (Participant, error) {
	n, err := NewParticipantName(name)
	if err != nil {
		return Participant{}, err
	}
	e, err := NewEmailAddress(email)
	if err != nil {
		return Participant{}, err
	}
	return Participant{name: n, email: e}, nil
}

func (p Participant) Name() ParticipantName { return p.name }
func (p Participant) Email() EmailAddress   { return p.email }

// Equal compares by email only.
func (p Participant) Equal(other Participant) bool {
	return p.email == other.email
}

func (p Participant) String() string {
	return p.name.String() + " <" + p.email.String() + ">"
}
