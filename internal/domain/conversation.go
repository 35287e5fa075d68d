package domain

// Role tags who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid reports whether r is one of the roles persisted by the relay.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// Turn is a single persisted conversation entry. Turns are never edited once written.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"parts"`
}

// Conversation is the chronological, append-only history of one user.
type Conversation []Turn

// UserTurn builds a turn authored by the user.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// ModelTurn builds a turn authored by the model.
func ModelTurn(text string) Turn {
	return Turn{Role: RoleModel, Text: text}
}
