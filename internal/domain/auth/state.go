package auth

// Phase is the lifecycle phase of a client's session.
type Phase string

const (
	PhaseInitializing    Phase = "initializing"
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseResolving       Phase = "resolving"
	PhaseAuthenticated   Phase = "authenticated"
	// PhaseDenied is transient: the forced provider sign-out moves it to PhaseUnauthenticated.
	PhaseDenied Phase = "denied"
)

// SessionState is the authoritative per-client view of authentication.
// Profile is non-nil iff Phase is PhaseAuthenticated.
type SessionState struct {
	Phase     Phase        `json:"phase"`
	Identity  *Identity    `json:"identity,omitempty"`
	Profile   *UserProfile `json:"profile,omitempty"`
	Loading   bool         `json:"loading"`
	Error     string       `json:"error,omitempty"`
	ErrorKind ErrorKind    `json:"errorKind,omitempty"`
	IsDemo    bool         `json:"isDemo"`
}

// Initial returns the state every client starts in.
func Initial() SessionState {
	return SessionState{Phase: PhaseInitializing, Loading: true}
}

// Authenticated reports whether a resolved profile is present.
func (s SessionState) Authenticated() bool { return s.Profile != nil }

// Role returns the profile role, or nil when there is no profile.
func (s SessionState) Role() *Role {
	if s.Profile == nil {
		return nil
	}
	r := s.Profile.Role
	return &r
}

// Clone returns a deep copy so snapshots never alias machine-owned pointers.
func (s SessionState) Clone() SessionState {
	out := s
	if s.Identity != nil {
		id := *s.Identity
		out.Identity = &id
	}
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	return out
}

// WithError returns a copy of s carrying the message for kind.
func (s SessionState) WithError(kind ErrorKind) SessionState {
	s.ErrorKind = kind
	s.Error = kind.Message()
	return s
}
