package models

// LinkError identifies why a link operation was refused. Errors cross the
// service boundary as tagged results, never as panics; callers translate
// them into generic user-facing denials.
type LinkError string

const (
	ErrAlreadyLinked           LinkError = "ALREADY_LINKED"
	ErrTokenCreationFailed     LinkError = "TOKEN_CREATION_FAILED"
	ErrInvalidToken            LinkError = "INVALID_TOKEN"
	ErrSteamVerificationFailed LinkError = "STEAM_VERIFICATION_FAILED"
	ErrInvalidSteamID          LinkError = "INVALID_STEAM_ID"
	ErrSteamAlreadyLinked      LinkError = "STEAM_ALREADY_LINKED"
	ErrLinkProcessFailed       LinkError = "LINK_PROCESS_FAILED"
	ErrUserNotFound            LinkError = "USER_NOT_FOUND"
	ErrUnlinkFailed            LinkError = "UNLINK_FAILED"
)

// TokenResult is the outcome of a link initiation.
type TokenResult struct {
	Success bool
	Error   LinkError
	Token   *LinkToken
	// Existing carries the current record when initiation is refused
	// because the account is already linked.
	Existing *LinkRecord
}

// CallbackResult is the outcome of redeeming a token against a verified
// Steam assertion.
type CallbackResult struct {
	Success bool
	Error   LinkError
	Record  *LinkRecord
}

// UnlinkResult is the outcome of a privileged unlink.
type UnlinkResult struct {
	Success bool
	Error   LinkError
	// Removed is the record as it existed before deletion.
	Removed *LinkRecord
}
