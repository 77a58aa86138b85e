package domain

// TokenType is the scheme clients use when presenting an access token.
const TokenType = "Bearer"

// SessionTokens is the credential pair returned by sign-in and refresh.
type SessionTokens struct {
	UserID       int64
	Email        string
	Role         UserRole
	TokenType    string
	AccessToken  string
	AccessTTLMs  int64
	RefreshToken string
	RefreshTTLMs int64
}
