package common

// Cookie names used to carry the session tokens between server and client.
const (
	AccessTokenCookieName  = "accessToken"
	RefreshTokenCookieName = "refreshToken"
)
