package api

// Identity service endpoints, as net/http method+path patterns.
const (
	UserCreate   = "POST /v1/users"
	UserRetrieve = "GET /v1/users/{id}"
	UserUpdate   = "PUT /v1/users/{id}"
	UserDelete   = "DELETE /v1/users/{id}"

	AuthLogin    = "POST /v1/auth"
	AuthRetrieve = "GET /v1/auth"
	AuthTouch    = "PUT /v1/auth"
	AuthLogout   = "DELETE /v1/auth"

	ConfIssue  = "POST /v1/conf"
	ConfRedeem = "PUT /v1/conf"
)

// PublicEndpoints defines endpoints that don't require authentication
var PublicEndpoints = map[string]bool{
	UserCreate: true,
	AuthLogin:  true,
	ConfIssue:  true,
	ConfRedeem: true,
}
