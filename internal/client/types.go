package client

// API paths relative to the server base URL.
const (
	SystemConfigurationPath = "/artifactory/api/system/configuration"
	RepositoryPathFmt       = "/artifactory/api/repositories/%s"
	UserPathFmt             = "/artifactory/api/security/users/%s"
	EncryptedPasswordPath   = "/artifactory/api/security/encryptedPassword"
)

// UserProfile is a user document as returned by the security users API.
type UserProfile map[string]any

// serverManagedUserFields are set by the server and rejected or ignored on update.
var serverManagedUserFields = []string{"lastLoggedIn", "lastLoggedInMillis", "realm", "offlineMode"}

// WithoutServerFields returns a copy of the profile without server-managed fields.
func (p UserProfile) WithoutServerFields() UserProfile {
	out := make(UserProfile, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, field := range serverManagedUserFields {
		delete(out, field)
	}
	return out
}
