// Package artifactorytest provides an in-process stand-in for the Artifactory
// REST endpoints the sync tool uses.
package artifactorytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"
)

// DefaultConfigXML is the system configuration served by a new Server.
const DefaultConfigXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<config xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns="http://artifactory.jfrog.org/xsd/2.1.0">
    <offlineMode>false</offlineMode>
    <serverName>art-test</serverName>
    <security>
        <anonAccessEnabled>false</anonAccessEnabled>
        <ldapSettings>
            <host>ldap://b</host>
        </ldapSettings>
    </security>
    <localRepositories>
        <localRepository>
            <key>existing-local</key>
        </localRepository>
    </localRepositories>
</config>
`

// Call records one request that passed authentication.
type Call struct {
	Method string
	Path   string
	User   string
}

// Server is a fake Artifactory backed by in-memory state. All fields are
// guarded by the server's mutex; use the accessor methods from tests.
type Server struct {
	mu           sync.Mutex
	httpServer   *httptest.Server
	passwords    map[string]string
	users        map[string]map[string]any
	repositories map[string]map[string]any
	configXML    []byte
	configPushes int
	calls        []Call

	// RejectConfig makes configuration pushes fail with 400.
	RejectConfig bool
	// FailConfigFetch makes configuration reads fail with 500.
	FailConfigFetch bool
	// FailRepositories makes writes to these repository keys fail with 500.
	FailRepositories map[string]bool
	// ProbeStatus, when non-zero, is returned by the encrypted password
	// endpoint instead of the normal 200/401 behaviour.
	ProbeStatus int
}

// New starts a Server with one admin account.
func New(adminUser, adminPassword string) *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		passwords:        map[string]string{adminUser: adminPassword},
		users:            map[string]map[string]any{},
		repositories:     map[string]map[string]any{"existing-local": {"key": "existing-local", "rclass": "local"}},
		configXML:        []byte(DefaultConfigXML),
		FailRepositories: map[string]bool{},
	}
	s.users[adminUser] = map[string]any{
		"name":               adminUser,
		"email":              adminUser + "@example.com",
		"admin":              true,
		"realm":              "internal",
		"lastLoggedIn":       "2024-01-01T00:00:00.000Z",
		"lastLoggedInMillis": 1704067200000,
		"groups":             []any{"readers"},
	}
	s.httpServer = httptest.NewServer(s.router())
	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string { return s.httpServer.URL }

// Close shuts the server down.
func (s *Server) Close() { s.httpServer.Close() }

// AddUser registers an account.
func (s *Server) AddUser(name, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passwords[name] = password
	s.users[name] = map[string]any{"name": name, "email": name + "@example.com", "realm": "internal"}
}

// Password returns the current password of name.
func (s *Server) Password(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passwords[name]
}

// SetConfigXML replaces the served system configuration.
func (s *Server) SetConfigXML(xml string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configXML = []byte(xml)
}

// ConfigXML returns the current system configuration.
func (s *Server) ConfigXML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.configXML)
}

// ConfigPushes counts accepted configuration pushes.
func (s *Server) ConfigPushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configPushes
}

// Repository returns the stored definition for key.
func (s *Server) Repository(key string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.repositories[key]
	return repo, ok
}

// Calls returns the authenticated requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// WriteCalls returns the PUT and POST calls, in order.
func (s *Server) WriteCalls() []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == http.MethodPut || c.Method == http.MethodPost {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	api := r.Group("/artifactory/api", s.authenticate)

	api.GET("/system/configuration", s.getConfiguration)
	api.POST("/system/configuration", s.postConfiguration)
	api.GET("/repositories/:key", s.getRepository)
	api.PUT("/repositories/:key", s.createRepository)
	api.POST("/repositories/:key", s.updateRepository)
	api.GET("/security/users/:name", s.getUser)
	api.POST("/security/users/:name", s.updateUser)
	api.GET("/security/encryptedPassword", s.encryptedPassword)
	return r
}

func (s *Server) authenticate(c *gin.Context) {
	user, pass, ok := c.Request.BasicAuth()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok || s.passwords[user] != pass || pass == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"errors": []gin.H{{"status": 401, "message": "Bad credentials"}}})
		return
	}
	s.calls = append(s.calls, Call{Method: c.Request.Method, Path: c.Request.URL.Path, User: user})
}

func (s *Server) getConfiguration(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailConfigFetch {
		c.String(http.StatusInternalServerError, "configuration unavailable")
		return
	}
	c.Data(http.StatusOK, "application/xml", s.configXML)
}

func (s *Server) postConfiguration(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RejectConfig {
		c.String(http.StatusBadRequest, "invalid configuration")
		return
	}
	s.configXML = body
	s.configPushes++
	c.String(http.StatusOK, "Reload of new configuration (0 ms) succeeded")
}

func (s *Server) getRepository(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.repositories[c.Param("key")]
	if !ok {
		// Artifactory answers 400 rather than 404 for unknown repository keys
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"status": 400, "message": "Bad Request"}}})
		return
	}
	c.JSON(http.StatusOK, repo)
}

func (s *Server) createRepository(c *gin.Context) {
	s.writeRepository(c, true)
}

func (s *Server) updateRepository(c *gin.Context) {
	s.writeRepository(c, false)
}

func (s *Server) writeRepository(c *gin.Context, create bool) {
	key := c.Param("key")
	var def map[string]any
	if err := c.ShouldBindJSON(&def); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailRepositories[key] {
		c.String(http.StatusInternalServerError, "storage failure")
		return
	}
	_, exists := s.repositories[key]
	switch {
	case create && exists:
		c.String(http.StatusBadRequest, fmt.Sprintf("Repository %s already exists", key))
		return
	case !create && !exists:
		c.String(http.StatusBadRequest, fmt.Sprintf("Repository %s does not exist", key))
		return
	}
	if def["rclass"] == "virtual" {
		members, _ := def["repositories"].([]any)
		for _, m := range members {
			member, _ := m.(string)
			if _, ok := s.repositories[member]; !ok {
				c.String(http.StatusBadRequest, fmt.Sprintf("Repository %s does not exist", member))
				return
			}
		}
	}
	s.repositories[key] = def
	if create {
		c.String(http.StatusOK, fmt.Sprintf("Successfully created repository '%s'", key))
		return
	}
	c.String(http.StatusOK, fmt.Sprintf("Repository %s update successfully.", key))
}

func (s *Server) getUser(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[c.Param("name")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"errors": []gin.H{{"status": 404, "message": "User not found"}}})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) updateUser(c *gin.Context) {
	name := c.Param("name")
	var profile map[string]any
	if err := json.NewDecoder(c.Request.Body).Decode(&profile); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[name]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"errors": []gin.H{{"status": 404, "message": "User not found"}}})
		return
	}
	for _, field := range []string{"lastLoggedIn", "lastLoggedInMillis", "realm"} {
		if _, present := profile[field]; present {
			c.String(http.StatusBadRequest, fmt.Sprintf("field %s is read only", field))
			return
		}
	}
	if password, ok := profile["password"].(string); ok {
		s.passwords[name] = password
		delete(profile, "password")
	}
	profile["realm"] = "internal"
	s.users[name] = profile
	c.Status(http.StatusOK)
}

func (s *Server) encryptedPassword(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ProbeStatus != 0 {
		c.String(s.ProbeStatus, "probe failure")
		return
	}
	c.String(http.StatusOK, "AP6xxxxxxxxxxxxxxxxxxxxxxx")
}
