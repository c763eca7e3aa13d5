// Package session holds the per-query settings that influence planning.
package session

import (
	"maps"
	"strconv"

	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
)

// OptimizeHashGeneration is the system property that switches the hash
// generation optimizer on or off for a session.
const OptimizeHashGeneration = "optimize_hash_generation"

// Session carries the system properties set for a query.
type Session struct {
	User       string
	properties map[string]string
}

// New creates a Session for user with the given system properties.
// properties is copied.
func New(user string, properties map[string]string) *Session {
	s := &Session{User: user, properties: make(map[string]string, len(properties))}
	maps.Copy(s.properties, properties)
	return s
}

// Property returns the raw value of the system property name and whether it
// is set.
func (s *Session) Property(name string) (string, bool) {
	v, ok := s.properties[name]
	return v, ok
}

// Properties returns a copy of all system properties of s.
func (s *Session) Properties() map[string]string {
	return maps.Clone(s.properties)
}

// IsOptimizeHashGenerationEnabled resolves the [OptimizeHashGeneration]
// property of s. defaultValue applies when the session does not set it.
func IsOptimizeHashGenerationEnabled(s *Session, defaultValue bool) (bool, error) {
	return boolProperty(s, OptimizeHashGeneration, defaultValue)
}

func boolProperty(s *Session, name string, defaultValue bool) (bool, error) {
	if err := errors.CheckNotNil(s != nil, "session"); err != nil {
		return false, err
	}
	raw, ok := s.properties[name]
	if !ok {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.Preconditionf("session property %s=%q is not a boolean", name, raw)
	}
	return v, nil
}
