// internal/config/models.go
// Package config provides configuration loading, validation, and data models.
package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Credentials is a username and secret pair used for basic auth.
type Credentials struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// RepositoryClass is the declared category of a repository definition.
type RepositoryClass string

const (
	ClassLocal   RepositoryClass = "local"
	ClassRemote  RepositoryClass = "remote"
	ClassVirtual RepositoryClass = "virtual"
)

// RepositoryClassOrder is the order in which classes are applied. Virtual
// repositories aggregate local and remote ones, so they come last.
var RepositoryClassOrder = []RepositoryClass{ClassLocal, ClassRemote, ClassVirtual}

// RepositoryDefinition is one repository configuration document as sent to
// the repositories API.
type RepositoryDefinition map[string]any

// Key returns the repository key, or "" when it is missing or not a string.
func (d RepositoryDefinition) Key() string {
	key, _ := d["key"].(string)
	return key
}

// Class returns the rclass value, or "" when it is missing or not a string.
func (d RepositoryDefinition) Class() RepositoryClass {
	rclass, _ := d["rclass"].(string)
	return RepositoryClass(rclass)
}

// repositoryHeader holds the fields every definition must carry.
type repositoryHeader struct {
	Key    string `validate:"required"`
	RClass string `validate:"required,oneof=local remote virtual"`
}

var (
	ErrMissingKey    = errors.New("definition has no key")
	ErrMissingRClass = errors.New("definition has no rclass")
	ErrUnknownRClass = errors.New("definition has an unrecognised rclass")
)

// Validate checks that the definition has a key and a known rclass.
func (d RepositoryDefinition) Validate() error {
	header := repositoryHeader{Key: d.Key(), RClass: string(d.Class())}
	err := validate.Struct(header)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	// report rclass problems first, they decide whether the file is usable at all
	for _, fe := range fieldErrs {
		if fe.Field() == "RClass" {
			if _, present := d["rclass"]; !present {
				return ErrMissingRClass
			}
			return fmt.Errorf("%w '%v'", ErrUnknownRClass, d["rclass"])
		}
	}
	return ErrMissingKey
}
