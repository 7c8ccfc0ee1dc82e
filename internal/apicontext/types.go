package apicontext

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// EnvContext selects a context for one invocation.
const EnvContext = "ARENA_CONTEXT"

const maxNameLength = 63

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$|^[a-z0-9]$`)

// Settings override CLI defaults while a context is selected.
type Settings struct {
	// Output is the default output format (table, json, yaml).
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// Context is a named API backend.
type Context struct {
	Name     string    `yaml:"name" json:"name"`
	BaseURL  string    `yaml:"base_url" json:"baseUrl"`
	Settings *Settings `yaml:"settings,omitempty" json:"settings,omitempty"`
}

// File is the contexts.yaml document.
type File struct {
	CurrentContext string    `yaml:"current-context,omitempty"`
	Contexts       []Context `yaml:"contexts,omitempty"`
}

// NotFoundError is returned for an unknown context name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("context %q not found, run 'arena context list' to see the configured contexts", e.Name)
}

// ValidateName checks that name is 1-63 lowercase letters, digits and
// hyphens, starting and ending with a letter or digit.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("context name cannot be empty")
	case len(name) > maxNameLength:
		return fmt.Errorf("context name cannot exceed %d characters", maxNameLength)
	case !namePattern.MatchString(name):
		return fmt.Errorf("context name must contain only lowercase letters, numbers, and hyphens, and must start and end with an alphanumeric character")
	}
	return nil
}

// ValidateBaseURL accepts absolute http and https URLs.
func ValidateBaseURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base URL must be an absolute http or https URL, got %q", raw)
	}
	return nil
}

// Get returns the named context or nil.
func (f *File) Get(name string) *Context {
	for i := range f.Contexts {
		if f.Contexts[i].Name == name {
			return &f.Contexts[i]
		}
	}
	return nil
}

func (f *File) Has(name string) bool {
	return f.Get(name) != nil
}

// Put adds c or replaces the context with the same name.
func (f *File) Put(c Context) {
	if existing := f.Get(c.Name); existing != nil {
		*existing = c
		return
	}
	f.Contexts = append(f.Contexts, c)
}

// Remove deletes the named context and clears CurrentContext if it pointed
// there. It reports whether the context existed.
func (f *File) Remove(name string) bool {
	for i := range f.Contexts {
		if f.Contexts[i].Name == name {
			f.Contexts = append(f.Contexts[:i], f.Contexts[i+1:]...)
			if f.CurrentContext == name {
				f.CurrentContext = ""
			}
			return true
		}
	}
	return false
}
