// Package aur is a client for the Arch User Repository RPC v5 API.
//
// All queries go through a shared rate limiter and a retrying HTTP layer, so
// the client can be hammered by concurrent callers without hammering the AUR.
package aur

import "strings"

// Package is one AUR package record as returned by the RPC API.
// Records are immutable once decoded.
type Package struct {
	ID             int64    `json:"ID"`
	Name           string   `json:"Name"`
	PackageBase    string   `json:"PackageBase"`
	Version        string   `json:"Version"`
	Description    string   `json:"Description"`
	URL            string   `json:"URL"`
	Maintainer     string   `json:"Maintainer"`
	FirstSubmitted int64    `json:"FirstSubmitted"`
	LastModified   int64    `json:"LastModified"`
	NumVotes       int      `json:"NumVotes"`
	Popularity     float64  `json:"Popularity"`
	OutOfDate      *int64   `json:"OutOfDate"`
	Depends        []string `json:"Depends"`
	MakeDepends    []string `json:"MakeDepends"`
	OptDepends     []string `json:"OptDepends"`
	CheckDepends   []string `json:"CheckDepends"`
	Conflicts      []string `json:"Conflicts"`
	Provides       []string `json:"Provides"`
	Replaces       []string `json:"Replaces"`
	Keywords       []string `json:"Keywords"`
	License        []string `json:"License"`
}

// AllDepends returns the runtime and build-only dependencies, in that order.
// This is the set the resolver walks before a package can be built.
func (p *Package) AllDepends() []string {
	deps := make([]string, 0, len(p.Depends)+len(p.MakeDepends))
	deps = append(deps, p.Depends...)
	deps = append(deps, p.MakeDepends...)
	return deps
}

// response is the RPC result envelope shared by all query endpoints.
type response struct {
	Version     int       `json:"version"`
	Type        string    `json:"type"`
	ResultCount int       `json:"resultcount"`
	Results     []Package `json:"results"`
	Error       string    `json:"error"`
}

// isError reports whether the envelope signals a server-side logical error.
func (r *response) isError() bool { return r.Type == "error" }

// errorMessage returns the server-provided message, or a placeholder.
func (r *response) errorMessage() string {
	if r.Error != "" {
		return r.Error
	}
	return "unknown error"
}

// StripVersionQualifier removes a version constraint from a dependency
// string, e.g. "glibc>=2.38" becomes "glibc".
func StripVersionQualifier(dep string) string {
	if i := strings.IndexAny(dep, "<>= "); i >= 0 {
		return dep[:i]
	}
	return dep
}
