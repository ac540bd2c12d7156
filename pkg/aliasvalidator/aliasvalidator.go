// Package aliasvalidator holds the stateless checks a proposed alias name
// and filter must pass before they can be attached to an index: no object
// identity is needed, so every check is a plain function.
package aliasvalidator

import (
	"strings"

	"github.com/cuemby/clustermeta/pkg/metaerr"
)

// maxNameLength is the shared index-or-alias name length limit.
const maxNameLength = 255

// IndexLookup resolves a user-visible name to whether it currently names a
// concrete index. Supplied by the caller, which owns the wider metadata
// graph this package cannot see.
type IndexLookup func(name string) bool

// ValidateAliasStandalone checks an alias name and optional index routing
// in isolation, with no reference to the rest of the catalog: the name is
// non-empty, obeys the shared index-or-alias name rule, and the routing (if
// set) contains no comma.
func ValidateAliasStandalone(alias string, indexRouting *string) error {
	if err := validateName(alias); err != nil {
		return err
	}
	if indexRouting != nil && strings.Contains(*indexRouting, ",") {
		return metaerr.InvalidInputf("alias [%s] index routing must not contain ','", alias)
	}
	return nil
}

// ValidateAlias runs the standalone checks, requires a non-empty index
// name, and rejects an alias name that already names a concrete index.
func ValidateAlias(aliasName, indexName string, indexRouting *string, lookup IndexLookup) error {
	if err := ValidateAliasStandalone(aliasName, indexRouting); err != nil {
		return err
	}
	if indexName == "" {
		return metaerr.InvalidInputf("alias [%s] requires a non-empty index name", aliasName)
	}
	if lookup != nil && lookup(aliasName) {
		return metaerr.Conflictf("alias", "invalid alias name [%s]: an index with the same name already exists", aliasName)
	}
	return nil
}

// FilterCompiler parses, rewrites to canonical form, and compiles a filter
// body. Supplied by the caller: filter-language parsing is an external
// concern this package only orchestrates around.
type FilterCompiler func(filterJSON []byte) error

// ValidateAliasFilter compiles filterJSON via compile and wraps any failure
// as an alias-filter error naming alias.
func ValidateAliasFilter(alias string, filterJSON []byte, compile FilterCompiler) error {
	if compile == nil || len(filterJSON) == 0 {
		return nil
	}
	if err := compile(filterJSON); err != nil {
		return metaerr.Wrap(metaerr.InvalidInput, err, "failed to parse filter for alias [%s]", alias)
	}
	return nil
}

// validateName enforces the shared index-or-alias name rule: no leading
// underscore, no uppercase, none of the reserved characters, not "." or
// "..", and a total byte length within the shared limit.
func validateName(name string) error {
	if name == "" {
		return metaerr.InvalidInputf("name must not be empty")
	}
	if name == "." || name == ".." {
		return metaerr.InvalidInputf("name must not be '.' or '..'")
	}
	if len(name) > maxNameLength {
		return metaerr.InvalidInputf("name [%s] is too long, exceeds %d bytes", name, maxNameLength)
	}
	if strings.HasPrefix(name, "_") {
		return metaerr.InvalidInputf("name [%s] must not start with '_'", name)
	}
	if strings.ToLower(name) != name {
		return metaerr.InvalidInputf("name [%s] must be lowercase", name)
	}
	for _, r := range reservedCharacters {
		if strings.ContainsRune(name, r) {
			return metaerr.InvalidInputf("name [%s] must not contain '%c'", name, r)
		}
	}
	return nil
}

var reservedCharacters = []rune{' ', ',', '"', '*', '\\', '<', '|', '>', '?', '/', ':'}
