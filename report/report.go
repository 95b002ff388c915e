// Copyright 2020-2024 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package report defines the error taxonomy of the generator. All fatal
// conditions abort generation of the whole file with no partial output;
// callers can classify a failure with errors.Is against the category
// sentinels.
package report

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaInconsistency indicates a descriptor tree that violates an
	// invariant the generator depends on: a duplicate wire tag within one
	// message, a malformed map-entry type, or an oneof with no member
	// fields. These are produced by a broken upstream parser, not by user
	// configuration.
	ErrSchemaInconsistency = errors.New("schema inconsistency")

	// ErrConfigurationConflict indicates two incompatible single-valued
	// overrides registered for the same path, such as duplicate extern
	// path registrations for one qualified name.
	ErrConfigurationConflict = errors.New("configuration conflict")

	// ErrUnresolvableType indicates a referenced type name that resolves
	// neither locally nor through the extern registry. A prior validation
	// pass is assumed to guarantee referential closure, so this points at
	// an upstream descriptor-consistency bug.
	ErrUnresolvableType = errors.New("unresolvable type")
)

// SymbolError is an error about a named schema element. The value of
// Error() includes the file and fully-qualified symbol when present; the
// value of Unwrap() is the category sentinel, so errors.Is works against
// ErrSchemaInconsistency and friends.
type SymbolError struct {
	// File is the descriptor file name; may be empty for errors raised
	// during configuration, before any file is in scope.
	File string
	// Symbol is the fully-qualified name of the offending element; may be
	// empty when the error concerns the file as a whole.
	Symbol string

	category error
	detail   string
}

func (e *SymbolError) Error() string {
	switch {
	case e.File != "" && e.Symbol != "":
		return fmt.Sprintf("%s: %s: %v: %s", e.File, e.Symbol, e.category, e.detail)
	case e.Symbol != "":
		return fmt.Sprintf("%s: %v: %s", e.Symbol, e.category, e.detail)
	case e.File != "":
		return fmt.Sprintf("%s: %v: %s", e.File, e.category, e.detail)
	default:
		return fmt.Sprintf("%v: %s", e.category, e.detail)
	}
}

func (e *SymbolError) Unwrap() error {
	return e.category
}

// Inconsistencyf creates a SchemaInconsistency error for the given file
// and symbol.
func Inconsistencyf(file, symbol, format string, args ...any) error {
	return &SymbolError{
		File:     file,
		Symbol:   symbol,
		category: ErrSchemaInconsistency,
		detail:   fmt.Sprintf(format, args...),
	}
}

// Conflictf creates a ConfigurationConflict error for the given symbol.
func Conflictf(symbol, format string, args ...any) error {
	return &SymbolError{
		Symbol:   symbol,
		category: ErrConfigurationConflict,
		detail:   fmt.Sprintf(format, args...),
	}
}

// Unresolvablef creates an UnresolvableType error for the given file and
// symbol.
func Unresolvablef(file, symbol, format string, args ...any) error {
	return &SymbolError{
		File:     file,
		Symbol:   symbol,
		category: ErrUnresolvableType,
		detail:   fmt.Sprintf(format, args...),
	}
}
