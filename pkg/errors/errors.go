package errors

import (
	stdErrors "errors"
	"fmt"
)

// Kind classifies a module host failure so callers can react to it without
// parsing messages.
type Kind string

const (
	KindArchiveOpenFailure         Kind = "archive_open_failure"
	KindUnsafeArchiveEntry         Kind = "unsafe_archive_entry"
	KindArchiveTooLarge            Kind = "archive_too_large"
	KindSourceFetchFailure         Kind = "source_fetch_failure"
	KindMultipleRootEntries        Kind = "multiple_root_entries"
	KindInvalidRootEntry           Kind = "invalid_root_entry"
	KindMissingEntryFile           Kind = "missing_entry_file"
	KindInvalidEntryFile           Kind = "invalid_entry_file"
	KindDisallowedSourcePattern    Kind = "disallowed_source_pattern"
	KindDisallowedExtension        Kind = "disallowed_extension"
	KindDisallowedPublicExtension  Kind = "disallowed_public_extension"
	KindCoreModuleOverrideDenied   Kind = "core_module_override_denied"
	KindModuleNotFound             Kind = "module_not_found"
	KindUnsupportedLifecycleAction Kind = "unsupported_lifecycle_action"
)

// Sentinels for errors.Is comparisons. Matching is done on Kind only.
var (
	ErrArchiveOpenFailure         = &ModuleError{Kind: KindArchiveOpenFailure}
	ErrUnsafeArchiveEntry         = &ModuleError{Kind: KindUnsafeArchiveEntry}
	ErrArchiveTooLarge            = &ModuleError{Kind: KindArchiveTooLarge}
	ErrSourceFetchFailure         = &ModuleError{Kind: KindSourceFetchFailure}
	ErrMultipleRootEntries        = &ModuleError{Kind: KindMultipleRootEntries}
	ErrInvalidRootEntry           = &ModuleError{Kind: KindInvalidRootEntry}
	ErrMissingEntryFile           = &ModuleError{Kind: KindMissingEntryFile}
	ErrInvalidEntryFile           = &ModuleError{Kind: KindInvalidEntryFile}
	ErrDisallowedSourcePattern    = &ModuleError{Kind: KindDisallowedSourcePattern}
	ErrDisallowedExtension        = &ModuleError{Kind: KindDisallowedExtension}
	ErrDisallowedPublicExtension  = &ModuleError{Kind: KindDisallowedPublicExtension}
	ErrCoreModuleOverrideDenied   = &ModuleError{Kind: KindCoreModuleOverrideDenied}
	ErrModuleNotFound             = &ModuleError{Kind: KindModuleNotFound}
	ErrUnsupportedLifecycleAction = &ModuleError{Kind: KindUnsupportedLifecycleAction}
)

// ModuleError is the error type surfaced by the registry, installer and
// lifecycle layers.
type ModuleError struct {
	Kind   Kind
	Module string
	// Detail names the offending rule or file, depending on Kind.
	Detail string
	Err    error
}

// New constructs a ModuleError.
func New(kind Kind, module, detail string, err error) error {
	return &ModuleError{Kind: kind, Module: module, Detail: detail, Err: err}
}

func (e *ModuleError) Error() string {
	if e == nil {
		return ""
	}

	msg := describe(e.Kind)
	if e.Module != "" {
		msg = fmt.Sprintf("module %s: %s", e.Module, msg)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying error.
func (e *ModuleError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is a ModuleError of the same kind.
func (e *ModuleError) Is(target error) bool {
	t, ok := target.(*ModuleError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the Kind of the first ModuleError in err's chain, or the
// empty Kind when there is none.
func KindOf(err error) Kind {
	var me *ModuleError
	if stdErrors.As(err, &me) {
		return me.Kind
	}
	return ""
}

// DetailOf returns the Detail of the first ModuleError in err's chain.
func DetailOf(err error) string {
	var me *ModuleError
	if stdErrors.As(err, &me) {
		return me.Detail
	}
	return ""
}

func describe(kind Kind) string {
	switch kind {
	case KindArchiveOpenFailure:
		return "archive cannot be opened"
	case KindUnsafeArchiveEntry:
		return "archive contains an unsafe entry"
	case KindArchiveTooLarge:
		return "archive exceeds extraction limits"
	case KindSourceFetchFailure:
		return "source cannot be fetched"
	case KindMultipleRootEntries:
		return "package must contain exactly one top-level folder"
	case KindInvalidRootEntry:
		return "package top-level entry is not a valid module folder"
	case KindMissingEntryFile:
		return "required entry file is missing"
	case KindInvalidEntryFile:
		return "entry file does not compile"
	case KindDisallowedSourcePattern:
		return "source contains a disallowed construct"
	case KindDisallowedExtension:
		return "file extension is not allowed"
	case KindDisallowedPublicExtension:
		return "file extension is not allowed in public assets"
	case KindCoreModuleOverrideDenied:
		return "core modules cannot be replaced, deactivated or removed"
	case KindModuleNotFound:
		return "module not found"
	case KindUnsupportedLifecycleAction:
		return "unsupported lifecycle action"
	case "":
		return "module error"
	default:
		return string(kind)
	}
}

// PartialUninstallError reports that a module's code was removed but its
// published assets could not be.
type PartialUninstallError struct {
	Module    string
	PublicDir string
	Err       error
}

func (e *PartialUninstallError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("module %s removed but published assets at %s remain: %v", e.Module, e.PublicDir, e.Err)
}

// Unwrap exposes the underlying error.
func (e *PartialUninstallError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ParseError represents a configuration parsing failure with optional line
// metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
