package main

import (
	"errors"
	"fmt"

	moderrors "github.com/alexisbeaulieu97/modhost/pkg/errors"
)

func newCommandError(operation, context string, cause error, suggestion string) error {
	return &commandError{operation: operation, context: context, cause: cause, suggestion: suggestion}
}

type commandError struct {
	operation  string
	context    string
	cause      error
	suggestion string
}

func (e *commandError) Error() string {
	return fmt.Sprintf("Failed to %s: %s\n\nError: %v\n\nSuggestion: %s", e.operation, e.context, e.cause, e.suggestion)
}

func (e *commandError) Unwrap() error { return e.cause }

// suggestionFor picks advice from the kind of the first typed error in err.
func suggestionFor(err error) string {
	var parseErr *moderrors.ParseError
	if errors.As(err, &parseErr) {
		return "Fix the configuration file syntax, or run 'modhost config init' to write a fresh one."
	}
	var validationErr *moderrors.ValidationError
	if errors.As(err, &validationErr) {
		return fmt.Sprintf("Correct the %q setting in your configuration.", validationErr.Field)
	}
	var partial *moderrors.PartialUninstallError
	if errors.As(err, &partial) {
		return "The module code was removed; delete its published assets by hand."
	}

	switch moderrors.KindOf(err) {
	case moderrors.KindArchiveOpenFailure:
		return "Check that the archive exists and is a valid zip file."
	case moderrors.KindUnsafeArchiveEntry:
		return "The package contains paths that escape its folder; rebuild it without absolute or '..' entries."
	case moderrors.KindArchiveTooLarge:
		return "Shrink the package or raise installer.max_entries / installer.max_bytes."
	case moderrors.KindSourceFetchFailure:
		return "Check the repository URL, the ref and your network access."
	case moderrors.KindMultipleRootEntries, moderrors.KindInvalidRootEntry:
		return "Packages must contain exactly one top-level folder named after the module."
	case moderrors.KindMissingEntryFile:
		return "Add <Module>/<Module>.lua to the package."
	case moderrors.KindInvalidEntryFile:
		return "Fix the entry file so it compiles and returns a metadata table."
	case moderrors.KindDisallowedSourcePattern:
		return "Remove the flagged construct from the module sources."
	case moderrors.KindDisallowedExtension, moderrors.KindDisallowedPublicExtension:
		return "Remove the file or allow its extension in the installer configuration."
	case moderrors.KindCoreModuleOverrideDenied:
		return "Core modules are part of the host and cannot be replaced, deactivated or removed."
	case moderrors.KindModuleNotFound:
		return "Run 'modhost module list' to see the available modules."
	case moderrors.KindUnsupportedLifecycleAction:
		return "Use one of install, activate, deactivate or uninstall."
	default:
		return "Re-run with --verbose for details."
	}
}
