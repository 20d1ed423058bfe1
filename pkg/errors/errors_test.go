package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModuleErrorMatchesSentinelByKind(t *testing.T) {
	t.Parallel()

	err := New(KindDisallowedExtension, "Blog", "Blog/evil.exe", nil)

	require.True(t, stdErrors.Is(err, ErrDisallowedExtension))
	require.False(t, stdErrors.Is(err, ErrDisallowedPublicExtension))
	require.Contains(t, err.Error(), "Blog/evil.exe")
	require.Contains(t, err.Error(), "module Blog")
}

func TestModuleErrorSurvivesWrapping(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("zip: not a valid zip file")
	err := fmt.Errorf("install: %w", New(KindArchiveOpenFailure, "", "upload.zip", underlying))

	require.ErrorIs(t, err, ErrArchiveOpenFailure)
	require.ErrorIs(t, err, underlying)
	require.Equal(t, KindArchiveOpenFailure, KindOf(err))
	require.Equal(t, "upload.zip", DetailOf(err))
}

func TestKindOfReturnsEmptyForForeignErrors(t *testing.T) {
	t.Parallel()

	require.Equal(t, Kind(""), KindOf(stdErrors.New("boom")))
	require.Empty(t, DetailOf(nil))
}

func TestPartialUninstallErrorUnwraps(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("permission denied")
	err := &PartialUninstallError{Module: "Blog", PublicDir: "/srv/public/modules/Blog", Err: underlying}

	var partial *PartialUninstallError
	require.ErrorAs(t, fmt.Errorf("uninstall: %w", err), &partial)
	require.Equal(t, "Blog", partial.Module)
	require.ErrorIs(t, err, underlying)
	require.Contains(t, err.Error(), "/srv/public/modules/Blog")
}

func TestParseErrorIncludesLine(t *testing.T) {
	t.Parallel()

	err := NewParseError("modhost.yaml", 7, stdErrors.New("mapping values are not allowed"))
	require.Equal(t, "parse error: modhost.yaml:7: mapping values are not allowed", err.Error())

	err = NewParseError("modhost.yaml", 0, stdErrors.New("eof"))
	require.Equal(t, "parse error: modhost.yaml: eof", err.Error())
}

func TestValidationErrorFormatsField(t *testing.T) {
	t.Parallel()

	cause := stdErrors.New("bad")
	err := NewValidationError("status.driver", "must be json or bolt", cause)
	require.Equal(t, "validation error: status.driver: must be json or bolt", err.Error())
	require.ErrorIs(t, err, cause)
	require.Equal(t, "validation error: oops", NewValidationError("", "oops", nil).Error())
}
