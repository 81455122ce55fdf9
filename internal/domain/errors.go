package domain

import "errors"

var (
	ErrModNotFound          = errors.New("mod not found")
	ErrTransfer             = errors.New("transfer failed")
	ErrNaming               = errors.New("cannot determine output filename")
	ErrDownloadFailed       = errors.New("download failed")
	ErrCatalogUnavailable   = errors.New("mod catalog unavailable")
	ErrManifest             = errors.New("invalid mod manifest")
	ErrPostInstallManifest  = errors.New("installed mod has no valid manifest")
	ErrUnresolvedDependency = errors.New("unresolved dependency")
	ErrIntegrityMismatch    = errors.New("checksum mismatch")
	ErrExtract              = errors.New("archive extraction failed")
	ErrInvalidVersion       = errors.New("invalid version")
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrModsDirNotFound      = errors.New("mods directory not found")
	ErrJournalDisabled      = errors.New("install journal is disabled")
)
