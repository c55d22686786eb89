package export

import "errors"

var (
	ErrExportNotFound      = errors.New("export.errors.export_not_found")
	ErrNoCollectors        = errors.New("export.errors.no_collectors_registered")
	ErrFailedToBuildZip    = errors.New("export.errors.failed_to_build_archive")
	ErrMissingDependencies = errors.New("export.errors.missing_dependencies")
)
