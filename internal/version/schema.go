package version

// ImageSchemaVersion increments when Dockerfile generation changes require image rebuilds.
//
// Bump for:
//   - Dockerfile generation logic changes
//   - Label format changes
//   - Workdir / layer order changes
//   - CMD format changes
//
// Don't bump for:
//   - CLI-only changes
//   - Bug fixes not affecting image content
const ImageSchemaVersion = 1

const ImageSchemaVersionLabel = "pyship.image_schema_version"
