// internal/app/system/rosterimport/limits.go
package rosterimport

// Upload size and row limits for roster files.
const (
	MaxUploadSize = 10 << 20 // 10 MB
	MaxRows       = 20000
)
