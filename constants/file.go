package constants

import "strings"

// FileFormat classifies an upload for OCR routing.
type FileFormat string

const (
	PDF      FileFormat = "PDF"
	IMAGE    FileFormat = "IMAGE"
	DOCUMENT FileFormat = "DOCUMENT" // docx, txt
)

// AllowedExtensions holds the file extensions accepted for upload.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"docx": {},
	"txt":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat classifies a file extension into a FileFormat.
// Unknown extensions default to DOCUMENT.
func MapExtToFormat(ext string) FileFormat {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png":
		return IMAGE
	default:
		return DOCUMENT
	}
}

// MaxFilenameLength is the longest accepted upload filename.
const MaxFilenameLength = 255
