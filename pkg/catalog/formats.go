package catalog

import (
	"path/filepath"
	"strings"
)

// Format represents the supported catalog file formats
type Format int

const (
	FormatUnknown Format = iota
	FormatJSON           // JSON array of {"id","name"} objects
	FormatMsgpack        // msgpack array of the same objects
)

// FormatInfo contains metadata about a catalog file format
type FormatInfo struct {
	Format      Format
	Description string
	Extensions  []string
}

var supportedFormats = map[Format]FormatInfo{
	FormatJSON: {
		Format:      FormatJSON,
		Description: "JSON record array",
		Extensions:  []string{".json"},
	},
	FormatMsgpack: {
		Format:      FormatMsgpack,
		Description: "msgpack record array",
		Extensions:  []string{".msgpack", ".mpk"},
	},
}

func (f Format) String() string {
	if info, ok := supportedFormats[f]; ok {
		return info.Description
	}
	return "unknown"
}

// DetectFormat maps a file name to a Format by extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	for format, info := range supportedFormats {
		for _, e := range info.Extensions {
			if e == ext {
				return format
			}
		}
	}
	return FormatUnknown
}
