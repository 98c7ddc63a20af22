package domain

import "strings"

// AssetDir is the reserved directory, relative to the site root, holding normalized images.
const AssetDir = "assets"

// AssetRef references an image: a remote URL, a local path, or a normalized assets/ path.
type AssetRef string

type AssetKind int

const (
	AssetNone AssetKind = iota
	AssetRemote
	AssetLocal
	AssetNormalized
)

func (k AssetKind) String() string {
	switch k {
	case AssetNone:
		return "none"
	case AssetRemote:
		return "remote"
	case AssetLocal:
		return "local"
	case AssetNormalized:
		return "normalized"
	default:
		return "unknown"
	}
}

// Kind classifies the reference.
func (r AssetRef) Kind() AssetKind {
	s := string(r)
	switch {
	case s == "":
		return AssetNone
	case strings.HasPrefix(s, AssetDir+"/") || strings.HasPrefix(s, AssetDir+`\`):
		return AssetNormalized
	case strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://"):
		return AssetRemote
	default:
		return AssetLocal
	}
}

func (r AssetRef) IsEmpty() bool {
	return r == ""
}

func (r AssetRef) String() string {
	return string(r)
}
