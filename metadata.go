package mediapick

import (
	"bytes"
	"strings"

	"github.com/bep/imagemeta"
)

// CandidateMetadata holds descriptive EXIF/IPTC/XMP fields extracted from
// image binary data. Fed into the oracle prompt so the verifier sees what
// the image claims to be, not just its pixels.
type CandidateMetadata struct {
	Title       string
	Description string
	Artist      string
	Credit      string
	Byline      string
	Source      string
	DateTime    string
}

// Summary renders the non-empty fields as a compact "key: value" line for
// prompt embedding. Returns "" when nothing was extracted.
func (m *CandidateMetadata) Summary() string {
	if m == nil {
		return ""
	}
	var parts []string
	for _, f := range []struct{ name, value string }{
		{"title", m.Title},
		{"description", m.Description},
		{"artist", m.Artist},
		{"credit", m.Credit},
		{"byline", m.Byline},
		{"source", m.Source},
		{"date", m.DateTime},
	} {
		if f.value != "" {
			parts = append(parts, f.name+": "+f.value)
		}
	}
	return strings.Join(parts, "; ")
}

// wantedTags maps (source, tag-name) → true for every tag we care about.
var wantedTags = map[imagemeta.Source]map[string]bool{
	imagemeta.IPTC: {
		"ObjectName": true,
		"Credit":     true,
		"Byline":     true,
		"Source":     true,
	},
	imagemeta.EXIF: {
		"ImageDescription": true,
		"Artist":           true,
		"DateTime":         true,
		"DateTimeOriginal": true,
	},
	imagemeta.XMP: {
		"Title":       true,
		"Description": true,
		"Creator":     true,
	},
}

// ExtractCandidateMetadata parses descriptive EXIF/IPTC/XMP metadata from
// raw image bytes. Returns nil if the data is nil, empty, or cannot be
// parsed. Graceful degradation: never returns an error.
func ExtractCandidateMetadata(data []byte) *CandidateMetadata {
	if len(data) == 0 {
		return nil
	}

	meta := &CandidateMetadata{}
	found := false

	err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF | imagemeta.IPTC | imagemeta.XMP,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			if tags, ok := wantedTags[ti.Source]; ok {
				return tags[ti.Tag]
			}
			return false
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			handleDescriptiveTag(meta, ti, &found)
			return nil
		},
	})

	if err != nil || !found {
		return nil
	}

	return meta
}

// handleDescriptiveTag sets the appropriate CandidateMetadata field.
// First value wins for fields that several tag sources can supply.
func handleDescriptiveTag(meta *CandidateMetadata, ti imagemeta.TagInfo, found *bool) {
	s := tagValueString(ti.Value)
	if s == "" {
		return
	}

	switch ti.Tag {
	case "ObjectName", "Title":
		if meta.Title != "" {
			return
		}
		meta.Title = s
	case "ImageDescription", "Description":
		if meta.Description != "" {
			return
		}
		meta.Description = s
	case "Artist", "Creator":
		if meta.Artist != "" {
			return
		}
		meta.Artist = s
	case "Credit":
		meta.Credit = s
	case "Byline":
		meta.Byline = s
	case "Source":
		meta.Source = s
	case "DateTime", "DateTimeOriginal":
		if meta.DateTime != "" {
			return
		}
		meta.DateTime = s
	default:
		return
	}

	*found = true
}

// tagValueString extracts a string from a tag value.
// XMP values may be string or []string (from altList/seqList).
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []string:
		if len(val) > 0 {
			return strings.TrimSpace(val[0])
		}
		return ""
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
		return ""
	default:
		return ""
	}
}
