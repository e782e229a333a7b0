package parser

import (
	"bytes"
	"regexp"

	"AIToolNews/internal/domain"
)

var (
	summaryHeadingExpr = regexp.MustCompile(`(?m)^##\s*Summary\s*$`)
	sourceLabelExpr    = regexp.MustCompile(`(?mi)^\s*-?\s*\*\*Source\*\*\s*[:：]`)
	sectionExpr        = regexp.MustCompile(`(?m)^## `)
	postMarkerExpr     = regexp.MustCompile(`(?mi)^\s*[-*]\s*(?:\*\*)?Post(?:\*\*)?\s*[:：]`)
)

// DetectShape picks the record layout from structural cues.
func DetectShape(rec domain.RawRecord) domain.Shape {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(rec.Payload, []byte("\xef\xbb\xbf")))
	if len(trimmed) == 0 {
		return domain.ShapeUnknown
	}

	switch trimmed[0] {
	case '{', '[':
		return domain.ShapeJSON
	}

	switch {
	case summaryHeadingExpr.Match(trimmed) && sourceLabelExpr.Match(trimmed):
		return domain.ShapeGeneralNews
	case sectionExpr.Match(trimmed):
		return domain.ShapeCategoryMD
	case postMarkerExpr.Match(trimmed):
		return domain.ShapePostList
	default:
		return domain.ShapeUnknown
	}
}
