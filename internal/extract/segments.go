package extract

import (
	"regexp"
	"strings"
)

// Segment is one delimiter-separated chunk of a listing's specification
// text. Classification is purely structural: a segment containing ':' splits
// into (Label, Value) at the first colon; otherwise Text holds the whole
// segment.
type Segment struct {
	Text     string
	Label    string
	Value    string
	HasColon bool
}

// replacements neutralizes slashes that are part of a token rather than
// segment delimiters, before splitting on '/'.
var replacements = [...][2]string{
	{"A/S", "AS"},
	{"S/W", "SW"},
	{"Gb/s", "Gbs"},
	{"MB/s", "Mbs"},
	{"싱글/다중", "싱글,다중"},
}

// noiseTags are colon-bearing throughput labels whose values would otherwise
// be misread as (label, value) pairs of their surrounding segment.
var noiseTags = [...]string{"순차읽기:", "순차쓰기:", "읽기IOPS:", "쓰기IOPS:"}

// bracketBlock matches [bracketed] annotations, which group unrelated spec
// text and are dropped before splitting.
var bracketBlock = regexp.MustCompile(`\[[^\]]*\]`)

// preprocess rewrites known slash-bearing tokens so the subsequent '/' split
// only cuts at genuine segment boundaries.
func preprocess(text string) string {
	for _, rp := range replacements {
		text = strings.ReplaceAll(text, rp[0], rp[1])
	}

	// Cooler noise specs quote idle/probe levels as "소음(유휴/탐색): 20/30dB";
	// turn the inner slashes into commas so the block stays one segment.
	if strings.Contains(text, "유휴/탐색") {
		if s := strings.Index(text, "소음("); s >= 0 {
			if e := strings.LastIndex(text, "dB"); e > s {
				e += len("dB")
				text = text[:s] + strings.ReplaceAll(text[s:e], "/", ",") + text[e:]
			}
		}
	}

	// SSD throughput labels carry colons inside a larger segment; strip them
	// so the segment stays non-colon and pattern rules can fire on it.
	if strings.Contains(text, "순차읽기") {
		for _, tag := range noiseTags {
			text = strings.ReplaceAll(text, tag, strings.TrimSuffix(tag, ":"))
		}
	}
	return text
}

// splitSegments converts a specification string into ordered, classified
// segments: preprocess, drop bracketed blocks, split on '/', trim, discard
// empties, classify at the first ':'.
func splitSegments(spec string) []Segment {
	spec = preprocess(spec)
	spec = strings.Join(bracketBlock.Split(spec, -1), " ")

	parts := strings.Split(spec, "/")
	segs := make([]Segment, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		seg := Segment{Text: p}
		if label, value, ok := strings.Cut(p, ":"); ok {
			seg.HasColon = true
			seg.Label = strings.TrimSpace(label)
			seg.Value = strings.TrimSpace(value)
		}
		segs = append(segs, seg)
	}
	return segs
}
