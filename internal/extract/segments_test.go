package extract

import (
	"reflect"
	"testing"
)

// TestSplitSegmentsClassification verifies the structural colon split: first
// colon separates label from value, everything else is free text.
func TestSplitSegmentsClassification(t *testing.T) {
	t.Parallel()

	segs := splitSegments("기본 클럭: 3.5GHz / 8코어")
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d: %#v", len(segs), segs)
	}

	if !segs[0].HasColon || segs[0].Label != "기본 클럭" || segs[0].Value != "3.5GHz" {
		t.Fatalf("colon segment: %+v", segs[0])
	}
	if segs[1].HasColon || segs[1].Text != "8코어" {
		t.Fatalf("non-colon segment: %+v", segs[1])
	}
}

// TestSplitSegmentsFirstColonOnly verifies that a value containing further
// colons stays intact: the split happens at the first colon only.
func TestSplitSegmentsFirstColonOnly(t *testing.T) {
	t.Parallel()

	segs := splitSegments("램타이밍: CL16: 기타")
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Label != "램타이밍" || segs[0].Value != "CL16: 기타" {
		t.Fatalf("got %+v", segs[0])
	}
}

func TestSplitSegmentsDropsEmptyAndBrackets(t *testing.T) {
	t.Parallel()

	segs := splitSegments("[출시가 649,000원] 인텔 / / 8코어")
	var texts []string
	for _, s := range segs {
		texts = append(texts, s.Text)
	}
	if !reflect.DeepEqual(texts, []string{"인텔", "8코어"}) {
		t.Fatalf("got %v", texts)
	}
}

// TestPreprocess pins the token fixups that keep slash-bearing tokens from
// being cut by the segment split.
func TestPreprocess(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"as token", "A/S기간: 3년", "AS기간: 3년"},
		{"throughput units", "최대 6Gb/s / 550MB/s", "최대 6Gbs / 550Mbs"},
		{"single multi", "싱글/다중 레일", "싱글,다중 레일"},
		{
			"cooler noise block",
			"소음(유휴/탐색): 25dB/29dB / SATA3",
			"소음(유휴,탐색): 25dB,29dB / SATA3",
		},
		{
			"ssd throughput labels lose their colon",
			"순차읽기: 7,450MB/s / 순차쓰기: 6,900MB/s / 읽기IOPS: 1,400K / 쓰기IOPS: 1,550K",
			"순차읽기 7,450Mbs / 순차쓰기 6,900Mbs / 읽기IOPS 1,400K / 쓰기IOPS 1,550K",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := preprocess(tc.in); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
