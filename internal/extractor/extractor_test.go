package extractor

import (
	"strings"
	"testing"
	"unicode/utf8"
)

const wellFormedReport = `# MBTI 十六型人格解析

## 摘要
本视频系统讲解了 MBTI 十六型人格的理论基础，重点分析认知功能的判断依据。

## 开场介绍
主讲人介绍课程安排和参考书目。

## 核心概念 [02:15 - 05:40]
讲解**内倾直觉**与外倾思维的配合方式。

## 标签
标签: 心理学, MBTI, 认知功能, 人格类型
`

func TestExtract_WellFormed(t *testing.T) {
	ex := New().Extract(wellFormedReport)

	if !strings.HasPrefix(ex.Summary, "本视频系统讲解了") {
		t.Errorf("unexpected summary: %q", ex.Summary)
	}
	if utf8.RuneCountInString(ex.Summary) > 53 { // 50 runes + ellipsis
		t.Errorf("summary too long: %d runes", utf8.RuneCountInString(ex.Summary))
	}

	want := []string{"心理学", "MBTI", "认知功能", "人格类型"}
	if len(ex.Tags) != len(want) {
		t.Fatalf("expected %d tags, got %v", len(want), ex.Tags)
	}
	for i, tag := range want {
		if ex.Tags[i] != tag {
			t.Errorf("tag %d: expected %q, got %q", i, tag, ex.Tags[i])
		}
	}

	if len(ex.Topics) != 2 {
		t.Fatalf("expected 2 topics, got %d: %+v", len(ex.Topics), ex.Topics)
	}
	if ex.Topics[0].Title != "开场介绍" {
		t.Errorf("topic 0 title: %q", ex.Topics[0].Title)
	}
	if ex.Topics[0].StartTime != nil {
		t.Error("topic 0 should have no time range")
	}
	if ex.Topics[1].Title != "核心概念" {
		t.Errorf("topic 1 title: %q", ex.Topics[1].Title)
	}
	if ex.Topics[1].StartTime == nil || *ex.Topics[1].StartTime != 135 {
		t.Errorf("topic 1 start time: %v", ex.Topics[1].StartTime)
	}
	if ex.Topics[1].EndTime == nil || *ex.Topics[1].EndTime != 340 {
		t.Errorf("topic 1 end time: %v", ex.Topics[1].EndTime)
	}
	if ex.Topics[1].Sequence != 1 {
		t.Errorf("topic 1 sequence: %d", ex.Topics[1].Sequence)
	}
	if !strings.Contains(ex.Topics[1].Summary, "内倾直觉") {
		t.Errorf("topic 1 summary lost body text: %q", ex.Topics[1].Summary)
	}
	if strings.Contains(ex.Topics[1].Summary, "**") {
		t.Errorf("topic 1 summary keeps markup: %q", ex.Topics[1].Summary)
	}

	if len(ex.Warnings) != 0 {
		t.Errorf("well-formed report produced warnings: %v", ex.Warnings)
	}
}

func TestExtract_InlineSummaryFallback(t *testing.T) {
	report := "摘要: 一个只有行内摘要的报告，没有任何标准小节。\n\n正文内容。"
	ex := New().Extract(report)

	if !strings.HasPrefix(ex.Summary, "一个只有行内摘要的报告") {
		t.Errorf("unexpected summary: %q", ex.Summary)
	}
	if len(ex.Warnings) == 0 {
		t.Error("expected a fallback warning")
	}
}

func TestExtract_FirstParagraphFallback(t *testing.T) {
	report := "# 标题\n\n这份报告完全没有摘要小节，只有普通的正文段落可以利用。\n"
	ex := New().Extract(report)

	if ex.Summary == "" {
		t.Fatal("expected first-paragraph summary")
	}
	found := false
	for _, w := range ex.Warnings {
		if strings.Contains(w, "first paragraph") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected first-paragraph warning, got %v", ex.Warnings)
	}
}

func TestExtract_SummaryTruncation(t *testing.T) {
	long := strings.Repeat("长", 80)
	ex := New().Extract("## 摘要\n" + long + "\n")

	runes := []rune(ex.Summary)
	if len(runes) != 53 { // 50 + "..."
		t.Errorf("expected 53 runes, got %d", len(runes))
	}
	if !strings.HasSuffix(ex.Summary, "...") {
		t.Errorf("expected ellipsis: %q", ex.Summary)
	}
}

func TestExtract_EmptyReport(t *testing.T) {
	for _, report := range []string{"", "   \n\t\n"} {
		ex := New().Extract(report)
		if ex.Summary != "" || len(ex.Tags) != 0 || len(ex.Topics) != 0 {
			t.Errorf("empty report %q produced content: %+v", report, ex)
		}
		if len(ex.Warnings) == 0 {
			t.Errorf("empty report %q produced no warnings", report)
		}
	}
}

func TestExtractTags(t *testing.T) {
	tests := []struct {
		name   string
		report string
		want   []string
	}{
		{
			name:   "chinese commas",
			report: "标签: 心理学，MBTI，认知功能",
			want:   []string{"心理学", "MBTI", "认知功能"},
		},
		{
			name:   "english label",
			report: "Tags: psychology, mbti",
			want:   []string{"psychology", "mbti"},
		},
		{
			name:   "dedupe case-insensitive",
			report: "标签: MBTI, mbti, Mbti, 心理学",
			want:   []string{"MBTI", "心理学"},
		},
		{
			name:   "drops out-of-range lengths",
			report: "标签: a, 心理学, " + strings.Repeat("长", 25),
			want:   []string{"心理学"},
		},
		{
			name:   "whitespace separated",
			report: "标签: 心理学 人格 直觉",
			want:   []string{"心理学", "人格", "直觉"},
		},
		{
			name:   "strips markup and quotes",
			report: "标签: **心理学**, \"MBTI\", `直觉`",
			want:   []string{"心理学", "MBTI", "直觉"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := New().Extract(tt.report)
			if len(ex.Tags) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, ex.Tags)
			}
			for i := range tt.want {
				if ex.Tags[i] != tt.want[i] {
					t.Errorf("tag %d: expected %q, got %q", i, tt.want[i], ex.Tags[i])
				}
			}
		})
	}
}

func TestExtractTags_CapAtTen(t *testing.T) {
	parts := make([]string, 15)
	for i := range parts {
		parts[i] = "标签" + string(rune('a'+i))
	}
	ex := New().Extract("标签: " + strings.Join(parts, ", "))

	if len(ex.Tags) != 10 {
		t.Errorf("expected 10 tags, got %d", len(ex.Tags))
	}
	if len(ex.Warnings) == 0 {
		t.Error("expected a cap warning")
	}
}

func TestExtractTopics_CapAtTwenty(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("## 话题")
		b.WriteRune(rune('A' + i))
		b.WriteString("\n正文\n\n")
	}
	ex := New().Extract(b.String())

	if len(ex.Topics) != 20 {
		t.Errorf("expected 20 topics, got %d", len(ex.Topics))
	}
	for i, topic := range ex.Topics {
		if topic.Sequence != i {
			t.Errorf("topic %d has sequence %d", i, topic.Sequence)
		}
	}
}

func TestExtractTopics_LabelTitleWithTimeRange(t *testing.T) {
	report := "## 总结 [12:00 - 14:00]\n全片回顾与要点归纳。\n\n## 摘要\n这一段是真正的摘要小节。\n"
	ex := New().Extract(report)

	if len(ex.Topics) != 1 {
		t.Fatalf("expected the time-ranged chapter to survive, got %d: %+v", len(ex.Topics), ex.Topics)
	}
	if ex.Topics[0].Title != "总结" {
		t.Errorf("topic title: %q", ex.Topics[0].Title)
	}
	if ex.Topics[0].StartTime == nil || *ex.Topics[0].StartTime != 720 {
		t.Errorf("topic start time: %v", ex.Topics[0].StartTime)
	}
	// The bare label heading is still a metadata section, not a chapter
	if strings.HasPrefix(ex.Summary, "这一段是真正的摘要小节") == false {
		t.Errorf("summary section misread: %q", ex.Summary)
	}
}

func TestExtractTopics_BadTimeRange(t *testing.T) {
	ex := New().Extract("## 章节 [99:99:99:99 - 00:10]\n正文\n")

	if len(ex.Topics) != 1 {
		t.Fatalf("expected the topic to survive, got %d", len(ex.Topics))
	}
	if ex.Topics[0].StartTime != nil {
		t.Error("malformed range should leave times nil")
	}
}

func TestParseTimecode(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"02:15", 135, false},
		{"00:00", 0, false},
		{"1:02:03", 3723, false},
		{"59:59", 3599, false},
		{"abc", 0, true},
		{"12", 0, true},
		{"1:2:3:4", 0, true},
	}

	for _, tt := range tests {
		got, err := parseTimecode(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseTimecode(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseTimecode(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseTimecode(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
