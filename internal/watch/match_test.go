package watch

import (
	"reflect"
	"testing"
)

func TestMatch(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		text     string
		keywords []string
		want     []string
	}{
		{name: "single hit", text: "selling gloves cheap", keywords: []string{"gloves"}, want: []string{"gloves"}},
		{name: "case insensitive", text: "WTB Zakum Helmet", keywords: []string{"zakum"}, want: []string{"zakum"}},
		{name: "mixed case keyword", text: "wtb zakum helmet", keywords: []string{"ZaKuM"}, want: []string{"ZaKuM"}},
		{name: "no hit", text: "nothing relevant", keywords: []string{"gloves", "zakum"}, want: nil},
		{name: "multiple hits keep order", text: "收楓葉 1:100 大量收購", keywords: []string{"收購", "楓葉"}, want: []string{"收購", "楓葉"}},
		{name: "cjk substring", text: "3362頻6洞收拳套攻擊10%", keywords: []string{"拳套"}, want: []string{"拳套"}},
		{name: "empty keyword skipped", text: "anything", keywords: []string{"", "any"}, want: []string{"any"}},
		{name: "empty text", text: "", keywords: []string{"x"}, want: nil},
		{name: "no keywords", text: "abc", keywords: nil, want: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := Match(tt.text, tt.keywords)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Match(%q, %v) = %v, want %v", tt.text, tt.keywords, got, tt.want)
			}
		})
	}
}
