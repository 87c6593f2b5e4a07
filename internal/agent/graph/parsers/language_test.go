package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"which line items are over budget?", "English"},
		{"ขอดูงบประมาณของแคมเปญหน่อยครับ", "Thai"},
		{"キャンペーンの予算を確認してください", "Japanese"},
		{"캠페인 예산을 확인해 주세요", "Korean"},
		{"检查广告系列的预算设置", "Chinese"},
		{"проверь бюджеты кампаний", "Russian"},
		// A stray foreign word in Latin text stays English.
		{"check the budget for campaign 東京 please and also the pacing", "English"},
		{"12345 !!!", "English"},
		{"", "English"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DetectLanguage(tc.text), "text: %q", tc.text)
	}
}
