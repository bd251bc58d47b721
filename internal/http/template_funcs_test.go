package httpx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/kb-assistant-web/internal/ports"
)

func TestRenderMarkdown(t *testing.T) {
	out := string(renderMarkdown("# Title\n\n- **one**\n- two\n\n<script>alert(1)</script>\n\n[x](javascript:alert(1))"))
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, "<strong>one</strong>")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "javascript:")

	assert.Contains(t, string(renderMarkdown("line one\nline two")), "<br")
	assert.Contains(t, string(renderMarkdown("| a | b |\n|---|---|\n| 1 | 2 |")), "<table>")
}

func TestFormatNumber(t *testing.T) {
	cases := map[int]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -45000: "-45,000"}
	for in, want := range cases {
		assert.Equal(t, want, formatNumber(in), in)
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2<<20))
}

func TestTruncateAndInitial(t *testing.T) {
	assert.Equal(t, "héll…", truncate("héllo world", 4))
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "A", initial(" ada"))
	assert.Equal(t, "?", initial(""))
}

func TestFriendlyTime(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 7, 0, 0, time.Local)
	assert.Equal(t, "Mar 5, 2024 2:07 PM", friendlyTime(ts))
	assert.Equal(t, "Mar 5, 2024 2:07 PM", friendlyTime(&ts))
	var nilTime *time.Time
	assert.Empty(t, friendlyTime(nilTime))
	assert.Empty(t, friendlyTime("yesterday"))
}

func TestNoticeClass(t *testing.T) {
	assert.Equal(t, "notice notice-success", noticeClass(ports.NoticeSuccess))
	assert.Equal(t, "notice notice-error", noticeClass(ports.NoticeError))
	assert.Equal(t, "notice notice-info", noticeClass(ports.NoticeInfo))
}

func TestDict(t *testing.T) {
	m, err := dict("Doc", 1, "ReturnTo", "/admin/kb")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Doc": 1, "ReturnTo": "/admin/kb"}, m)

	_, err = dict("odd")
	require.Error(t, err)
	_, err = dict(1, 2)
	require.Error(t, err)
}
