package contract

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNormalizeFileID 验证路径规范化逻辑。
func TestNormalizeFileID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"系统分隔符", filepath.Join("a", "b", "c"), "a/b/c"},
		{"相对回退", "./x/../y", "y"},
		{"空串", "", "."},
		{"Windows路径", "C:\\Users\\test\\export.xml", "C:/Users/test/export.xml"},
		{"清理多余斜杠", "path//to///file.xml", "path/to/file.xml"},
		{"处理父目录", "path/to/../from/file.xml", "path/from/file.xml"},
		{"Windows根", "C:\\", "C:"},
		{"混合分隔符", "C:\\Users/test\\Documents/file.xml", "C:/Users/test/Documents/file.xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, FileID(tt.expected), NormalizeFileID(tt.input))
		})
	}
}

func TestStem(t *testing.T) {
	cases := map[FileID]string{
		"quarantine.xml":           "quarantine",
		"dir/quarantine.xml":       "quarantine",
		"/abs/dir/export.2024.xml": "export.2024",
		"noext":                    "noext",
		".hidden":                  ".hidden",
		"stdin":                    "stdin",
	}
	for in, want := range cases {
		assert.Equal(t, want, Stem(in), "stem of %q", in)
	}
}

func TestPartName(t *testing.T) {
	assert.Equal(t, ArtifactID("foo_part_1.xml"), PartName("foo", 1))
	assert.Equal(t, ArtifactID("foo_part_12.xml"), PartName("foo", 12))
}

func TestPartReader(t *testing.T) {
	p := Part{
		Index:  1,
		Header: "h1\nh2\nh3\n",
		Body:   []string{"<scanclassset a>\n", "x\r\n"},
		Footer: "   </data>\n</cachedata>",
		Size:   int64(len("<scanclassset a>\n") + len("x\r\n")),
	}
	b, err := io.ReadAll(p.Reader())
	require.NoError(t, err)
	want := "h1\nh2\nh3\n<scanclassset a>\nx\r\n   </data>\n</cachedata>"
	assert.Equal(t, want, string(b))
	assert.Equal(t, int64(len(want)), p.Len())
	assert.False(t, p.Empty())
	assert.True(t, Part{Header: "h"}.Empty())
}
