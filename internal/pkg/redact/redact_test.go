package redact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Табличные тесты для redact.go:
//   - Email: обычный адрес, короткая локальная часть, битый формат, Unicode;
//   - ObjectURL: отрезание query;
//   - литералы Token/Password.

func TestEmail_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "ascii_local_gt_2", in: "foobar@example.com", want: "fo***@example.com"},
		{name: "ascii_local_len_1", in: "a@ex.com", want: "***@ex.com"},
		{name: "ascii_local_len_2", in: "ab@ex.com", want: "***@ex.com"},
		{name: "no_at", in: "no-at-here", want: "***"},
		{name: "multiple_at", in: "a@b@c", want: "***"},
		{name: "plus_tag_domain_case", in: "abc.def+tag@EXAMPLE.org", want: "ab***@EXAMPLE.org"},
		{name: "empty", in: "", want: "***"},
		{name: "unicode_local_gt_2", in: "юзер@пример.рф", want: "юз***@пример.рф"},
		{name: "unicode_local_len_2", in: "юз@домен", want: "***@домен"},
		{name: "empty_local", in: "@domain", want: "***@domain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Email(tt.in))
		})
	}
}

func TestObjectURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "http://cdn.local/a/b.png", ObjectURL("http://cdn.local/a/b.png?X-Amz-Signature=abc"))
	require.Equal(t, "http://cdn.local/a/b.png", ObjectURL("http://cdn.local/a/b.png"))
	require.Equal(t, "", ObjectURL(""))
}

func TestLiterals_TokenAndPassword(t *testing.T) {
	t.Parallel()

	require.Equal(t, "[REDACTED_TOKEN]", Token())
	require.Equal(t, "[REDACTED_PASSWORD]", Password())
}
