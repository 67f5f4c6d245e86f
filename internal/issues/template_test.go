package issues

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessageTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		wantErr string
	}{
		{
			name: "default notify template",
			text: DefaultNotifyTemplate,
		},
		{
			name: "default comment template",
			text: DefaultCommentTemplate,
		},
		{
			name:    "empty template",
			text:    "",
			wantErr: "cannot be empty",
		},
		{
			name:    "unterminated action",
			text:    "issue {{.Number",
			wantErr: "failed to parse template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tmpl, err := ParseMessageTemplate("test", tt.text)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, tmpl)
		})
	}
}

func TestMessageTemplate_Render(t *testing.T) {
	t.Parallel()

	data := MessageData{
		Number: 12,
		Title:  "Crash on startup",
		Author: "ext1",
		URL:    "https://github.com/acme/widgets/issues/12",
	}

	t.Run("default notify template references the issue", func(t *testing.T) {
		t.Parallel()

		tmpl, err := ParseMessageTemplate("notify", DefaultNotifyTemplate)
		require.NoError(t, err)

		text, err := tmpl.Render(data)
		require.NoError(t, err)
		assert.Equal(t,
			"I noticed a new external <https://github.com/acme/widgets/issues/12|issue> #12. Take a look?",
			text)
	})

	t.Run("fields are substituted", func(t *testing.T) {
		t.Parallel()

		tmpl, err := ParseMessageTemplate("comment", "Thanks @{{.Author}} for reporting {{.Title}}")
		require.NoError(t, err)

		text, err := tmpl.Render(data)
		require.NoError(t, err)
		assert.Equal(t, "Thanks @ext1 for reporting Crash on startup", text)
	})

	t.Run("unknown field fails at render time", func(t *testing.T) {
		t.Parallel()

		tmpl, err := ParseMessageTemplate("bad", "{{.Missing}}")
		require.NoError(t, err)

		_, err = tmpl.Render(data)
		require.Error(t, err)
	})
}
