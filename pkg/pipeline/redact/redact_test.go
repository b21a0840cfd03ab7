package redact_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shpitdev/fiofix/pkg/pipeline/redact"
)

func TestSecrets(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "form password", in: "post login: email=a@b.ru&password=hunter2&x=1", want: "post login: email=a@b.ru&password=<redacted>&x=1"},
		{name: "session cookie", in: "cookie PHPSESSID=abc123; path=/", want: "cookie PHPSESSID=<redacted>; path=/"},
		{name: "bearer", in: "Authorization: Bearer eyJhbGciOi", want: "Authorization: Bearer <redacted>"},
		{name: "plain text untouched", in: "  Петров Иван Иванович ", want: "Петров Иван Иванович"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, redact.Secrets(tt.in))
		})
	}
}
