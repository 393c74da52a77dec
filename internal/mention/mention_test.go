package mention

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "empty", text: "", want: []string{}},
		{name: "no handles", text: "hello world", want: []string{}},
		{name: "duplicates collapse", text: "@a @b @a", want: []string{"a", "b"}},
		{name: "underscore digits hash", text: "hi @bob_2 and @tag#1!", want: []string{"bob_2", "tag#1"}},
		{name: "case sensitive", text: "@Bob @bob", want: []string{"Bob", "bob"}},
		{name: "bare at sign", text: "mail me @ home", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text))
		})
	}
}

func TestExtract_OrderIndependent(t *testing.T) {
	assert.Equal(t, Extract("@b @a"), Extract("@a @b @a"))
}

func TestFromPost(t *testing.T) {
	assert.Equal(t, []string{"bob", "carol"}, FromPost("hi @carol", "@bob"))
}
