package avatar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGravatarURL(t *testing.T) {
	// md5("myemailaddress@example.com") from the Gravatar docs
	want := "https://www.gravatar.com/avatar/0bc83cb571cd1c50ba6f3e8a78ef1346?s=40&d=mp"
	assert.Equal(t, want, GravatarURL("  MyEmailAddress@example.com ", 40))
	assert.Contains(t, GravatarURL("a@b.c", 0), "s=80")
}
