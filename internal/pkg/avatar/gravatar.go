package avatar

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// DefaultSize is used when size is not positive.
const DefaultSize = 80

// GravatarURL returns the Gravatar image of email. Unknown addresses get the
// neutral "mystery person" placeholder.
func GravatarURL(email string, size int) string {
	if size <= 0 {
		size = DefaultSize
	}
	hash := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=mp", hash, size)
}
