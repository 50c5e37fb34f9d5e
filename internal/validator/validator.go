package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

func Content(content string) error {
	const maxlength = 2000

	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("empty_content")
	}
	if utf8.RuneCountInString(content) > maxlength {
		return fmt.Errorf("long_content")
	}
	return nil
}

func InviteCode(code string) error {
	const inviteRegex = `^[a-zA-Z0-9-]{2,32}$`
	if !regexp.MustCompile(inviteRegex).MatchString(code) {
		return fmt.Errorf("bad_format")
	}
	return nil
}

func Name(name string) error {
	length := utf8.RuneCountInString(strings.TrimSpace(name))
	if length < 2 {
		return fmt.Errorf("short_name")
	} else if length > 100 {
		return fmt.Errorf("long_name")
	}
	return nil
}
