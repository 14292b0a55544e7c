package service

import (
	"regexp"
	"strings"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	usernameRegex   = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// normalizeEmail lowercases and trims the provided email.
func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// normalizeUsername trims surrounding whitespace. Inner whitespace is left for
// validation to reject.
func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

func (in SignupInput) normalized() SignupInput {
	return SignupInput{
		Username: normalizeUsername(in.Username),
		Email:    normalizeEmail(in.Email),
		Password: in.Password,
	}
}

func (in LoginInput) normalized() LoginInput {
	return LoginInput{
		Username: normalizeUsername(in.Username),
		Password: in.Password,
	}
}
