package ussd

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/member-registry/internal/domain"
)

var (
	nrcPattern  = regexp.MustCompile(`^\d{6}/\d{2}/\d$`)
	namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z '.-]*$`)
)

const dobLayout = "02/01/2006"

// ValidateNRC checks the national-ID format ######/##/#.
func ValidateNRC(input string) (string, error) {
	nrc := strings.ToUpper(strings.TrimSpace(input))
	if !nrcPattern.MatchString(nrc) {
		return "", malformed("Format: 123456/78/1\nEnter NRC:")
	}
	return nrc, nil
}

// ValidateName accepts letters, spaces, hyphens, apostrophes and dots,
// returning the title-cased value.
func ValidateName(input, label string) (string, error) {
	name := strings.TrimSpace(input)
	if name == "" || !namePattern.MatchString(name) {
		return "", malformed("Letters only please.\n" + label + ":")
	}
	return titleCase(name), nil
}

// ValidateVotersID requires a non-empty value of plausible length.
func ValidateVotersID(input string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(input))
	if len(id) < 4 {
		return "", malformed("Invalid Voter ID.\nEnter Voter ID:")
	}
	return id, nil
}

// ParseDOB parses a DD/MM/YYYY date and rejects implausible values.
func ParseDOB(input string, now time.Time) (time.Time, error) {
	dob, err := time.Parse(dobLayout, strings.TrimSpace(input))
	if err != nil {
		return time.Time{}, malformed("Invalid date.\nFormat: DD/MM/YYYY\nDate of birth:")
	}
	if dob.Year() < 1900 || !dob.Before(now) {
		return time.Time{}, malformed("Invalid date.\nFormat: DD/MM/YYYY\nDate of birth:")
	}
	return dob, nil
}

// ParseMenuChoice converts a numeric selection into a zero-based index into
// options. Out-of-range selections are NotFound, not malformed.
func ParseMenuChoice(input string, options int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, malformed("Enter number only.")
	}
	if n < 1 || n > options {
		return 0, notFound("Invalid choice. Try again.")
	}
	return n - 1, nil
}

// NormalizePhone formats an MSISDN to +260#########.
func NormalizePhone(msisdn string) string {
	var digits strings.Builder
	for _, r := range msisdn {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	clean := digits.String()

	switch {
	case strings.HasPrefix(clean, "260") && len(clean) == 12:
		return "+" + clean
	case strings.HasPrefix(clean, "0") && len(clean) == 10:
		return "+260" + clean[1:]
	case len(clean) == 9:
		return "+260" + clean
	case strings.HasPrefix(clean, "260"):
		return "+" + clean
	default:
		return "+260" + clean
	}
}

// LastFragment extracts the newest input segment from gateway text, which
// may be a single fragment or the full *-joined history.
func LastFragment(text string) string {
	if text == "" {
		return ""
	}
	parts := strings.Split(text, "*")
	return strings.TrimSpace(parts[len(parts)-1])
}

// ParseGender maps a menu selection to a gender value.
func ParseGender(input string) (domain.Gender, error) {
	switch strings.TrimSpace(input) {
	case "1":
		return domain.GenderMale, nil
	case "2":
		return domain.GenderFemale, nil
	case "3":
		return domain.GenderOther, nil
	default:
		return "", malformed("Invalid selection.\nGender:\n1. Male\n2. Female\n3. Other")
	}
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
