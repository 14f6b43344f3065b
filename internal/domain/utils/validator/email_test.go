package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	cases := []struct {
		email string
		want  bool
	}{
		{"ana@meetingday.app", true},
		{"  luis.perez+events@example.com ", true},
		{"", false},
		{"   ", false},
		{"not-an-email", false},
		{"missing@", false},
		{"@example.com", false},
	}

	for _, tc := range cases {
		t.Run(tc.email, func(t *testing.T) {
			require.Equal(t, tc.want, Email(tc.email))
		})
	}
}
