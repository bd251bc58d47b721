package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/target/kb-assistant-web/internal/domain/auth"
)

func TestRegistrationFields(t *testing.T) {
	tests := []struct {
		name string
		form domainauth.RegistrationForm
		want int
	}{
		{name: "empty form asks everything", form: domainauth.RegistrationForm{}, want: 6},
		{
			name: "complete flags ask nothing",
			form: domainauth.RegistrationForm{Username: "bob", Password: "secret1", ConfirmPassword: "secret1"},
			want: 0,
		},
		{
			name: "missing confirmation asks it and empty profile fields",
			form: domainauth.RegistrationForm{Username: "bob", Password: "secret1", Email: "bob@example.com"},
			want: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := tt.form
			assert.Len(t, registrationFields(&form), tt.want)
		})
	}
}

func TestRequired(t *testing.T) {
	check := required("username")
	assert.EqualError(t, check("  "), "username is required")
	assert.NoError(t, check("bob"))
}
