package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	domainauth "github.com/target/kb-assistant-web/internal/domain/auth"
)

// required rejects blank input.
func required(label string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", label)
		}
		return nil
	}
}

// promptCredentials asks for whichever of username and password is missing.
func promptCredentials(username, password *string) error {
	var fields []huh.Field
	if strings.TrimSpace(*username) == "" {
		fields = append(fields, huh.NewInput().
			Title("Username").
			Value(username).
			Validate(required("username")))
	}
	if *password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(password))
	}
	if len(fields) == 0 {
		return nil
	}
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

// registrationFields builds inputs for the missing required values. Once any
// are needed, the empty optional profile fields are asked for as well.
func registrationFields(form *domainauth.RegistrationForm) []huh.Field {
	var fields []huh.Field
	if strings.TrimSpace(form.Username) == "" {
		fields = append(fields, huh.NewInput().Title("Username").Value(&form.Username).Validate(required("username")))
	}
	if form.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			Description("At least 6 characters.").
			EchoMode(huh.EchoModePassword).
			Value(&form.Password).
			Validate(required("password")))
	}
	if form.ConfirmPassword == "" {
		fields = append(fields, huh.NewInput().
			Title("Confirm password").
			EchoMode(huh.EchoModePassword).
			Value(&form.ConfirmPassword).
			Validate(required("password confirmation")))
	}
	if len(fields) == 0 {
		return nil
	}
	if form.Email == "" {
		fields = append(fields, huh.NewInput().Title("Email").Description("Optional.").Value(&form.Email))
	}
	if form.FullName == "" {
		fields = append(fields, huh.NewInput().Title("Full name").Description("Optional.").Value(&form.FullName))
	}
	if form.Phone == "" {
		fields = append(fields, huh.NewInput().Title("Phone").Description("Optional.").Value(&form.Phone))
	}
	return fields
}

// promptRegistration fills in the registration values not given as flags.
func promptRegistration(form *domainauth.RegistrationForm) error {
	fields := registrationFields(form)
	if len(fields) == 0 {
		return nil
	}
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

// promptQuestion asks for a chat question.
func promptQuestion() (string, error) {
	var q string
	input := huh.NewText().
		Title("Ask the knowledge base").
		Placeholder("Type a question…").
		Value(&q)
	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return q, nil
}

// confirm displays a yes/no prompt.
func confirm(message string) (bool, error) {
	var ok bool
	c := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)
	if err := huh.NewForm(huh.NewGroup(c)).Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return ok, nil
}
