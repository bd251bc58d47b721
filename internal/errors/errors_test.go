package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeValidation, Message: "username is required"},
			want: "username is required",
		},
		{
			name: "error with cause",
			err:  &AppError{Code: ErrCodeNetwork, Message: "backend unreachable", Cause: errors.New("dial tcp")},
			want: "backend unreachable: dial tcp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrap_NilPassthrough(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
}

func TestGetCode_ThroughWrapping(t *testing.T) {
	base := ValidationField("password", "password must be at least 6 characters")
	wrapped := fmt.Errorf("register: %w", base)

	assert.True(t, IsValidation(wrapped))
	assert.Equal(t, "password", GetField(wrapped))
	assert.Empty(t, GetCode(errors.New("plain")))
}

type codedErr struct{}

func (codedErr) Error() string        { return "coded" }
func (codedErr) ErrorCode() ErrorCode { return ErrCodeUnauthorized }

func TestGetCode_Coder(t *testing.T) {
	err := fmt.Errorf("call: %w", codedErr{})
	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsNetwork(err))
}
