package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	UF  *string `validate:"omitempty,uf"`
	CEP *string `validate:"omitempty,cep"`
	CPF string  `validate:"cpf"`
}

func ptr(s string) *string { return &s }

func TestRegister(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	tests := []struct {
		name  string
		in    address
		valid bool
	}{
		{"empty", address{}, true},
		{"all set", address{UF: ptr("SP"), CEP: ptr("01310-100"), CPF: "123.456.789-09"}, true},
		{"bare digits", address{CEP: ptr("01310100"), CPF: "12345678909"}, true},
		{"lowercase uf", address{UF: ptr("sp")}, true},
		{"long uf", address{UF: ptr("SPO")}, false},
		{"short cep", address{CEP: ptr("0131")}, false},
		{"bad cpf", address{CPF: "123"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
