package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeISBN(t *testing.T) {
	assert.Equal(t, "9780261103573", NormalizeISBN(" 978-0-261-10357-3 "))
	assert.Equal(t, "080442957X", NormalizeISBN("0-8044-2957-x"))
	assert.Equal(t, "", NormalizeISBN("isbn"))
}

func TestValidISBN(t *testing.T) {
	tests := []struct {
		isbn string
		want bool
	}{
		{"9780261103573", true},
		{"9780261103574", false},
		{"0261103571", true},
		{"080442957X", true},
		{"08044295X7", false},
		{"12345", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.isbn, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidISBN(tt.isbn))
		})
	}
}
