package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Fungal Infection ", "fungal infection"},
		{"👉 Common  Cold", "common cold"},
		{"Dolo\t650", "dolo 650"},
		{"ＡＩＤＳ", "aids"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeKey(tt.in), tt.in)
	}
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "drug_name", NormalizeHeader("\ufeffDrug_Name "))
	assert.Equal(t, "precaution_1", NormalizeHeader(" Precaution_1"))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Dolo 650", Title("dolo 650"))
	assert.Equal(t, "Habit Forming", Title("habit forming"))
	assert.Equal(t, "Avastin", Title("AVASTIN"))
}
