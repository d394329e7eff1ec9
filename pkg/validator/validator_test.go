package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanForm struct {
	Code   string `validate:"scancode,max=16"`
	Choice string `validate:"required,oneof=Accepted Canceled"`
}

func TestValidateStruct(t *testing.T) {
	assert.Empty(t, ValidateStruct(&scanForm{Code: " BIN-01 ", Choice: "Accepted"}))

	errs := ValidateStruct(&scanForm{Code: "   ", Choice: "Maybe"})
	require.Len(t, errs, 2)
	assert.Equal(t, "scanForm.Code", errs[0].FailedField)
	assert.Equal(t, "scancode", errs[0].Tag)
	assert.Equal(t, "oneof", errs[1].Tag)
	assert.Equal(t, "Accepted Canceled", errs[1].Value)
}

func TestFirstError(t *testing.T) {
	assert.Equal(t, "", FirstError(&scanForm{Code: "A", Choice: "Canceled"}))
	assert.Equal(t, "scanForm.Choice failed on 'required'", FirstError(&scanForm{Code: "A"}))
}
