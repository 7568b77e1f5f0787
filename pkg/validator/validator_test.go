package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	v := New()
	require.NotNil(t, v)
	require.NotNil(t, v.validate)
}

func TestValidate_RequiredField(t *testing.T) {
	v := New()

	type TestStruct struct {
		Name string `validate:"required"`
	}

	tests := []struct {
		name    string
		input   TestStruct
		wantErr bool
	}{
		{name: "valid - name provided", input: TestStruct{Name: "test"}, wantErr: false},
		{name: "invalid - name empty", input: TestStruct{Name: ""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "Validate() error = %v", err)
		})
	}
}

func TestValidateSeverity(t *testing.T) {
	v := New()

	type TestStruct struct {
		Threshold string `validate:"omitempty,severity"`
	}

	tests := []struct {
		name    string
		input   TestStruct
		wantErr bool
	}{
		{name: "valid - critical", input: TestStruct{Threshold: "critical"}},
		{name: "valid - high", input: TestStruct{Threshold: "high"}},
		{name: "valid - upper case", input: TestStruct{Threshold: "MEDIUM"}},
		{name: "valid - info", input: TestStruct{Threshold: "info"}},
		{name: "valid - empty", input: TestStruct{Threshold: ""}},
		{name: "invalid - provider spelling", input: TestStruct{Threshold: "moderate"}, wantErr: true},
		{name: "invalid - garbage", input: TestStruct{Threshold: "severe"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "Validate() error = %v", err)
		})
	}
}

func TestValidateLicenseCategory(t *testing.T) {
	v := New()

	type TestStruct struct {
		Category string `validate:"required,license_category"`
	}

	for _, ok := range []string{"approved", "conditional", "prohibited", "green", "yellow", "RED"} {
		assert.NoError(t, v.Validate(TestStruct{Category: ok}), ok)
	}
	assert.Error(t, v.Validate(TestStruct{Category: "blue"}))
	assert.Error(t, v.Validate(TestStruct{Category: ""}))
}

func TestValidateRegexp(t *testing.T) {
	v := New()

	type TestStruct struct {
		Patterns []string `validate:"dive,required,regexp"`
	}

	assert.NoError(t, v.Validate(TestStruct{Patterns: []string{`AKIA[0-9A-Z]{16}`, `(?i)internal\.corp`}}))

	err := v.Validate(TestStruct{Patterns: []string{`ok`, `(unclosed`}})
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, "patterns[1]", verrs[0].Field)
	assert.Equal(t, "must be a valid regular expression", verrs[0].Message)
}

func TestValidateOutputFormat(t *testing.T) {
	v := New()

	type TestStruct struct {
		Output string `validate:"output_format"`
	}

	for _, ok := range []string{"", "text", "json", "yaml", "sarif"} {
		assert.NoError(t, v.Validate(TestStruct{Output: ok}), ok)
	}
	assert.Error(t, v.Validate(TestStruct{Output: "xml"}))
}

func TestValidationErrors_NestedFieldPath(t *testing.T) {
	v := New()

	type Entry struct {
		ID string `validate:"required"`
	}
	type Lists struct {
		Approved []Entry `validate:"dive"`
	}
	type Policy struct {
		Licenses Lists
	}

	err := v.Validate(Policy{Licenses: Lists{Approved: []Entry{{ID: "MIT"}, {ID: ""}}}})
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, "licenses.approved[1].id", verrs[0].Field)
	assert.Equal(t, "licenses.approved[1].id: is required", verrs.Error())
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Name":           "name",
		"PackageName":    "package_name",
		"ID":             "id",
		"URL":            "url",
		"URLPath":        "url_path",
		"FailOnUnknown":  "fail_on_unknown",
		"Approved[0]":    "approved[0]",
		"SBOMPath":       "sbom_path",
		"ContactEmail2x": "contact_email2x",
	}
	for in, want := range tests {
		assert.Equal(t, want, toSnakeCase(in), in)
	}
}

func TestValidationErrors_Empty(t *testing.T) {
	assert.Equal(t, "", ValidationErrors{}.Error())
}
