package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/cardleads/internal/core/model"
)

func TestNormalizeHelpers(t *testing.T) {
	assert.Equal(t, "jane@acme.com", NormalizeEmail("  JANE@Acme.COM "))
	assert.Equal(t, "", NormalizeEmail("   "))

	assert.Equal(t, "5551234567", NormalizePhoneDigits("(555) 123-4567"))
	assert.Equal(t, "5551234567", NormalizePhoneDigits("555.123.4567"))
	assert.Equal(t, "15551234567", NormalizePhoneDigits("+1 555 123 4567"))
	assert.Equal(t, "", NormalizePhoneDigits("call me"))

	assert.Equal(t, "jane doe", NormalizeName("  Jane \t  DOE "))
	assert.Equal(t, "", NormalizeName(" \n "))
	assert.Equal(t, "acme staffing", NormalizeCompany("ACME   Staffing"))
}

func TestBuildKey_EmailWins(t *testing.T) {
	a := BuildKey(model.Identity{Email: "JANE@ACME.com", Phone: "555-123-4567", FullName: "Jane Doe", Company: "Acme"})
	b := BuildKey(model.Identity{Email: " jane@acme.com", Phone: "555-999-0000", FullName: "Jane Doe", Company: "Other Co"})

	assert.Equal(t, KindEmail, a.Kind)
	assert.Equal(t, a, b)
	assert.Equal(t, "email:jane@acme.com", a.String())
}

func TestBuildKey_PhoneAndName(t *testing.T) {
	key := BuildKey(model.Identity{Phone: "(555) 123-4567", FullName: "Jane  Doe", Company: "Acme"})

	assert.Equal(t, KindPhoneName, key.Kind)
	assert.Equal(t, "phone_name:5551234567|jane doe", key.String())
}

func TestBuildKey_NameFromFirstAndLast(t *testing.T) {
	fromParts := BuildKey(model.Identity{Phone: "555.123.4567", FirstName: "Jane", LastName: "Doe"})
	fromFull := BuildKey(model.Identity{Phone: "(555) 123-4567", FullName: "JANE DOE"})

	assert.Equal(t, fromFull, fromParts)

	onlyLast := BuildKey(model.Identity{Company: "Acme", LastName: "Doe"})
	assert.Equal(t, "name_company:doe|acme", onlyLast.String())
}

func TestBuildKey_NameAndCompany(t *testing.T) {
	key := BuildKey(model.Identity{FullName: "Jane Doe", Company: " Acme  Staffing "})

	assert.Equal(t, KindNameCompany, key.Kind)
	assert.Equal(t, "name_company:jane doe|acme staffing", key.String())
}

func TestBuildKey_Absent(t *testing.T) {
	cases := []model.Identity{
		{},
		{Company: "Acme"},
		{Phone: "555-123-4567"},
		{Phone: "555-123-4567", Company: "Acme"},
		{FullName: "Jane Doe"},
		{Email: "   ", FullName: "  ", Company: "Acme"},
	}
	for _, id := range cases {
		key := BuildKey(id)
		assert.False(t, key.Present(), "%+v", id)
		assert.Equal(t, "", key.String())
	}
}

func TestBuildKey_EndToEndDraft(t *testing.T) {
	d := model.Draft{
		FullName:  "Jane Doe",
		FirstName: "Jane",
		LastName:  "Doe",
		Company:   "Acme",
		Email:     "JANE@ACME.com",
		Phone:     "(555) 123-4567",
	}
	assert.Equal(t, "email:jane@acme.com", BuildKey(d.Identity()).String())
}
