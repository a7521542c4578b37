package onboarding

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding/internal/domain/progress"
)

func signed() SignatureBlock {
	return SignatureBlock{EmployeeSignature: "Jane Doe", SignatureDate: "2026-01-15"}
}

func TestMissingSignatureReportsBothFields(t *testing.T) {
	forms := map[string]FormData{
		"acknowledgment": Acknowledgment{EmployeeName: "Jane", Acknowledged: true},
		"non compete": NonCompeteAgreement{
			EmployeeName: "Jane", Position: "PCA", EffectiveDate: "2026-01-01", Agreed: true,
		},
		"direct deposit": DirectDeposit{
			BankName: "Bank", RoutingNumber: "021000021", AccountNumber: "1234", AccountType: "checking",
		},
	}
	for name, data := range forms {
		data := data
		t.Run(name, func(t *testing.T) {
			err := ValidateForSubmit(data)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Equal(t, []string{"employeeSignature", "signatureDate"}, verr.Fields())
		})
	}
}

func TestSignatureDateMustParse(t *testing.T) {
	data := Acknowledgment{EmployeeName: "Jane", Acknowledged: true, SignatureBlock: SignatureBlock{
		EmployeeSignature: "Jane", SignatureDate: "15/01/2026",
	}}
	issues := data.Validate()
	require.Len(t, issues, 1)
	assert.Equal(t, "signatureDate", issues[0].Field)
}

func TestI9CitizenshipRules(t *testing.T) {
	base := I9Form{
		LastName: "Doe", FirstName: "Jane", Address: "1 Main St", City: "Austin", State: "TX",
		ZipCode: "78701", DateOfBirth: "1990-04-02", SSN: "123-45-6789", SignatureBlock: signed(),
	}

	tests := []struct {
		name   string
		mutate func(*I9Form)
		fields []string
	}{
		{name: "citizen", mutate: func(f *I9Form) { f.CitizenshipStatus = CitizenshipCitizen }},
		{name: "missing status", mutate: func(f *I9Form) {}, fields: []string{"citizenshipStatus"}},
		{name: "unknown status", mutate: func(f *I9Form) { f.CitizenshipStatus = "tourist" }, fields: []string{"citizenshipStatus"}},
		{
			name:   "resident without number",
			mutate: func(f *I9Form) { f.CitizenshipStatus = CitizenshipPermanentResident },
			fields: []string{"alienNumber"},
		},
		{
			name: "resident with uscis number",
			mutate: func(f *I9Form) {
				f.CitizenshipStatus = CitizenshipPermanentResident
				f.USCISNumber = "123456789"
			},
		},
		{
			name: "authorized alien needs expiration",
			mutate: func(f *I9Form) {
				f.CitizenshipStatus = CitizenshipAuthorizedAlien
				f.I94Number = "12345678901"
			},
			fields: []string{"workAuthorizationExpiration"},
		},
		{
			name: "passport needs country",
			mutate: func(f *I9Form) {
				f.CitizenshipStatus = CitizenshipAuthorizedAlien
				f.ForeignPassportNumber = "X1234567"
				f.WorkAuthorizationExpiration = "2027-01-01"
			},
			fields: []string{"countryOfIssuance"},
		},
		{
			name: "short ssn",
			mutate: func(f *I9Form) {
				f.CitizenshipStatus = CitizenshipCitizen
				f.SSN = "1234"
			},
			fields: []string{"ssn"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			form := base
			tc.mutate(&form)
			var got []string
			for _, issue := range form.Validate() {
				got = append(got, issue.Field)
			}
			assert.Equal(t, tc.fields, got)
		})
	}
}

func TestW9RequiresExactlyOneTaxID(t *testing.T) {
	form := W9Form{
		Name: "Jane Doe", TaxClassification: "individual", Address: "1 Main St",
		CityStateZip: "Austin, TX 78701", SignatureBlock: signed(),
	}
	assert.Equal(t, "ssn", form.Validate()[0].Field)

	form.SSN = "123456789"
	assert.Empty(t, form.Validate())

	form.EIN = "12-3456789"
	issues := form.Validate()
	require.Len(t, issues, 1)
	assert.Equal(t, "ein", issues[0].Field)

	form.SSN = ""
	form.TaxClassification = "llc"
	issues = form.Validate()
	require.Len(t, issues, 1)
	assert.Equal(t, "llcTaxClassification", issues[0].Field)
}

func TestDirectDepositRoutingChecksum(t *testing.T) {
	form := DirectDeposit{
		BankName: "Bank", RoutingNumber: "021000021", AccountNumber: "000123456789",
		AccountType: "savings", SignatureBlock: signed(),
	}
	assert.Empty(t, form.Validate())

	form.RoutingNumber = "021000022"
	issues := form.Validate()
	require.Len(t, issues, 1)
	assert.Equal(t, "checksum does not match", issues[0].Reason)
}

func TestOrientationChecklistNeedsEveryItem(t *testing.T) {
	items := map[string]bool{}
	for _, item := range OrientationItems {
		items[item] = true
	}
	form := OrientationChecklist{Items: items, SignatureBlock: signed()}
	assert.Empty(t, form.Validate())

	items["confidentiality"] = false
	issues := form.Validate()
	require.Len(t, issues, 1)
	assert.Equal(t, "items.confidentiality", issues[0].Field)
}

func TestTrainingVideoMustBeWatched(t *testing.T) {
	form := TrainingVideo{VideoID: "intro", WatchedSeconds: 300, DurationSeconds: 600, Acknowledged: true}
	issues := form.Validate()
	require.Len(t, issues, 1)
	assert.Equal(t, "watchedSeconds", issues[0].Field)

	form.WatchedSeconds = 600
	assert.Empty(t, form.Validate())
}

func TestDecodeFormData(t *testing.T) {
	data, err := DecodeFormData(progress.KeyI9Form, json.RawMessage(`{"firstName":"Jane","citizenshipStatus":"citizen"}`))
	require.NoError(t, err)
	form, ok := data.(I9Form)
	require.True(t, ok)
	assert.Equal(t, "Jane", form.FirstName)

	_, err = DecodeFormData(progress.KeyI9Form, json.RawMessage(`{"favouriteColour":"blue"}`))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"formData"}, verr.Fields())

	empty, err := DecodeFormData(progress.KeyCPRCertificate, nil)
	require.NoError(t, err)
	assert.Equal(t, KindDocument, empty.Kind())

	_, err = DecodeFormData("unknownForm", nil)
	assert.ErrorIs(t, err, ErrUnknownForm)
}

func TestSignatureOf(t *testing.T) {
	sig := SignatureOf(Acknowledgment{SignatureBlock: signed()})
	require.NotNil(t, sig)
	assert.Equal(t, "Jane Doe", sig.Value)
	require.NotNil(t, sig.Date)
	assert.Equal(t, 2026, sig.Date.Year())

	assert.Nil(t, SignatureOf(Acknowledgment{}))
	assert.Nil(t, SignatureOf(TrainingVideo{}))
}

func TestRedactMasksIdentifiers(t *testing.T) {
	raw := json.RawMessage(`{"name":"Jane","taxClassification":"individual","ssn":"123456789"}`)
	out := Redact(progress.KeyW9Form, raw)

	var form W9Form
	require.NoError(t, json.Unmarshal(out, &form))
	assert.Equal(t, "*****6789", form.SSN)
	assert.Equal(t, "Jane", form.Name)

	plain := json.RawMessage(`{"employeeName":"Jane","acknowledged":true}`)
	assert.JSONEq(t, string(plain), string(Redact(progress.KeyHIPAAAgreement, plain)))
}
