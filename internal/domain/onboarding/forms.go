package onboarding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FormData is the typed payload of one form kind.
type FormData interface {
	Kind() Kind
	// Validate checks the payload for final submission. Drafts skip it.
	Validate() []FieldIssue
}

// Signer is implemented by payloads that carry an employee signature.
type Signer interface {
	Signed() SignatureBlock
}

// Redactor is implemented by payloads holding identifiers that list views
// must not show in full.
type Redactor interface {
	Redacted() FormData
}

type SignatureBlock struct {
	EmployeeSignature string `json:"employeeSignature"`
	SignatureDate     string `json:"signatureDate,omitempty"`
}

func (s SignatureBlock) Signed() SignatureBlock {
	return s
}

func (s SignatureBlock) validate(v *issueList) {
	v.required("employeeSignature", s.EmployeeSignature)
	if strings.TrimSpace(s.SignatureDate) == "" {
		v.add("signatureDate", "is required")
		return
	}
	v.date("signatureDate", s.SignatureDate)
}

// Signature converts the block into the record-level signature, or nil when
// nothing was signed.
func (s SignatureBlock) Signature() *Signature {
	if strings.TrimSpace(s.EmployeeSignature) == "" {
		return nil
	}
	sig := &Signature{Value: strings.TrimSpace(s.EmployeeSignature)}
	if parsed, err := parseDate(s.SignatureDate); err == nil && !parsed.IsZero() {
		sig.Date = &parsed
	}
	return sig
}

type PersonalInformation struct {
	FirstName   string `json:"firstName"`
	MiddleName  string `json:"middleName,omitempty"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zipCode"`
}

func (PersonalInformation) Kind() Kind { return KindPersonalInformation }

func (f PersonalInformation) Validate() []FieldIssue {
	v := &issueList{}
	v.required("firstName", f.FirstName)
	v.required("lastName", f.LastName)
	v.requiredDate("dateOfBirth", f.DateOfBirth)
	v.required("phone", f.Phone)
	v.required("address", f.Address)
	v.required("city", f.City)
	v.state("state", f.State)
	v.zip("zipCode", f.ZipCode)
	if f.Email != "" && !strings.Contains(f.Email, "@") {
		v.add("email", "must be a valid email address")
	}
	return v.issues
}

type Contact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
}

type EmergencyContact struct {
	Contacts []Contact `json:"contacts"`
}

func (EmergencyContact) Kind() Kind { return KindEmergencyContact }

func (f EmergencyContact) Validate() []FieldIssue {
	v := &issueList{}
	if len(f.Contacts) == 0 {
		v.add("contacts", "at least one contact is required")
	}
	for i, contact := range f.Contacts {
		prefix := fmt.Sprintf("contacts[%d].", i)
		v.required(prefix+"name", contact.Name)
		v.required(prefix+"phone", contact.Phone)
	}
	return v.issues
}

const (
	CitizenshipCitizen            = "citizen"
	CitizenshipNoncitizenNational = "noncitizen_national"
	CitizenshipPermanentResident  = "permanent_resident"
	CitizenshipAuthorizedAlien    = "authorized_alien"
)

type I9Form struct {
	LastName                    string `json:"lastName"`
	FirstName                   string `json:"firstName"`
	MiddleInitial               string `json:"middleInitial,omitempty"`
	OtherLastNames              string `json:"otherLastNames,omitempty"`
	Address                     string `json:"address"`
	AptNumber                   string `json:"aptNumber,omitempty"`
	City                        string `json:"city"`
	State                       string `json:"state"`
	ZipCode                     string `json:"zipCode"`
	DateOfBirth                 string `json:"dateOfBirth"`
	SSN                         string `json:"ssn,omitempty"`
	Email                       string `json:"email,omitempty"`
	Phone                       string `json:"phone,omitempty"`
	CitizenshipStatus           string `json:"citizenshipStatus"`
	AlienNumber                 string `json:"alienNumber,omitempty"`
	USCISNumber                 string `json:"uscisNumber,omitempty"`
	I94Number                   string `json:"i94Number,omitempty"`
	ForeignPassportNumber       string `json:"foreignPassportNumber,omitempty"`
	CountryOfIssuance           string `json:"countryOfIssuance,omitempty"`
	WorkAuthorizationExpiration string `json:"workAuthorizationExpiration,omitempty"`
	SignatureBlock
}

func (I9Form) Kind() Kind { return KindI9 }

func (f I9Form) Validate() []FieldIssue {
	v := &issueList{}
	v.required("lastName", f.LastName)
	v.required("firstName", f.FirstName)
	v.required("address", f.Address)
	v.required("city", f.City)
	v.state("state", f.State)
	v.zip("zipCode", f.ZipCode)
	v.requiredDate("dateOfBirth", f.DateOfBirth)
	if f.SSN != "" {
		v.digits("ssn", f.SSN, 9)
	}
	switch f.CitizenshipStatus {
	case CitizenshipCitizen, CitizenshipNoncitizenNational:
	case CitizenshipPermanentResident:
		if strings.TrimSpace(f.AlienNumber) == "" && strings.TrimSpace(f.USCISNumber) == "" {
			v.add("alienNumber", "alien or USCIS number is required for permanent residents")
		}
	case CitizenshipAuthorizedAlien:
		if strings.TrimSpace(f.AlienNumber) == "" && strings.TrimSpace(f.I94Number) == "" && strings.TrimSpace(f.ForeignPassportNumber) == "" {
			v.add("alienNumber", "one of alien number, I-94 number or foreign passport number is required")
		}
		if strings.TrimSpace(f.ForeignPassportNumber) != "" {
			v.required("countryOfIssuance", f.CountryOfIssuance)
		}
		v.requiredDate("workAuthorizationExpiration", f.WorkAuthorizationExpiration)
	case "":
		v.add("citizenshipStatus", "is required")
	default:
		v.add("citizenshipStatus", "must be one of citizen, noncitizen_national, permanent_resident, authorized_alien")
	}
	f.SignatureBlock.validate(v)
	return v.issues
}

func (f I9Form) Redacted() FormData {
	f.SSN = maskDigits(f.SSN)
	f.AlienNumber = maskDigits(f.AlienNumber)
	f.USCISNumber = maskDigits(f.USCISNumber)
	f.I94Number = maskDigits(f.I94Number)
	f.ForeignPassportNumber = maskDigits(f.ForeignPassportNumber)
	return f
}

var taxClassifications = []string{"individual", "c_corporation", "s_corporation", "partnership", "trust_estate", "llc", "other"}

type W9Form struct {
	Name                 string `json:"name"`
	BusinessName         string `json:"businessName,omitempty"`
	TaxClassification    string `json:"taxClassification"`
	LLCTaxClassification string `json:"llcTaxClassification,omitempty"`
	OtherClassification  string `json:"otherClassification,omitempty"`
	ExemptPayeeCode      string `json:"exemptPayeeCode,omitempty"`
	FATCACode            string `json:"fatcaCode,omitempty"`
	Address              string `json:"address"`
	CityStateZip         string `json:"cityStateZip"`
	AccountNumbers       string `json:"accountNumbers,omitempty"`
	SSN                  string `json:"ssn,omitempty"`
	EIN                  string `json:"ein,omitempty"`
	SignatureBlock
}

func (W9Form) Kind() Kind { return KindW9 }

func (f W9Form) Validate() []FieldIssue {
	v := &issueList{}
	v.required("name", f.Name)
	v.enum("taxClassification", f.TaxClassification, taxClassifications)
	if f.TaxClassification == "llc" {
		v.enum("llcTaxClassification", f.LLCTaxClassification, []string{"C", "S", "P"})
	}
	if f.TaxClassification == "other" {
		v.required("otherClassification", f.OtherClassification)
	}
	v.required("address", f.Address)
	v.required("cityStateZip", f.CityStateZip)
	ssn, ein := strings.TrimSpace(f.SSN), strings.TrimSpace(f.EIN)
	switch {
	case ssn == "" && ein == "":
		v.add("ssn", "either ssn or ein is required")
	case ssn != "" && ein != "":
		v.add("ein", "provide either ssn or ein, not both")
	case ssn != "":
		v.digits("ssn", ssn, 9)
	default:
		v.digits("ein", ein, 9)
	}
	f.SignatureBlock.validate(v)
	return v.issues
}

func (f W9Form) Redacted() FormData {
	f.SSN = maskDigits(f.SSN)
	f.EIN = maskDigits(f.EIN)
	f.AccountNumbers = maskDigits(f.AccountNumbers)
	return f
}

type DirectDeposit struct {
	BankName      string `json:"bankName"`
	RoutingNumber string `json:"routingNumber"`
	AccountNumber string `json:"accountNumber"`
	AccountType   string `json:"accountType"`
	SignatureBlock
}

func (DirectDeposit) Kind() Kind { return KindDirectDeposit }

func (f DirectDeposit) Validate() []FieldIssue {
	v := &issueList{}
	v.required("bankName", f.BankName)
	if v.digits("routingNumber", f.RoutingNumber, 9) && !validRoutingNumber(onlyDigits(f.RoutingNumber)) {
		v.add("routingNumber", "checksum does not match")
	}
	v.required("accountNumber", f.AccountNumber)
	v.enum("accountType", f.AccountType, []string{"checking", "savings"})
	f.SignatureBlock.validate(v)
	return v.issues
}

func (f DirectDeposit) Redacted() FormData {
	f.AccountNumber = maskDigits(f.AccountNumber)
	return f
}

type NonCompeteAgreement struct {
	EmployeeName  string `json:"employeeName"`
	Position      string `json:"position"`
	EffectiveDate string `json:"effectiveDate"`
	Agreed        bool   `json:"agreed"`
	SignatureBlock
}

func (NonCompeteAgreement) Kind() Kind { return KindNonCompete }

func (f NonCompeteAgreement) Validate() []FieldIssue {
	v := &issueList{}
	v.required("employeeName", f.EmployeeName)
	v.required("position", f.Position)
	v.requiredDate("effectiveDate", f.EffectiveDate)
	if !f.Agreed {
		v.add("agreed", "the agreement must be accepted")
	}
	f.SignatureBlock.validate(v)
	return v.issues
}

// OrientationItems are the checklist entries every new hire must confirm.
var OrientationItems = []string{
	"companyOverview",
	"clientRights",
	"infectionControl",
	"emergencyProcedures",
	"incidentReporting",
	"abuseAndNeglect",
	"confidentiality",
	"timekeeping",
}

type OrientationChecklist struct {
	Items map[string]bool `json:"items"`
	SignatureBlock
}

func (OrientationChecklist) Kind() Kind { return KindOrientation }

func (f OrientationChecklist) Validate() []FieldIssue {
	v := &issueList{}
	for _, item := range OrientationItems {
		if !f.Items[item] {
			v.add("items."+item, "must be checked")
		}
	}
	f.SignatureBlock.validate(v)
	return v.issues
}

type Acknowledgment struct {
	EmployeeName string `json:"employeeName"`
	Acknowledged bool   `json:"acknowledged"`
	SignatureBlock
}

func (Acknowledgment) Kind() Kind { return KindAcknowledgment }

func (f Acknowledgment) Validate() []FieldIssue {
	v := &issueList{}
	v.required("employeeName", f.EmployeeName)
	if !f.Acknowledged {
		v.add("acknowledged", "must be checked")
	}
	f.SignatureBlock.validate(v)
	return v.issues
}

type TrainingVideo struct {
	VideoID         string  `json:"videoId"`
	WatchedSeconds  float64 `json:"watchedSeconds"`
	DurationSeconds float64 `json:"durationSeconds"`
	Acknowledged    bool    `json:"acknowledged"`
}

func (TrainingVideo) Kind() Kind { return KindTrainingVideo }

func (f TrainingVideo) Validate() []FieldIssue {
	v := &issueList{}
	v.required("videoId", f.VideoID)
	if f.DurationSeconds <= 0 {
		v.add("durationSeconds", "must be positive")
	} else if f.WatchedSeconds < f.DurationSeconds {
		v.add("watchedSeconds", "the full video must be watched")
	}
	if !f.Acknowledged {
		v.add("acknowledged", "must be checked")
	}
	return v.issues
}

// Document is the payload of upload-only forms.
type Document struct {
	Notes string `json:"notes,omitempty"`
}

func (Document) Kind() Kind { return KindDocument }

func (Document) Validate() []FieldIssue { return nil }

func newPayload(kind Kind) (FormData, error) {
	switch kind {
	case KindPersonalInformation:
		return &PersonalInformation{}, nil
	case KindEmergencyContact:
		return &EmergencyContact{}, nil
	case KindI9:
		return &I9Form{}, nil
	case KindW9:
		return &W9Form{}, nil
	case KindDirectDeposit:
		return &DirectDeposit{}, nil
	case KindNonCompete:
		return &NonCompeteAgreement{}, nil
	case KindOrientation:
		return &OrientationChecklist{}, nil
	case KindAcknowledgment:
		return &Acknowledgment{}, nil
	case KindTrainingVideo:
		return &TrainingVideo{}, nil
	case KindDocument:
		return &Document{}, nil
	}
	return nil, fmt.Errorf("%w: kind %q", ErrUnknownForm, kind)
}

// DecodeFormData parses raw JSON into the payload type of formKey. Unknown
// fields are rejected so drift between client and server surfaces early.
func DecodeFormData(formKey string, raw json.RawMessage) (FormData, error) {
	def, err := Lookup(formKey)
	if err != nil {
		return nil, err
	}
	target, err := newPayload(def.Kind)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return deref(target), nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return nil, &ValidationError{Issues: []FieldIssue{{Field: "formData", Reason: "invalid payload: " + err.Error()}}}
	}
	return deref(target), nil
}

// ValidateForSubmit runs full validation and wraps failures.
func ValidateForSubmit(data FormData) error {
	issues := data.Validate()
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

func deref(data FormData) FormData {
	switch v := data.(type) {
	case *PersonalInformation:
		return *v
	case *EmergencyContact:
		return *v
	case *I9Form:
		return *v
	case *W9Form:
		return *v
	case *DirectDeposit:
		return *v
	case *NonCompeteAgreement:
		return *v
	case *OrientationChecklist:
		return *v
	case *Acknowledgment:
		return *v
	case *TrainingVideo:
		return *v
	case *Document:
		return *v
	}
	return data
}

// SignatureOf returns the record-level signature of a payload, if any.
func SignatureOf(data FormData) *Signature {
	signer, ok := data.(Signer)
	if !ok {
		return nil
	}
	return signer.Signed().Signature()
}

// Redact masks sensitive identifiers in a stored payload. Payloads without
// sensitive fields are returned untouched.
func Redact(formKey string, raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	data, err := DecodeFormData(formKey, raw)
	if err != nil {
		return nil
	}
	redactor, ok := data.(Redactor)
	if !ok {
		return raw
	}
	out, err := json.Marshal(redactor.Redacted())
	if err != nil {
		return nil
	}
	return out
}

type issueList struct {
	issues []FieldIssue
}

func (v *issueList) add(field, reason string) {
	v.issues = append(v.issues, FieldIssue{Field: field, Reason: reason})
}

func (v *issueList) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, "is required")
	}
}

func (v *issueList) date(field, value string) bool {
	if _, err := parseDate(value); err != nil {
		v.add(field, "must be a valid date in YYYY-MM-DD format")
		return false
	}
	return true
}

func (v *issueList) requiredDate(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, "is required")
		return
	}
	v.date(field, value)
}

func (v *issueList) enum(field, value string, allowed []string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, "is required")
		return
	}
	for _, candidate := range allowed {
		if value == candidate {
			return
		}
	}
	v.add(field, "must be one of "+strings.Join(allowed, ", "))
}

func (v *issueList) state(field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		v.add(field, "is required")
		return
	}
	if len(value) != 2 || strings.ToUpper(value) != value {
		v.add(field, "must be a two-letter state code")
	}
}

func (v *issueList) zip(field, value string) {
	digits := onlyDigits(value)
	if strings.TrimSpace(value) == "" {
		v.add(field, "is required")
		return
	}
	if len(digits) != 5 && len(digits) != 9 {
		v.add(field, "must be a 5 or 9 digit zip code")
	}
}

func (v *issueList) digits(field, value string, n int) bool {
	if strings.TrimSpace(value) == "" {
		v.add(field, "is required")
		return false
	}
	if len(onlyDigits(value)) != n {
		v.add(field, fmt.Sprintf("must contain %d digits", n))
		return false
	}
	return true
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", value)
}

func onlyDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// maskDigits keeps the last four characters of an identifier.
func maskDigits(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}

// validRoutingNumber applies the ABA 3-7-1 checksum.
func validRoutingNumber(digits string) bool {
	if len(digits) != 9 {
		return false
	}
	weights := []int{3, 7, 1, 3, 7, 1, 3, 7, 1}
	sum := 0
	for i, r := range digits {
		sum += int(r-'0') * weights[i]
	}
	return sum%10 == 0
}
