package onboarding

import (
	"sort"

	"onboarding/internal/domain/progress"
)

type Kind string

const (
	KindPersonalInformation Kind = "personal_information"
	KindEmergencyContact    Kind = "emergency_contact"
	KindI9                  Kind = "i9"
	KindW9                  Kind = "w9"
	KindDirectDeposit       Kind = "direct_deposit"
	KindNonCompete          Kind = "non_compete"
	KindOrientation         Kind = "orientation"
	KindAcknowledgment      Kind = "acknowledgment"
	KindTrainingVideo       Kind = "training_video"
	KindDocument            Kind = "document"
)

// Definition is the static description of one onboarding form.
type Definition struct {
	Key           string   `json:"key"`
	Slug          string   `json:"slug"`
	Title         string   `json:"title"`
	Kind          Kind     `json:"kind"`
	Uploadable    bool     `json:"uploadable"`
	Template      bool     `json:"template"`
	Prerequisites []string `json:"prerequisites,omitempty"`
}

var definitions = []Definition{
	{Key: progress.KeyPersonalInformation, Slug: "personal-information", Title: "Personal Information", Kind: KindPersonalInformation},
	{Key: progress.KeyEmergencyContact, Slug: "emergency-contact", Title: "Emergency Contact", Kind: KindEmergencyContact},
	{Key: progress.KeyI9Form, Slug: "i9-form", Title: "Form I-9", Kind: KindI9, Uploadable: true, Template: true},
	{Key: progress.KeyW9Form, Slug: "w9-form", Title: "Form W-9", Kind: KindW9, Uploadable: true, Template: true,
		Prerequisites: []string{progress.KeyPersonalInformation}},
	{Key: progress.KeyW4Form, Slug: "w4-form", Title: "Form W-4", Kind: KindDocument, Uploadable: true, Template: true},
	{Key: progress.KeyDirectDeposit, Slug: "direct-deposit", Title: "Direct Deposit Authorization", Kind: KindDirectDeposit},
	{Key: progress.KeyCPRCertificate, Slug: "cpr-certificate", Title: "CPR Certificate", Kind: KindDocument, Uploadable: true},
	{Key: progress.KeyDriversLicense, Slug: "drivers-license", Title: "Driver's License", Kind: KindDocument, Uploadable: true},
	{Key: progress.KeySSNCard, Slug: "ssn-card", Title: "Social Security Card", Kind: KindDocument, Uploadable: true},
	{Key: progress.KeyTBTest, Slug: "tb-test", Title: "TB Test Results", Kind: KindDocument, Uploadable: true},
	{Key: progress.KeyBackgroundCheck, Slug: "background-check", Title: "Background Check Authorization", Kind: KindDocument, Uploadable: true, Template: true},
	{Key: progress.KeyNonCompeteAgreement, Slug: "non-compete-agreement", Title: "Non-Compete Agreement", Kind: KindNonCompete, Template: true,
		Prerequisites: []string{progress.KeyPersonalInformation}},
	{Key: progress.KeyOrientationChecklist, Slug: "orientation-checklist", Title: "Orientation Checklist", Kind: KindOrientation},
	{Key: progress.KeyJobDescriptionPCA, Slug: "job-description-pca", Title: "Job Description (PCA)", Kind: KindAcknowledgment, Template: true},
	{Key: progress.KeyJobDescriptionCNA, Slug: "job-description-cna", Title: "Job Description (CNA)", Kind: KindAcknowledgment, Template: true},
	{Key: progress.KeyJobDescriptionLPN, Slug: "job-description-lpn", Title: "Job Description (LPN)", Kind: KindAcknowledgment, Template: true},
	{Key: progress.KeyJobDescriptionRN, Slug: "job-description-rn", Title: "Job Description (RN)", Kind: KindAcknowledgment, Template: true},
	{Key: progress.KeyTrainingVideo, Slug: "training-video", Title: "Training Video", Kind: KindTrainingVideo,
		Prerequisites: []string{progress.KeyJobDescriptionPCA, progress.KeyOrientationChecklist}},
	{Key: progress.KeyEmployeeHandbook, Slug: "employee-handbook", Title: "Employee Handbook Acknowledgment", Kind: KindAcknowledgment, Template: true},
	{Key: progress.KeyHIPAAAgreement, Slug: "hipaa-agreement", Title: "HIPAA Agreement", Kind: KindAcknowledgment, Template: true},
	{Key: progress.KeyCodeOfEthics, Slug: "code-of-ethics", Title: "Code of Ethics", Kind: KindAcknowledgment},
	{Key: progress.KeyDrugFreePolicy, Slug: "drug-free-policy", Title: "Drug-Free Workplace Policy", Kind: KindAcknowledgment},
	{Key: progress.KeyProfessionalReferences, Slug: "professional-references", Title: "Professional References", Kind: KindDocument, Uploadable: true},
	{Key: progress.KeyHepatitisBVaccine, Slug: "hepatitis-b-vaccine", Title: "Hepatitis B Vaccination Record", Kind: KindDocument, Uploadable: true, Template: true},
	{Key: progress.KeyProfessionalLicense, Slug: "professional-license", Title: "Professional License", Kind: KindDocument, Uploadable: true},
	{Key: progress.KeyMisconductStatement, Slug: "misconduct-statement", Title: "Misconduct Statement", Kind: KindAcknowledgment},
	{Key: progress.KeyEmergencyPreparedness, Slug: "emergency-preparedness", Title: "Emergency Preparedness", Kind: KindAcknowledgment},
	{Key: progress.KeyServiceDeliveryPolicy, Slug: "service-delivery-policy", Title: "Service Delivery Policy", Kind: KindAcknowledgment},
}

var (
	definitionsByKey  = map[string]Definition{}
	definitionsBySlug = map[string]Definition{}
)

func init() {
	for _, def := range definitions {
		definitionsByKey[def.Key] = def
		definitionsBySlug[def.Slug] = def
	}
}

// Definitions returns every known form in registry order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

func Lookup(formKey string) (Definition, error) {
	def, ok := definitionsByKey[formKey]
	if !ok {
		return Definition{}, ErrUnknownForm
	}
	return def, nil
}

func LookupSlug(slug string) (Definition, error) {
	def, ok := definitionsBySlug[slug]
	if !ok {
		return Definition{}, ErrUnknownForm
	}
	return def, nil
}

// UploadableDefinitions returns the forms that accept a PDF, sorted by slug.
func UploadableDefinitions() []Definition {
	return filterDefinitions(func(def Definition) bool { return def.Uploadable })
}

// TemplateDefinitions returns the forms HR can attach a blank template to.
func TemplateDefinitions() []Definition {
	return filterDefinitions(func(def Definition) bool { return def.Template })
}

func filterDefinitions(keep func(Definition) bool) []Definition {
	var out []Definition
	for _, def := range definitions {
		if keep(def) {
			out = append(out, def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
