package progress

import "strings"

const (
	KeyPersonalInformation    = "personalInformation"
	KeyEmergencyContact       = "emergencyContact"
	KeyI9Form                 = "i9Form"
	KeyW9Form                 = "w9Form"
	KeyW4Form                 = "w4Form"
	KeyDirectDeposit          = "directDeposit"
	KeyCPRCertificate         = "cprCertificate"
	KeyDriversLicense         = "driversLicense"
	KeySSNCard                = "ssnCard"
	KeyTBTest                 = "tbTest"
	KeyBackgroundCheck        = "backgroundCheck"
	KeyNonCompeteAgreement    = "nonCompeteAgreement"
	KeyOrientationChecklist   = "orientationChecklist"
	KeyJobDescriptionPCA      = "jobDescriptionPCA"
	KeyJobDescriptionCNA      = "jobDescriptionCNA"
	KeyJobDescriptionLPN      = "jobDescriptionLPN"
	KeyJobDescriptionRN       = "jobDescriptionRN"
	KeyTrainingVideo          = "trainingVideo"
	KeyEmployeeHandbook       = "employeeHandbook"
	KeyHIPAAAgreement         = "hipaaAgreement"
	KeyCodeOfEthics           = "codeOfEthics"
	KeyDrugFreePolicy         = "drugFreePolicy"
	KeyProfessionalReferences = "professionalReferences"
	KeyHepatitisBVaccine      = "hepatitisBVaccine"
	KeyProfessionalLicense    = "professionalLicense"
	KeyMisconductStatement    = "misconductStatement"
	KeyEmergencyPreparedness  = "emergencyPreparedness"
	KeyServiceDeliveryPolicy  = "serviceDeliveryPolicy"
)

const (
	ProfileStandard = "standard"
	ProfileExtended = "extended"
)

// jobDescriptionVariants lists the records the logical jobDescriptionPCA key
// may resolve to, in lookup order. Only one variant applies per employee.
var jobDescriptionVariants = []string{
	KeyJobDescriptionPCA,
	KeyJobDescriptionCNA,
	KeyJobDescriptionLPN,
	KeyJobDescriptionRN,
}

var standardKeys = []string{
	KeyPersonalInformation,
	KeyEmergencyContact,
	KeyI9Form,
	KeyW9Form,
	KeyW4Form,
	KeyDirectDeposit,
	KeyCPRCertificate,
	KeyDriversLicense,
	KeySSNCard,
	KeyTBTest,
	KeyBackgroundCheck,
	KeyNonCompeteAgreement,
	KeyOrientationChecklist,
	KeyJobDescriptionPCA,
	KeyTrainingVideo,
	KeyEmployeeHandbook,
	KeyHIPAAAgreement,
	KeyCodeOfEthics,
	KeyDrugFreePolicy,
	KeyProfessionalReferences,
}

var extendedOnlyKeys = []string{
	KeyHepatitisBVaccine,
	KeyProfessionalLicense,
	KeyMisconductStatement,
	KeyEmergencyPreparedness,
	KeyServiceDeliveryPolicy,
}

// StandardKeys returns the 20-key FORM_KEYS list.
func StandardKeys() []string {
	return append([]string(nil), standardKeys...)
}

// ExtendedKeys returns the 25-key FORM_KEYS list: the standard keys followed
// by the clinical additions.
func ExtendedKeys() []string {
	out := make([]string, 0, len(standardKeys)+len(extendedOnlyKeys))
	out = append(out, standardKeys...)
	return append(out, extendedOnlyKeys...)
}

// JobDescriptionVariants returns the concrete job-description keys.
func JobDescriptionVariants() []string {
	return append([]string(nil), jobDescriptionVariants...)
}

// JobDescriptionKeyForPosition maps an employee position to the
// job-description form that applies to it.
func JobDescriptionKeyForPosition(position string) string {
	switch strings.ToUpper(strings.TrimSpace(position)) {
	case "CNA":
		return KeyJobDescriptionCNA
	case "LPN":
		return KeyJobDescriptionLPN
	case "RN":
		return KeyJobDescriptionRN
	default:
		return KeyJobDescriptionPCA
	}
}
