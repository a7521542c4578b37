package notifications

const (
	TypeFormSubmitted   = "onboarding_form_submitted"
	TypeFormReviewed    = "onboarding_form_reviewed"
	TypeFormCleared     = "onboarding_form_cleared"
	TypeDraftReminder   = "onboarding_draft_reminder"
)
