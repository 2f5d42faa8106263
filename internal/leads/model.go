package leads

import (
	"strings"
	"time"
)

// DefaultProjectType labels leads that did not pick a service.
const DefaultProjectType = "Not specified"

// Submission is the untrusted form body posted to /api/lead. Several fields
// have alternate names depending on which form posted them; Normalize folds
// them together and nothing past it sees the aliases.
type Submission struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Company            string `json:"company"`
	Service            string `json:"service"`
	ProjectType        string `json:"projectType"`
	Timeline           string `json:"timeline"`
	Message            string `json:"message"`
	Details            string `json:"details"`
	Property           string `json:"property"`
	EstimatedCloseDate string `json:"estimatedCloseDate"`
	City               string `json:"city"`
	TurnstileToken     string `json:"turnstileToken"`
	CFTurnstileToken   string `json:"cf-turnstile-response"`
}

// Token returns the bot-check token under whichever name the form used.
func (s *Submission) Token() string {
	return firstNonBlank(s.TurnstileToken, s.CFTurnstileToken)
}

// Lead is the normalized projection of a Submission. It is built per request,
// never stored, and not modified after Normalize returns it. Empty optional
// fields mean the visitor did not supply them.
type Lead struct {
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	Company            string    `json:"company,omitempty"`
	ProjectType        string    `json:"projectType"`
	Timeline           string    `json:"timeline,omitempty"`
	Details            string    `json:"details,omitempty"`
	Property           string    `json:"property,omitempty"`
	EstimatedCloseDate string    `json:"estimatedCloseDate,omitempty"`
	City               string    `json:"city,omitempty"`
	SubmittedAt        time.Time `json:"-"`
}

// Normalize trims every field, strips the phone to digits, lower-cases the
// email and substitutes DefaultProjectType when no service was chosen.
func Normalize(sub Submission, submittedAt time.Time) *Lead {
	projectType := firstNonBlank(sub.Service, sub.ProjectType)
	if projectType == "" {
		projectType = DefaultProjectType
	}
	return &Lead{
		Name:               strings.TrimSpace(sub.Name),
		Email:              strings.ToLower(strings.TrimSpace(sub.Email)),
		Phone:              NormalizePhone(sub.Phone),
		Company:            strings.TrimSpace(sub.Company),
		ProjectType:        projectType,
		Timeline:           strings.TrimSpace(sub.Timeline),
		Details:            firstNonBlank(sub.Details, sub.Message),
		Property:           strings.TrimSpace(sub.Property),
		EstimatedCloseDate: strings.TrimSpace(sub.EstimatedCloseDate),
		City:               strings.TrimSpace(sub.City),
		SubmittedAt:        submittedAt.UTC(),
	}
}

// NormalizePhone keeps only ASCII digits. Applying it twice is a no-op.
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EmailDomain returns the part after '@', used for logging instead of the full address.
func (l *Lead) EmailDomain() string {
	if i := strings.LastIndexByte(l.Email, '@'); i >= 0 {
		return l.Email[i+1:]
	}
	return ""
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
